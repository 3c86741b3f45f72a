package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// receiptPrompt is the fixed instruction sent with every receipt image.
// It pins the output shape so parseReceipt has something predictable to
// work with; the no-markdown rule is honored by the model most of the time
// (see stripFences for the rest).
const receiptPrompt = `You are analyzing a vehicle service receipt. Extract ALL service items and details.

Return a JSON object with this structure:
{
  "date": "YYYY-MM-DD format",
  "mileage": number (current odometer reading, often in notes section),
  "items": [
    {"task": "description", "cost": number},
    {"task": "description", "cost": number}
  ]
}

Rules:
- Extract EVERY line item charge separately (oil change, inspection, fees, etc)
- Find the odometer/mileage reading (may be in technician notes)
- Convert dates like "October 14, 2025" to "2025-10-14"
- Return ONLY valid JSON, no markdown, no explanations
- If multiple services exist, list them ALL in the items array`

const defaultModel = "gemini-2.5-flash"

// Gemini implements Scanner using Google's Gemini multimodal models.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini-backed Scanner. The API key is required and
// must come from configuration — never compile a key into the binary.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("extract: gemini api key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("extract: creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Low temperature: we want transcription, not creativity.
	model.SetTemperature(0.1)

	return &Gemini{client: client, model: model}, nil
}

// Extract submits the receipt image plus the fixed prompt and parses the
// response. Transport and API errors come back unwrapped (retryable);
// unusable responses carry ErrMalformed (not retryable).
func (g *Gemini) Extract(ctx context.Context, imageData []byte, mimeType string) (*Receipt, error) {
	// genai.ImageData wants the bare format suffix ("jpeg"), not the full
	// MIME type ("image/jpeg").
	format := strings.TrimPrefix(mimeType, "image/")

	resp, err := g.model.GenerateContent(ctx,
		genai.Text(receiptPrompt),
		genai.ImageData(format, imageData),
	)
	if err != nil {
		return nil, fmt.Errorf("extract: generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: no text returned from model", ErrMalformed)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return parseReceipt(text.String())
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
