package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/carkeeper/internal/model"
)

// parseReceipt turns the raw model response text into a Receipt.
//
// Models are told to return bare JSON, but they wrap it in markdown fences
// anyway often enough that stripping them unconditionally is cheaper than
// arguing with the prompt. After stripping, we cut the text down to the
// outermost {...} — some models add a polite sentence before or after.
//
// All failures wrap ErrMalformed: the caller must not retry them.
func parseReceipt(text string) (*Receipt, error) {
	text = stripFences(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformed)
	}
	text = text[start : end+1]

	var receipt Receipt
	if err := json.Unmarshal([]byte(text), &receipt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if len(receipt.Items) == 0 {
		return nil, fmt.Errorf("%w: no service items found in receipt", ErrMalformed)
	}

	receipt.Date = normalizeDate(receipt.Date)
	for i := range receipt.Items {
		receipt.Items[i].Task = strings.TrimSpace(receipt.Items[i].Task)
	}

	return &receipt, nil
}

// stripFences removes markdown code-fence markers from the response text.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// dateFormats are the shapes models actually produce despite being asked
// for ISO 8601.
var dateFormats = []string{
	model.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"January 2, 2006",
}

// normalizeDate coerces the extracted date to YYYY-MM-DD. An unparseable
// date becomes empty — the caller keeps its existing draft date rather than
// guessing.
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}
	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, date); err == nil {
			return d.Format(model.DateLayout)
		}
	}
	return ""
}
