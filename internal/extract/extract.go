// Package extract turns a photographed service receipt into candidate
// service-record line items via a multimodal extraction model.
//
// The flow per upload:
//
//	image bytes → Scanner (remote model call) → parsed Receipt →
//	caller picks one LineItem → record draft
//
// The package separates two failure classes the UI treats very differently:
//   - transport failures (API down, quota, network) are retried with
//     exponential backoff by the Pipeline
//   - malformed responses (no JSON, empty items) fail fast — resending the
//     same image cannot make the model's answer parseable
package extract

import (
	"context"
	"errors"
)

// LineItem is one extracted charge from a receipt. It is transient: exactly
// one item is promoted into a record draft on selection, then the whole
// batch is discarded.
type LineItem struct {
	Task string  `json:"task"`
	Cost float64 `json:"cost"`
}

// Receipt is the structured payload the extraction model returns.
// Date may be empty (model couldn't find one) and Mileage may be zero;
// callers fall back to their existing draft values.
type Receipt struct {
	Date    string     `json:"date"` // YYYY-MM-DD, or empty
	Mileage int        `json:"mileage"`
	Items   []LineItem `json:"items"`
}

// Scanner submits an image to an extraction backend and returns the parsed
// receipt. Implementations wrap unparseable responses with ErrMalformed so
// the Pipeline knows not to retry them.
type Scanner interface {
	Extract(ctx context.Context, imageData []byte, mimeType string) (*Receipt, error)
}

var (
	// ErrNotImage is returned before any network call when the uploaded
	// file is not an image.
	ErrNotImage = errors.New("extract: please upload an image file")

	// ErrMalformed marks a response that came back but could not be used:
	// no JSON object, invalid JSON, or an empty items array.
	ErrMalformed = errors.New("extract: malformed extraction response")

	// ErrBusy is returned when an extraction is already running on this
	// pipeline instance. One at a time — the gate is a flag, not a queue.
	ErrBusy = errors.New("extract: an extraction is already in progress")
)
