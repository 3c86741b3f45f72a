package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// maxAttempts is the total number of extraction tries per upload: the
// initial attempt plus three retries.
const maxAttempts = 4

// Pipeline runs the upload → scan → parse flow with retry.
//
// RETRY POLICY:
// Transport failures are retried with exponential backoff: before retry n
// the pipeline sleeps 2^(n-1) seconds (1s, 2s, 4s). No jitter — there's one
// user behind each upload, not a thundering herd. ErrMalformed failures are
// NOT retried: the model answered, the answer was unusable, and feeding the
// same image back will not improve it.
//
// At most one extraction runs per Pipeline instance at a time, enforced by
// an atomic flag. Concurrent Run calls get ErrBusy immediately; nothing
// queues.
type Pipeline struct {
	scanner Scanner
	logger  *slog.Logger

	// sleep is swappable so tests can assert the backoff schedule without
	// waiting out seven real seconds.
	sleep func(time.Duration)

	analyzing atomic.Bool
}

func NewPipeline(scanner Scanner, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		scanner: scanner,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// NewPipelineWithSleep creates a Pipeline with a custom sleep function.
// Tests use this to record delays instead of waiting them out.
func NewPipelineWithSleep(scanner Scanner, logger *slog.Logger, sleep func(time.Duration)) *Pipeline {
	return &Pipeline{
		scanner: scanner,
		logger:  logger,
		sleep:   sleep,
	}
}

// Analyzing reports whether an extraction is currently in flight. UIs use
// this to disable the upload control.
func (p *Pipeline) Analyzing() bool {
	return p.analyzing.Load()
}

// Run extracts service items from an uploaded receipt image.
//
// Non-image uploads are rejected up front with ErrNotImage — no network
// call happens. After exhausting retries, the terminal error tells the user
// to enter the data manually; the caller returns to idle either way.
func (p *Pipeline) Run(ctx context.Context, imageData []byte, mimeType string) (*Receipt, error) {
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, ErrNotImage
	}

	if !p.analyzing.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.analyzing.Store(false)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		receipt, err := p.scanner.Extract(ctx, imageData, mimeType)
		if err == nil {
			p.logger.Info("receipt extracted",
				slog.Int("attempt", attempt),
				slog.Int("items", len(receipt.Items)),
			)
			return receipt, nil
		}

		if errors.Is(err, ErrMalformed) {
			p.logger.Warn("extraction response unusable, not retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("AI analysis failed: %v. Please enter the service details manually", err)
		}

		lastErr = err
		p.logger.Warn("extraction attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt < maxAttempts {
			// 1s, 2s, 4s — doubling per failed attempt.
			p.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
	}

	return nil, fmt.Errorf("AI analysis failed: %v. Please enter the service details manually", lastErr)
}
