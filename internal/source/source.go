package source

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/trendpipe/internal/domain"
)

// Source defines the interface for trend data sources. Each
// implementation fetches candidates from exactly one external
// provider and is an isolated failure domain: a failed fetch never
// aborts the surrounding run.
type Source interface {
	// ID returns the stable identifier for this source.
	ID() domain.SourceID

	// Fetch retrieves candidate trends from the provider. The caller
	// supplies the deadline through ctx; implementations must abandon
	// retries once it expires. A non-nil error is always a *FetchError.
	Fetch(ctx context.Context) ([]domain.Candidate, error)
}

// FetchError carries the source id and the underlying cause of a
// failed fetch. It is always locally recoverable: the caller treats
// it as "this source produced zero results this run".
type FetchError struct {
	Source domain.SourceID
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err as a FetchError for the given source.
func NewFetchError(id domain.SourceID, err error) *FetchError {
	return &FetchError{Source: id, Err: err}
}

// RetryConfig bounds the per-adapter retry loop.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetry is the retry policy adapters use unless overridden.
var DefaultRetry = RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second}

// WithRetry runs fn up to cfg.MaxAttempts times with exponential
// backoff between attempts. It returns immediately when ctx is done;
// no retry is attempted past the deadline.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := fn(); err != nil {
			lastErr = err

			if attempt == cfg.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, err)
			}

			delay := cfg.Delay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}

	return lastErr
}

// EstimateCompetition derives a competition level from volume and
// growth. High volume with flat growth reads as a saturated topic.
func EstimateCompetition(volume int64, growthRate float64) domain.CompetitionLevel {
	switch {
	case volume > 100000:
		return domain.CompetitionHigh
	case volume > 10000:
		if growthRate > 50 {
			return domain.CompetitionMedium
		}
		return domain.CompetitionHigh
	case volume > 1000:
		return domain.CompetitionMedium
	default:
		return domain.CompetitionLow
	}
}
