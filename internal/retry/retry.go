// Package retry provides an exponential-backoff retry runner for batch
// jobs. Sleeps are real delays on the calling goroutine, so the runner
// belongs in batch contexts, never on the request-time query path.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// Default configuration values.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 1 * time.Minute
	DefaultMaxDelay     = 1 * time.Hour
	DefaultMultiplier   = 2.0
)

// ExhaustedError is returned after the final failed attempt. It wraps the
// last underlying error so callers can still inspect the cause.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Config tunes the backoff schedule and the retry allow-list.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64

	// RetryOn lists the sentinel errors worth retrying. An error that does
	// not match (errors.Is) any entry is returned immediately: unexpected
	// failures are never retried by default.
	RetryOn []error
}

// Runner retries a unit of work with exponential backoff.
type Runner struct {
	cfg Config
}

// New creates a runner, filling unset config fields with defaults.
func New(cfg Config) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = DefaultMultiplier
	}
	return &Runner{cfg: cfg}
}

// Do runs fn until it succeeds, fails with a non-retryable error, the
// context is cancelled, or the attempt budget is spent. After the final
// attempt it returns an *ExhaustedError wrapping the last failure.
func (r *Runner) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	delay := r.cfg.InitialDelay
	var last error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = fn(ctx)
		if last == nil {
			return nil
		}

		if !r.retryable(last) {
			return last
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}

		wait := delay
		if wait > r.cfg.MaxDelay {
			wait = r.cfg.MaxDelay
		}
		logger.Warn("%s failed (attempt %d/%d): %v. Retrying in %s",
			name, attempt, r.cfg.MaxAttempts, last, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * r.cfg.Multiplier)
	}

	logger.Warn("%s failed after %d attempts: %v", name, r.cfg.MaxAttempts, last)
	return &ExhaustedError{Attempts: r.cfg.MaxAttempts, Last: last}
}

// retryable reports whether err matches the allow-list.
func (r *Runner) retryable(err error) bool {
	for _, target := range r.cfg.RetryOn {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
