package llm

import (
	"context"
	"time"
)

// RetryConfig bounds the retry loop for transient provider failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay before the first retry; each subsequent retry
	// doubles it. Default: 500ms
	BaseDelay time.Duration

	// MaxDelay caps the per-retry delay. Default: 5s
	MaxDelay time.Duration
}

// DefaultRetryConfig is the bounded-backoff policy used by the engine for
// provider calls.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
}

// Retry runs fn, retrying with exponential backoff while the returned error
// is a retryable provider failure (see IsRetryable). Non-retryable errors,
// circuit-open errors, and context cancellation stop the loop immediately.
// The last error is returned when attempts are exhausted.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig.MaxDelay
	}

	var err error
	delay := cfg.BaseDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return err
}
