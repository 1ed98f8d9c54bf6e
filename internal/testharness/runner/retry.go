package runner

import (
	"context"
	"errors"
	"time"
)

var errNoAttempts = errors.New("retryWithBackoff: MaxAttempts must be > 0")

// RetryConfig controls the retry behavior of retryWithBackoff.
type RetryConfig struct {
	MaxAttempts int           // required, must be > 0
	BaseDelay   time.Duration // initial backoff delay
	MaxDelay    time.Duration // cap on delay (defaults to 10s if zero)
}

// retryWithBackoff calls fn up to cfg.MaxAttempts times with exponential
// backoff. It stops early if the context is cancelled or if fn returns an
// error whose category is not infrastructure. Callers must make fn
// idempotent: a failed attempt has to reset any partial state before the
// next one starts.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		return errNoAttempts
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 10 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		// Stop immediately on non-retryable errors.
		if Category(lastErr) != ErrCatInfrastructure {
			return lastErr
		}

		// Don't sleep after the last attempt.
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		// Exponential backoff: baseDelay * 2^attempt, capped at maxDelay.
		delay := min(cfg.BaseDelay<<uint(attempt), cfg.MaxDelay)
		if err := contextSleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

// contextSleep waits for the given duration or until the context is done,
// whichever comes first. Returns ctx.Err() if the context was cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
