// Package resilience provides fault tolerance patterns
package resilience

import (
	"context"
	"math/rand"
	"time"

	apperrors "github.com/saleskit-io/meetbot/internal/errors"
)

// Retry defaults
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
)

// RetryConfig holds retry settings. MaxAttempts counts every try
// including the first, so 3 means one call and at most two retries.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     float64 // per-attempt delay multiplier; <= 1 keeps the delay fixed
	MaxDelay    time.Duration
	Jitter      float64 // random fraction of the delay, opt-in
	Retryable   func(error) bool
	OnRetry     func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns standard retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		MaxDelay:    DefaultMaxDelay,
		Retryable:   apperrors.IsRetryable,
	}
}

// Retry executes fn up to MaxAttempts times. It returns nil on the
// first success, the last error once attempts run out or the error is
// not retryable, and the context error if the wait is interrupted.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if !cfg.Retryable(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		delay := cfg.delayFor(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// delayFor computes the wait after the given 1-based attempt.
func (c RetryConfig) delayFor(attempt int) time.Duration {
	d := float64(c.Delay)
	if c.Backoff > 1 {
		for i := 1; i < attempt; i++ {
			d *= c.Backoff
			if c.MaxDelay > 0 && d >= float64(c.MaxDelay) {
				break
			}
		}
	}
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.Jitter > 0 {
		d += d * c.Jitter * (rand.Float64() - 0.5)
	}
	return time.Duration(d)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.Retryable == nil {
		c.Retryable = apperrors.IsRetryable
	}
	return c
}
