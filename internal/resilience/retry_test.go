package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/saleskit-io/meetbot/internal/errors"
)

func TestRetrySucceedsFirst(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return apperrors.New(apperrors.CodeGateway, "transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}
	calls := 0
	retryErr := apperrors.New(apperrors.CodeJoinFailed, "always fail")

	err := Retry(context.Background(), cfg, func() error {
		calls++
		return retryErr
	})

	if !errors.Is(err, retryErr) {
		t.Errorf("Retry() = %v, want %v", err, retryErr)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts", calls)
	}
}

func TestRetryNonRetryableError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, Delay: time.Millisecond}
	calls := 0
	fatalErr := apperrors.New(apperrors.CodeConfigInvalid, "bad config")

	err := Retry(context.Background(), cfg, func() error {
		calls++
		return fatalErr
	})

	if !errors.Is(err, fatalErr) {
		t.Errorf("Retry() = %v, want %v", err, fatalErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for a non-retryable error", calls)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 10, Delay: 100 * time.Millisecond}
	calls := 0

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, func() error {
		calls++
		return apperrors.New(apperrors.CodeGateway, "fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
	if calls == 0 {
		t.Error("fn should run before cancellation lands")
	}
}

func TestRetryReportsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}
	var reported []int
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		reported = append(reported, attempt)
	}

	_ = Retry(context.Background(), cfg, func() error {
		return apperrors.New(apperrors.CodeGateway, "fail")
	})

	// The final attempt fails without a retry after it.
	if len(reported) != 2 || reported[0] != 1 || reported[1] != 2 {
		t.Errorf("reported attempts = %v, want [1 2]", reported)
	}
}

func TestDelayForFixed(t *testing.T) {
	cfg := RetryConfig{Delay: 5 * time.Second}

	for attempt := 1; attempt <= 3; attempt++ {
		if d := cfg.delayFor(attempt); d != 5*time.Second {
			t.Errorf("attempt %d delay = %v, want fixed 5s", attempt, d)
		}
	}
}

func TestDelayForBackoff(t *testing.T) {
	cfg := RetryConfig{Delay: 100 * time.Millisecond, Backoff: 2, MaxDelay: time.Second}

	if d := cfg.delayFor(1); d != 100*time.Millisecond {
		t.Errorf("attempt 1 delay = %v, want 100ms", d)
	}
	if d := cfg.delayFor(2); d != 200*time.Millisecond {
		t.Errorf("attempt 2 delay = %v, want 200ms", d)
	}
	if d := cfg.delayFor(3); d != 400*time.Millisecond {
		t.Errorf("attempt 3 delay = %v, want 400ms", d)
	}
}

func TestDelayForCapped(t *testing.T) {
	cfg := RetryConfig{Delay: 100 * time.Millisecond, Backoff: 2, MaxDelay: 300 * time.Millisecond}

	if d := cfg.delayFor(6); d != 300*time.Millisecond {
		t.Errorf("attempt 6 delay = %v, want the 300ms cap", d)
	}
}

func TestDefaultRetryableFollowsErrorCodes(t *testing.T) {
	cfg := RetryConfig{}.withDefaults()

	if !cfg.Retryable(apperrors.New(apperrors.CodeGateway, "flaky")) {
		t.Error("gateway errors should retry")
	}
	if !cfg.Retryable(apperrors.New(apperrors.CodeTimeout, "slow")) {
		t.Error("timeouts should retry")
	}
	if cfg.Retryable(apperrors.New(apperrors.CodeConfigInvalid, "bad")) {
		t.Error("config errors should not retry")
	}
}
