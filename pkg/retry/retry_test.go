package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

func testConfig(maxAttempts int, retryable ...error) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     maxAttempts,
		BackoffStrategy: &ConstantBackoff{Interval: time.Millisecond},
		Logger:          logger.NopLogger{},
		RetryableErrors: retryable,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return apperrors.ErrTemporaryFailure
		}
		return nil
	}, testConfig(5))

	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return apperrors.ErrTemporaryFailure
	}, testConfig(3))

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}

	if !errors.Is(err, apperrors.ErrTemporaryFailure) {
		t.Errorf("final error should wrap the last failure, got %v", err)
	}

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	permanent := apperrors.NewValidationError("bad input")

	err := Retry(context.Background(), func() error {
		calls++
		return permanent
	}, testConfig(5, apperrors.ErrTimeout, apperrors.ErrTemporaryFailure))

	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected the validation error back, got %v", err)
	}

	if calls != 1 {
		t.Errorf("non-retryable error should stop after one call, got %d", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, func() error {
		return apperrors.ErrTemporaryFailure
	}, testConfig(5))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context cancellation, got %v", err)
	}
}

func TestExponentialBackoffGrowth(t *testing.T) {
	b := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
	}

	if got := b.NextBackoff(1); got != 100*time.Millisecond {
		t.Errorf("attempt 1 backoff = %v, want 100ms", got)
	}

	if got := b.NextBackoff(2); got != 200*time.Millisecond {
		t.Errorf("attempt 2 backoff = %v, want 200ms", got)
	}

	// Capped at MaxInterval
	if got := b.NextBackoff(10); got != time.Second {
		t.Errorf("attempt 10 backoff = %v, want 1s", got)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	b := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Minute,
		Multiplier:      2,
		JitterFactor:    0.5,
	}

	for i := 0; i < 50; i++ {
		got := b.NextBackoff(1)

		if got < 100*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("jittered backoff %v outside [100ms, 150ms]", got)
		}
	}
}
