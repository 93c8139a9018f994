package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	ctx := context.Background()
	err := Do(ctx, operation)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	ctx := context.Background()
	err := Do(ctx, operation, WithInitialDelay(10*time.Millisecond))

	if err != nil {
		t.Errorf("Expected no error after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestDo_AttemptBudgetExact(t *testing.T) {
	t.Parallel()
	attempts := 0
	operation := func() error {
		attempts++
		return errors.New("persistent error")
	}

	ctx := context.Background()
	err := Do(ctx, operation,
		WithMaxAttempts(4),
		WithInitialDelay(10*time.Millisecond))

	if err == nil {
		t.Error("Expected error after attempt budget, got nil")
	}
	// MaxAttempts counts total invocations, no more, no fewer.
	if attempts != 4 {
		t.Errorf("Expected exactly 4 attempts, got: %d", attempts)
	}
}

func TestDo_FixedBackoff(t *testing.T) {
	t.Parallel()
	attempts := 0
	start := time.Now()
	operation := func() error {
		attempts++
		return errors.New("persistent error")
	}

	ctx := context.Background()
	_ = Do(ctx, operation,
		WithMaxAttempts(3),
		WithInitialDelay(10*time.Millisecond),
		WithMultiplier(1.0))

	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
	// Two fixed delays of 10ms between three attempts.
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected at least 20ms elapsed, got: %v", elapsed)
	}
}

func TestDo_FatalNotRetried(t *testing.T) {
	t.Parallel()
	attempts := 0
	operation := func() error {
		attempts++
		return Fatal(errors.New("broken"))
	}

	ctx := context.Background()
	err := Do(ctx, operation, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for fatal error, got: %d", attempts)
	}
	if !IsFatal(err) {
		t.Error("Expected wrapped error to remain fatal")
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()
	attempts := 0
	operation := func() error {
		attempts++
		return errors.New("temporary error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, operation, WithInitialDelay(time.Second))

	if err == nil {
		t.Error("Expected context cancellation error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got: %d", attempts)
	}
}

func TestFatal_NilPassthrough(t *testing.T) {
	t.Parallel()
	if Fatal(nil) != nil {
		t.Error("Fatal(nil) should return nil")
	}
	if IsFatal(errors.New("plain")) {
		t.Error("plain error should not be fatal")
	}
}
