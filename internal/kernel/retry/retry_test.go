package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBusy = errors.New("store busy")

func fastPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
	}
}

func isBusy(err error) bool { return errors.Is(err, errBusy) }

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	value, err := Do(context.Background(), fastPolicy(), isBusy, func() (string, error) {
		attempts++
		return "committed", nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if value != "committed" || attempts != 1 {
		t.Fatalf("expected one committed attempt, got %q after %d attempts", value, attempts)
	}
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	value, err := Do(context.Background(), fastPolicy(), isBusy, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errBusy
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if value != 42 {
		t.Fatalf("expected 42, got %d", value)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastPolicy(), isBusy, func() (int, error) {
		attempts++
		return 0, errBusy
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, errBusy) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
	if attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", attempts)
	}
}

func TestDoFatalErrorStopsImmediately(t *testing.T) {
	fatal := errors.New("constraint violated")
	attempts := 0
	_, err := Do(context.Background(), fastPolicy(), isBusy, func() (int, error) {
		attempts++
		return 0, fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error back, got %v", err)
	}
	if errors.Is(err, ErrExhausted) {
		t.Fatalf("fatal error must not read as exhaustion: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := Do(ctx, fastPolicy(), isBusy, func() (int, error) {
		attempts++
		cancel()
		return 0, errBusy
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if errors.Is(err, ErrExhausted) {
		t.Fatalf("cancellation must not read as exhaustion: %v", err)
	}
	if attempts > 2 {
		t.Fatalf("expected retries to stop on cancellation, got %d attempts", attempts)
	}
}

func TestDoRequiresOperation(t *testing.T) {
	if _, err := Do[int](context.Background(), fastPolicy(), isBusy, nil); err == nil {
		t.Fatal("expected error for missing operation")
	}
}

func TestDoNilClassifierTreatsErrorsAsFatal(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastPolicy(), nil, func() (int, error) {
		attempts++
		return 0, errBusy
	})
	if !errors.Is(err, errBusy) {
		t.Fatalf("expected error back, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestPolicyNormalizedFillsDefaults(t *testing.T) {
	normalized := Policy{}.normalized()
	defaults := DefaultPolicy()
	if normalized.MaxAttempts != defaults.MaxAttempts {
		t.Fatalf("expected default attempts %d, got %d", defaults.MaxAttempts, normalized.MaxAttempts)
	}
	if normalized.BaseDelay != defaults.BaseDelay || normalized.MaxDelay != defaults.MaxDelay {
		t.Fatalf("expected default delays, got %+v", normalized)
	}
}
