// Package retry wraps single atomic operations with a bounded
// exponential-backoff policy. Only errors the caller classifies as transient
// are retried; fatal errors pass through unchanged on the first attempt, and
// an exhausted budget surfaces ErrExhausted so higher layers can distinguish
// "retry later" from "do not retry".
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrExhausted indicates the operation kept failing transiently past the
// retry budget. It wraps the last transient error.
var ErrExhausted = errors.New("retry budget exhausted")

// TransientFunc classifies an error as retryable.
type TransientFunc func(error) bool

// Policy bounds retry behavior for one wrapped operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, first call included.
	MaxAttempts uint
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// Multiplier grows the delay after each attempt.
	Multiplier float64
	// MaxDelay caps the per-attempt delay.
	MaxDelay time.Duration
	// MaxElapsed caps the total time spent retrying; zero means no cap.
	MaxElapsed time.Duration
}

// DefaultPolicy bounds contention retries to a small single-digit budget.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    500 * time.Millisecond,
		MaxElapsed:  5 * time.Second,
	}
}

func (p Policy) normalized() Policy {
	defaults := DefaultPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	if p.Multiplier <= 1 {
		p.Multiplier = defaults.Multiplier
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaults.MaxDelay
	}
	return p
}

// Do runs op under the policy, retrying only errors transient reports as
// retryable. Do wraps exactly one atomic operation; it never re-runs a
// multi-step sequence.
func Do[T any](ctx context.Context, policy Policy, transient TransientFunc, op func() (T, error)) (T, error) {
	var zero T
	if op == nil {
		return zero, fmt.Errorf("retry operation is required")
	}
	if transient == nil {
		transient = func(error) bool { return false }
	}
	policy = policy.normalized()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = policy.BaseDelay
	expo.Multiplier = policy.Multiplier
	expo.MaxInterval = policy.MaxDelay

	attempts := 0
	operation := func() (T, error) {
		attempts++
		value, err := op()
		if err == nil {
			return value, nil
		}
		if transient(err) {
			return zero, err
		}
		return zero, backoff.Permanent(err)
	}

	options := []backoff.RetryOption{
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(policy.MaxAttempts),
	}
	if policy.MaxElapsed > 0 {
		options = append(options, backoff.WithMaxElapsedTime(policy.MaxElapsed))
	}

	value, err := backoff.Retry(ctx, operation, options...)
	if err == nil {
		return value, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return zero, permanent.Unwrap()
	}
	if transient(err) {
		return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
	}
	return zero, err
}
