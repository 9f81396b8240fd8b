// Package telemetry defines the observability sink the journal reports to.
// The sink is dependency-injected and fire-and-forget: it never gates a
// commit result.
package telemetry

import (
	"context"
	"time"
)

// Outcome tags one append attempt's result.
type Outcome string

const (
	OutcomeCommitted      Outcome = "committed"
	OutcomeRejected       Outcome = "rejected"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeRetryExhausted Outcome = "retry_exhausted"
	OutcomeFatal          Outcome = "fatal"
)

// Sink receives journal observability signals.
type Sink interface {
	// AppendOutcome counts one append attempt by outcome.
	AppendOutcome(ctx context.Context, outcome Outcome)
	// AppendDuration records the commit-path duration for one attempt.
	AppendDuration(ctx context.Context, outcome Outcome, d time.Duration)
}

// NopSink discards all signals. It is the default when no sink is injected.
type NopSink struct{}

func (NopSink) AppendOutcome(context.Context, Outcome)                 {}
func (NopSink) AppendDuration(context.Context, Outcome, time.Duration) {}
