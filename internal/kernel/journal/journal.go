// Package journal implements the governance kernel's commit protocol: a
// single-writer critical section that derives current state, validates the
// candidate against business invariants, and durably appends it with bounded
// retry of transient storage contention. Callers receive exactly one of four
// outcomes per append: the committed event, a validation rejection, a
// retry-exhausted failure, or a fatal storage error.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/plenumhq/plenum/internal/kernel/event"
	"github.com/plenumhq/plenum/internal/kernel/projection"
	"github.com/plenumhq/plenum/internal/kernel/retry"
	"github.com/plenumhq/plenum/internal/kernel/state"
	"github.com/plenumhq/plenum/internal/kernel/storage"
	"github.com/plenumhq/plenum/internal/kernel/telemetry"
	"github.com/plenumhq/plenum/internal/kernel/validate"
	"github.com/plenumhq/plenum/internal/platform/id"
)

// Journal owns the shared event log. All appends serialize through it;
// reads go straight to storage and see a consistent prefix of the log.
type Journal struct {
	store  storage.EventStore
	sink   telemetry.Sink
	policy retry.Policy
	clock  func() time.Time
	newID  func() string

	// mu guards the validate-then-append critical section and the cached
	// snapshot. Two candidates validating against the same snapshot and both
	// appending is the central hazard this lock exists for.
	mu       sync.Mutex
	snapshot *state.State
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock overrides the commit timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(j *Journal) {
		if clock != nil {
			j.clock = clock
		}
	}
}

// WithIDSource overrides the event id source.
func WithIDSource(newID func() string) Option {
	return func(j *Journal) {
		if newID != nil {
			j.newID = newID
		}
	}
}

// WithRetryPolicy overrides the contention retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(j *Journal) {
		j.policy = policy
	}
}

// WithSink injects the observability sink.
func WithSink(sink telemetry.Sink) Option {
	return func(j *Journal) {
		if sink != nil {
			j.sink = sink
		}
	}
}

// New creates a journal over the provided event store.
func New(store storage.EventStore, opts ...Option) (*Journal, error) {
	if store == nil {
		return nil, fmt.Errorf("event store is required")
	}
	j := &Journal{
		store:  store,
		sink:   telemetry.NopSink{},
		policy: retry.DefaultPolicy(),
		clock:  time.Now,
		newID:  id.New,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j, nil
}

// Append proposes a candidate event for admission to the log.
//
// On success the returned event carries its assigned id, timestamp, gapless
// sequence position, and integrity hashes, and is immediately visible to
// subsequent reads. On failure nothing is persisted and the error is one of:
// a *validate.Violation, retry.ErrExhausted, or a fatal storage error. A
// candidate whose RequestID matches an already committed event returns that
// stored event without appending.
func (j *Journal) Append(ctx context.Context, candidate event.Event) (event.Event, error) {
	start := time.Now()

	normalized, err := event.NormalizeForAppend(candidate)
	if err != nil {
		violation := &validate.Violation{Kind: validate.KindMalformedPayload, Reason: err.Error()}
		j.observe(ctx, telemetry.OutcomeRejected, start)
		return event.Event{}, violation
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if normalized.RequestID != "" {
		stored, err := j.store.GetEventByRequestID(ctx, normalized.RequestID)
		if err == nil {
			j.observe(ctx, telemetry.OutcomeDuplicate, start)
			return stored, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			j.observe(ctx, telemetry.OutcomeFatal, start)
			return event.Event{}, err
		}
	}

	current, err := j.currentStateLocked(ctx)
	if err != nil {
		j.observe(ctx, telemetry.OutcomeFatal, start)
		return event.Event{}, err
	}

	// Commit timestamps never decrease along the log, regardless of wall
	// clock adjustments between appends.
	now := j.clock().UTC().Truncate(time.Millisecond)
	if now.Before(current.LastTimestamp) {
		now = current.LastTimestamp
	}
	normalized.Timestamp = now

	if violation := validate.Check(normalized, current); violation != nil {
		j.observe(ctx, telemetry.OutcomeRejected, start)
		return event.Event{}, violation
	}

	normalized.ID = j.newID()

	committed, err := retry.Do(ctx, j.policy, storage.IsContention, func() (event.Event, error) {
		return j.store.AppendEvent(ctx, normalized)
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			j.observe(ctx, telemetry.OutcomeRetryExhausted, start)
		} else {
			j.observe(ctx, telemetry.OutcomeFatal, start)
		}
		return event.Event{}, err
	}

	if err := current.Apply(committed); err != nil {
		// The event is durably committed; only the cached snapshot is
		// suspect. Drop it so the next append replays from storage.
		j.snapshot = nil
	}

	j.observe(ctx, telemetry.OutcomeCommitted, start)
	return committed, nil
}

// currentStateLocked returns the cached snapshot advanced to the log head.
// Callers must hold mu; the returned state is the cache itself.
func (j *Journal) currentStateLocked(ctx context.Context) (*state.State, error) {
	if j.snapshot == nil {
		j.snapshot = state.New()
	}
	if _, err := projection.Replay(ctx, j.store, j.snapshot, projection.Options{
		AfterSeq: j.snapshot.LastSeq,
	}); err != nil {
		j.snapshot = nil
		return nil, fmt.Errorf("derive current state: %w", err)
	}
	return j.snapshot, nil
}

// Events returns committed events ordered by sequence, starting after
// afterSeq. Readers never observe partially written events.
func (j *Journal) Events(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	return j.store.ListEvents(ctx, afterSeq, limit)
}

// EventAt returns the committed event at the given sequence position, or
// storage.ErrNotFound when the position is past the log head.
func (j *Journal) EventAt(ctx context.Context, seq uint64) (event.Event, error) {
	return j.store.GetEventBySeq(ctx, seq)
}

// State returns the derived state at the current log head. The result is a
// clone; callers cannot mutate the journal's cache through it.
func (j *Journal) State(ctx context.Context) (*state.State, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	current, err := j.currentStateLocked(ctx)
	if err != nil {
		return nil, err
	}
	return current.Clone(), nil
}

// StateAt rebuilds the derived state from position zero up to and including
// seq; seq zero is the empty fold. It never consults the cached snapshot:
// recomputing from the start of the log must always be possible and always
// agree with any cache.
func (j *Journal) StateAt(ctx context.Context, seq uint64) (*state.State, error) {
	st := state.New()
	if seq == 0 {
		return st, nil
	}
	if _, err := projection.Replay(ctx, j.store, st, projection.Options{UntilSeq: seq}); err != nil {
		return nil, fmt.Errorf("replay to seq %d: %w", seq, err)
	}
	return st, nil
}

// VerifyIntegrity walks the full log checking sequence continuity, content
// hashes, and the chain hash linkage of every committed event, then confirms
// the walk reached the store's reported head.
func (j *Journal) VerifyIntegrity(ctx context.Context) error {
	var lastSeq uint64
	prevChainHash := ""
	for {
		events, err := j.store.ListEvents(ctx, lastSeq, 200)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		if len(events) == 0 {
			head, err := j.store.LatestSeq(ctx)
			if err != nil {
				return fmt.Errorf("get log head: %w", err)
			}
			if head != lastSeq {
				return fmt.Errorf("log head mismatch: walked to seq %d, store reports %d", lastSeq, head)
			}
			return nil
		}
		for _, evt := range events {
			if evt.Seq != lastSeq+1 {
				return fmt.Errorf("event sequence gap: expected %d got %d", lastSeq+1, evt.Seq)
			}
			if evt.Seq == 1 && evt.PrevHash != "" {
				return fmt.Errorf("first event prev hash must be empty")
			}
			if evt.Seq > 1 && evt.PrevHash != prevChainHash {
				return fmt.Errorf("prev hash mismatch at seq %d", evt.Seq)
			}

			hash, err := event.ContentHash(evt)
			if err != nil {
				return fmt.Errorf("compute event hash at seq %d: %w", evt.Seq, err)
			}
			if hash != evt.Hash {
				return fmt.Errorf("event hash mismatch at seq %d", evt.Seq)
			}

			chainHash, err := event.ChainHash(evt, prevChainHash)
			if err != nil {
				return fmt.Errorf("compute chain hash at seq %d: %w", evt.Seq, err)
			}
			if chainHash != evt.ChainHash {
				return fmt.Errorf("chain hash mismatch at seq %d", evt.Seq)
			}

			prevChainHash = evt.ChainHash
			lastSeq = evt.Seq
		}
	}
}

func (j *Journal) observe(ctx context.Context, outcome telemetry.Outcome, start time.Time) {
	j.sink.AppendOutcome(ctx, outcome)
	j.sink.AppendDuration(ctx, outcome, time.Since(start))
}
