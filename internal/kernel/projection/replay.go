// Package projection folds the ordered event log into derived state.
// Replay pages through committed events, detects sequence gaps, and is
// restartable from any position.
package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/plenumhq/plenum/internal/kernel/event"
	"github.com/plenumhq/plenum/internal/kernel/state"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrStateRequired indicates a missing fold target.
	ErrStateRequired = errors.New("state is required")
)

// EventStore lists events for replay.
type EventStore interface {
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)
}

// Options configures replay behavior.
type Options struct {
	// AfterSeq starts the replay after this position; zero replays the full log.
	AfterSeq uint64
	// UntilSeq stops the replay after this position; zero replays to the end.
	UntilSeq uint64
	// PageSize bounds each storage read.
	PageSize int
}

// Result captures replay outcomes.
type Result struct {
	LastSeq uint64
	Applied int
}

// Replay folds events in order into st, starting after Options.AfterSeq.
// The caller is responsible for st matching that position; folding the full
// log into state.New() must always be possible and must agree with any
// cached snapshot at the same position.
func Replay(ctx context.Context, store EventStore, st *state.State, options Options) (Result, error) {
	if store == nil {
		return Result{}, ErrEventStoreRequired
	}
	if st == nil {
		return Result{}, ErrStateRequired
	}

	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result{LastSeq: options.AfterSeq}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		events, err := store.ListEvents(ctx, result.LastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(events) == 0 {
			return result, nil
		}
		for _, evt := range events {
			if options.UntilSeq > 0 && evt.Seq > options.UntilSeq {
				return result, nil
			}
			expectedSeq := result.LastSeq + 1
			if evt.Seq != expectedSeq {
				return result, fmt.Errorf("event sequence gap: expected %d got %d", expectedSeq, evt.Seq)
			}
			if err := st.Apply(evt); err != nil {
				return result, err
			}
			result.LastSeq = evt.Seq
			result.Applied++
		}
	}
}
