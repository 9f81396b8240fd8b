// Package storage defines the persistence contract for the governance
// journal and the error classes adapters must surface: missing records,
// transient contention, and everything else (fatal).
package storage

import (
	"context"
	"errors"

	"github.com/plenumhq/plenum/internal/kernel/event"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrContention indicates a transient failure to acquire the log for a
// write. Callers may retry; everything else is fatal and must not be.
var ErrContention = errors.New("storage contention")

// IsContention reports whether err is a transient contention failure.
func IsContention(err error) bool {
	return errors.Is(err, ErrContention)
}

// EventStore persists the append-only, strictly ordered event log.
//
// AppendEvent receives a prepared candidate (id, timestamp, type set; seq
// and hashes unset), assigns the next gapless sequence position plus content
// and chain hashes inside one atomic transaction, and returns the stored
// event. Re-appending an already committed candidate (same content hash)
// returns the stored row, keeping retried persistence attempts at-most-once.
type EventStore interface {
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)
	GetEventBySeq(ctx context.Context, seq uint64) (event.Event, error)
	GetEventByRequestID(ctx context.Context, requestID string) (event.Event, error)
	LatestSeq(ctx context.Context) (uint64, error)
}
