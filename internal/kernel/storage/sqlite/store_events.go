package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/plenumhq/plenum/internal/kernel/event"
	"github.com/plenumhq/plenum/internal/kernel/storage"
)

const eventColumns = "seq, id, event_hash, prev_event_hash, chain_hash, timestamp, event_type, actor_id, entity_type, entity_id, request_id, correlation_id, causation_id, payload_json"

// AppendEvent atomically appends a prepared candidate and returns it with
// sequence and hashes assigned. Transient lock failures surface as
// storage.ErrContention; re-appending an already committed candidate (same
// content hash) returns the stored row so retried persistence attempts stay
// at-most-once.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.ID) == "" {
		return event.Event{}, fmt.Errorf("event id is required")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	hash, err := event.ContentHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		if isBusyError(err) {
			return event.Event{}, fmt.Errorf("begin tx: %w: %v", storage.ErrContention, err)
		}
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO event_seq (id, next_seq) VALUES (1, 1)",
	); err != nil {
		return event.Event{}, classifyAppendError("init event seq", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT next_seq FROM event_seq WHERE id = 1",
	).Scan(&seq); err != nil {
		return event.Event{}, classifyAppendError("get event seq", err)
	}
	evt.Seq = uint64(seq)

	prevHash := ""
	if evt.Seq > 1 {
		if err := tx.QueryRowContext(ctx,
			"SELECT chain_hash FROM events WHERE seq = ?", seq-1,
		).Scan(&prevHash); err != nil {
			return event.Event{}, classifyAppendError("load previous event", err)
		}
	}

	chainHash, err := event.ChainHash(evt, prevHash)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute chain hash: %w", err)
	}
	evt.PrevHash = prevHash
	evt.ChainHash = chainHash

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (
		    seq, id, event_hash, prev_event_hash, chain_hash, timestamp, event_type,
		    actor_id, entity_type, entity_id, request_id, correlation_id, causation_id, payload_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(evt.Seq),
		evt.ID,
		evt.Hash,
		evt.PrevHash,
		evt.ChainHash,
		toMillis(evt.Timestamp),
		string(evt.Type),
		evt.ActorID,
		evt.EntityType,
		evt.EntityID,
		evt.RequestID,
		evt.CorrelationID,
		evt.CausationID,
		evt.PayloadJSON,
	); err != nil {
		if isConstraintError(err) {
			stored, lookupErr := s.GetEventByHash(ctx, evt.Hash)
			if lookupErr == nil {
				return stored, nil
			}
		}
		return event.Event{}, classifyAppendError("append event", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE event_seq SET next_seq = ? WHERE id = 1", seq+1,
	); err != nil {
		return event.Event{}, classifyAppendError("increment event seq", err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, classifyAppendError("commit", err)
	}

	return evt, nil
}

func classifyAppendError(op string, err error) error {
	if isBusyError(err) {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrContention, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ListEvents returns committed events ordered by sequence ascending,
// starting after afterSeq.
func (s *Store) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE seq > ? ORDER BY seq ASC LIMIT ?",
		int64(afterSeq), int64(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, limit)
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetEventBySeq retrieves a specific event by sequence position.
func (s *Store) GetEventBySeq(ctx context.Context, seq uint64) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE seq = ?", int64(seq),
	)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, storage.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("get event by seq: %w", err)
	}
	return evt, nil
}

// GetEventByHash retrieves an event by its content hash.
func (s *Store) GetEventByHash(ctx context.Context, hash string) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(hash) == "" {
		return event.Event{}, fmt.Errorf("event hash is required")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE event_hash = ?", hash,
	)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, storage.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("get event by hash: %w", err)
	}
	return evt, nil
}

// GetEventByRequestID retrieves the event committed for a caller idempotency key.
func (s *Store) GetEventByRequestID(ctx context.Context, requestID string) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(requestID) == "" {
		return event.Event{}, fmt.Errorf("request id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE request_id = ?", requestID,
	)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, storage.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("get event by request id: %w", err)
	}
	return evt, nil
}

// LatestSeq returns the latest committed sequence position, zero for an
// empty log.
func (s *Store) LatestSeq(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var seq int64
	if err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM events",
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("get latest seq: %w", err)
	}
	return uint64(seq), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		seq       int64
		timestamp int64
		eventType string
		evt       event.Event
	)
	if err := row.Scan(
		&seq,
		&evt.ID,
		&evt.Hash,
		&evt.PrevHash,
		&evt.ChainHash,
		&timestamp,
		&eventType,
		&evt.ActorID,
		&evt.EntityType,
		&evt.EntityID,
		&evt.RequestID,
		&evt.CorrelationID,
		&evt.CausationID,
		&evt.PayloadJSON,
	); err != nil {
		return event.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = event.Type(eventType)
	return evt, nil
}
