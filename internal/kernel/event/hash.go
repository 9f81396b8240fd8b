package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// contentEnvelope fixes the field set and order that the content hash covers.
// Seq and the chain fields are deliberately excluded: the content hash is the
// identity of the fact itself, so a retried persistence attempt of the same
// prepared candidate produces the same hash regardless of which position the
// attempt would have claimed.
type contentEnvelope struct {
	ID            string          `json:"id"`
	Timestamp     int64           `json:"timestamp"`
	Type          string          `json:"type"`
	ActorID       string          `json:"actor_id"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	RequestID     string          `json:"request_id"`
	CorrelationID string          `json:"correlation_id"`
	CausationID   string          `json:"causation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// chainEnvelope fixes the fields the chain hash covers. Position and the
// predecessor's chain hash enter here, so moving or reordering a committed
// event breaks the chain.
type chainEnvelope struct {
	PrevHash  string `json:"prev_hash"`
	Seq       uint64 `json:"seq"`
	EventHash string `json:"event_hash"`
}

// ContentHash computes the content-addressed identity of an event:
// SHA-256 over the canonical envelope, truncated to 128 bits (32 hex chars).
func ContentHash(evt Event) (string, error) {
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	envelope := contentEnvelope{
		ID:            evt.ID,
		Timestamp:     evt.Timestamp.UTC().UnixMilli(),
		Type:          string(evt.Type),
		ActorID:       evt.ActorID,
		EntityType:    evt.EntityType,
		EntityID:      evt.EntityID,
		RequestID:     evt.RequestID,
		CorrelationID: evt.CorrelationID,
		CausationID:   evt.CausationID,
		Payload:       payload,
	}
	return hashEnvelope(envelope)
}

// ChainHash computes the hash linking an event to its predecessor.
// prevHash is empty for the first event in the log.
func ChainHash(evt Event, prevHash string) (string, error) {
	if evt.Hash == "" {
		return "", fmt.Errorf("event content hash is required for chain hash")
	}
	return hashEnvelope(chainEnvelope{
		PrevHash:  prevHash,
		Seq:       evt.Seq,
		EventHash: evt.Hash,
	})
}

func hashEnvelope(envelope any) (string, error) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encode hash envelope: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}
