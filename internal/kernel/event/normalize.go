package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeForAppend validates and normalizes a candidate before the journal
// assigns commit metadata. Candidates own their sequencing story: fields the
// kernel assigns must arrive empty.
func NormalizeForAppend(evt Event) (Event, error) {
	if evt.Seq != 0 {
		return Event{}, fmt.Errorf("event sequence must be assigned by storage")
	}
	if strings.TrimSpace(evt.ID) != "" {
		return Event{}, fmt.Errorf("event id must be assigned by the journal")
	}
	if strings.TrimSpace(evt.Hash) != "" {
		return Event{}, fmt.Errorf("event hash must be assigned by storage")
	}
	if strings.TrimSpace(evt.PrevHash) != "" || strings.TrimSpace(evt.ChainHash) != "" {
		return Event{}, fmt.Errorf("event chain hashes must be assigned by storage")
	}

	evt.Type = Type(strings.TrimSpace(string(evt.Type)))
	if !evt.Type.IsValid() {
		return Event{}, fmt.Errorf("event type is required")
	}

	evt.ActorID = strings.TrimSpace(evt.ActorID)
	evt.EntityType = strings.TrimSpace(evt.EntityType)
	evt.EntityID = strings.TrimSpace(evt.EntityID)
	if evt.EntityType == "" || evt.EntityID == "" {
		return Event{}, fmt.Errorf("entity type and entity id are required")
	}

	evt.RequestID = strings.TrimSpace(evt.RequestID)
	evt.CorrelationID = strings.TrimSpace(evt.CorrelationID)
	evt.CausationID = strings.TrimSpace(evt.CausationID)

	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = []byte("{}")
	}
	if !json.Valid(evt.PayloadJSON) {
		return Event{}, fmt.Errorf("payload json must be valid JSON")
	}

	return evt, nil
}
