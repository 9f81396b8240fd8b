package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// DelegationGranted is the payload for TypeDelegationGranted.
type DelegationGranted struct {
	DelegationID string     `json:"delegation_id"`
	GrantorID    string     `json:"grantor_id"`
	GranteeID    string     `json:"grantee_id"`
	Scope        string     `json:"scope"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// DelegationRevoked is the payload for TypeDelegationRevoked.
type DelegationRevoked struct {
	DelegationID string `json:"delegation_id"`
	Reason       string `json:"reason,omitempty"`
}

// LawEnacted is the payload for TypeLawEnacted.
type LawEnacted struct {
	LawID      string `json:"law_id"`
	Title      string `json:"title"`
	TextDigest string `json:"text_digest"`
}

// LawAmended is the payload for TypeLawAmended.
type LawAmended struct {
	LawID      string `json:"law_id"`
	TextDigest string `json:"text_digest"`
}

// LawRepealed is the payload for TypeLawRepealed.
type LawRepealed struct {
	LawID string `json:"law_id"`
}

// EvidenceFiled is the payload for TypeEvidenceFiled.
type EvidenceFiled struct {
	EvidenceID string `json:"evidence_id"`
	Digest     string `json:"digest"`
	Source     string `json:"source,omitempty"`
}

// ProcurementOpened is the payload for TypeProcurementOpened.
type ProcurementOpened struct {
	ProcurementID string `json:"procurement_id"`
	Subject       string `json:"subject"`
	BudgetCents   int64  `json:"budget_cents"`
}

// ProcurementBidRecorded is the payload for TypeProcurementBidRecorded.
type ProcurementBidRecorded struct {
	ProcurementID string `json:"procurement_id"`
	BidderID      string `json:"bidder_id"`
	AmountCents   int64  `json:"amount_cents"`
}

// ProcurementAwarded is the payload for TypeProcurementAwarded.
type ProcurementAwarded struct {
	ProcurementID string `json:"procurement_id"`
	BidderID      string `json:"bidder_id"`
	EvidenceID    string `json:"evidence_id"`
}

// Decode unmarshals the event payload into target.
func Decode(evt Event, target any) error {
	data := evt.PayloadJSON
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", evt.Type, err)
	}
	return nil
}

// New builds a candidate event for the given type and payload. The entity
// fields tie the event to the governed entity it affects; sequencing, id,
// and hashes remain unset until the journal commits the candidate.
func New(typ Type, entityType, entityID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Event{
		Type:        typ,
		EntityType:  entityType,
		EntityID:    entityID,
		PayloadJSON: data,
	}, nil
}
