package event

import (
	"strings"
	"time"
)

// Type identifies the kind of a governance event.
type Type string

// Delegation events.
const (
	// TypeDelegationGranted records a grantor delegating authority to a grantee.
	TypeDelegationGranted Type = "delegation.granted"
	// TypeDelegationRevoked records the revocation of an existing delegation.
	TypeDelegationRevoked Type = "delegation.revoked"
)

// Law events.
const (
	// TypeLawEnacted records the enactment of a law.
	TypeLawEnacted Type = "law.enacted"
	// TypeLawAmended records a revision to an enacted law.
	TypeLawAmended Type = "law.amended"
	// TypeLawRepealed records the repeal of an enacted law.
	TypeLawRepealed Type = "law.repealed"
)

// Evidence events.
const (
	// TypeEvidenceFiled records a piece of evidence entering the record.
	TypeEvidenceFiled Type = "evidence.filed"
)

// Procurement events.
const (
	// TypeProcurementOpened records the opening of a procurement process.
	TypeProcurementOpened Type = "procurement.opened"
	// TypeProcurementBidRecorded records a bid against an open procurement.
	TypeProcurementBidRecorded Type = "procurement.bid_recorded"
	// TypeProcurementAwarded records the award of an open procurement.
	TypeProcurementAwarded Type = "procurement.awarded"
)

// Known returns every event type the kernel understands, in a stable order.
func Known() []Type {
	return []Type{
		TypeDelegationGranted,
		TypeDelegationRevoked,
		TypeLawEnacted,
		TypeLawAmended,
		TypeLawRepealed,
		TypeEvidenceFiled,
		TypeProcurementOpened,
		TypeProcurementBidRecorded,
		TypeProcurementAwarded,
	}
}

// IsKnown reports whether the type belongs to the kernel's event set.
func (t Type) IsKnown() bool {
	for _, known := range Known() {
		if t == known {
			return true
		}
	}
	return false
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "delegation", "law").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

// Event represents an immutable entry in the governance journal.
type Event struct {
	// ID is the unique event identifier. Assigned by the journal on commit.
	ID string
	// Seq is the event sequence position in the log (starts at 1).
	// Assigned by storage on append; the sole physical ordering key.
	Seq uint64
	// Hash is the content-addressed identity (SHA-256 truncated to 128-bit).
	// Assigned by storage on append.
	Hash string
	// PrevHash is the chain hash of the preceding event (empty for seq 1).
	PrevHash string
	// ChainHash links this event to its predecessor for tamper evidence.
	ChainHash string
	// Timestamp is when the event was committed. Non-decreasing across the log.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// ActorID identifies who proposed the event (empty for system events).
	ActorID string
	// EntityType is the type of entity affected (delegation, law, ...).
	EntityType string
	// EntityID is the ID of the entity affected.
	EntityID string
	// RequestID is an optional caller idempotency key. Appends that repeat a
	// committed request id return the stored event instead of appending.
	RequestID string
	// CorrelationID groups events belonging to one governance process.
	CorrelationID string
	// CausationID references the event that caused this one.
	CausationID string
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}
