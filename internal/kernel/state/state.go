package state

import (
	"fmt"
	"time"

	"github.com/plenumhq/plenum/internal/kernel/event"
)

// Delegation is the derived record of a granted delegation.
type Delegation struct {
	ID        string
	GrantorID string
	GranteeID string
	Scope     string
	ExpiresAt *time.Time
	Revoked   bool
}

// Law is the derived record of an enacted law.
type Law struct {
	ID         string
	Title      string
	TextDigest string
	Revision   int
	Repealed   bool
}

// Evidence is the derived record of filed evidence.
type Evidence struct {
	ID     string
	Digest string
	Source string
}

// Procurement status values.
const (
	ProcurementOpen    = "open"
	ProcurementAwarded = "awarded"
)

// Procurement is the derived record of a procurement process.
type Procurement struct {
	ID          string
	Subject     string
	BudgetCents int64
	Status      string
	// Bids maps bidder id to the bid amount in cents.
	Bids      map[string]int64
	AwardedTo string
}

// State is the fold of the event log up to LastSeq. It is rebuildable from
// the log alone and never a source of truth on its own.
type State struct {
	LastSeq       uint64
	LastTimestamp time.Time

	Delegations  map[string]Delegation
	Laws         map[string]Law
	Evidence     map[string]Evidence
	Procurements map[string]Procurement
}

// New returns the empty state, the fold of the empty log.
func New() *State {
	return &State{
		Delegations:  make(map[string]Delegation),
		Laws:         make(map[string]Law),
		Evidence:     make(map[string]Evidence),
		Procurements: make(map[string]Procurement),
	}
}

// Clone returns a deep copy so callers can hold state without aliasing the
// journal's cached snapshot.
func (s *State) Clone() *State {
	if s == nil {
		return New()
	}
	clone := &State{
		LastSeq:       s.LastSeq,
		LastTimestamp: s.LastTimestamp,
		Delegations:   make(map[string]Delegation, len(s.Delegations)),
		Laws:          make(map[string]Law, len(s.Laws)),
		Evidence:      make(map[string]Evidence, len(s.Evidence)),
		Procurements:  make(map[string]Procurement, len(s.Procurements)),
	}
	for id, delegation := range s.Delegations {
		clone.Delegations[id] = delegation
	}
	for id, law := range s.Laws {
		clone.Laws[id] = law
	}
	for id, evidence := range s.Evidence {
		clone.Evidence[id] = evidence
	}
	for id, procurement := range s.Procurements {
		bids := make(map[string]int64, len(procurement.Bids))
		for bidder, amount := range procurement.Bids {
			bids[bidder] = amount
		}
		procurement.Bids = bids
		clone.Procurements[id] = procurement
	}
	return clone
}

// Apply folds one committed event into the state. It is deterministic and
// total over the known event set; an unknown type or undecodable payload in
// a committed event means the log was written by a foreign build and is
// surfaced as an error rather than silently skipped.
func (s *State) Apply(evt event.Event) error {
	switch evt.Type {
	case event.TypeDelegationGranted:
		var payload event.DelegationGranted
		if err := event.Decode(evt, &payload); err != nil {
			return err
		}
		s.Delegations[payload.DelegationID] = Delegation{
			ID:        payload.DelegationID,
			GrantorID: payload.GrantorID,
			GranteeID: payload.GranteeID,
			Scope:     payload.Scope,
			ExpiresAt: payload.ExpiresAt,
		}

	case event.TypeDelegationRevoked:
		var payload event.DelegationRevoked
		if err := event.Decode(evt, &payload); err != nil {
			return err
		}
		delegation := s.Delegations[payload.DelegationID]
		delegation.Revoked = true
		s.Delegations[payload.DelegationID] = delegation

	case event.TypeLawEnacted:
		var payload event.LawEnacted
		if err := event.Decode(evt, &payload); err != nil {
			return err
		}
		s.Laws[payload.LawID] = Law{
			ID:         payload.LawID,
			Title:      payload.Title,
			TextDigest: payload.TextDigest,
			Revision:   1,
		}

	case event.TypeLawAmended:
		var payload event.LawAmended
		if err := event.Decode(evt, &payload); err != nil {
			return err
		}
		law := s.Laws[payload.LawID]
		law.TextDigest = payload.TextDigest
		law.Revision++
		s.Laws[payload.LawID] = law

	case event.TypeLawRepealed:
		var payload event.LawRepealed
		if err := event.Decode(evt, &payload); err != nil {
			return err
		}
		law := s.Laws[payload.LawID]
		law.Repealed = true
		s.Laws[payload.LawID] = law

	case event.TypeEvidenceFiled:
		var payload event.EvidenceFiled
		if err := event.Decode(evt, &payload); err != nil {
			return err
		}
		s.Evidence[payload.EvidenceID] = Evidence{
			ID:     payload.EvidenceID,
			Digest: payload.Digest,
			Source: payload.Source,
		}

	case event.TypeProcurementOpened:
		var payload event.ProcurementOpened
		if err := event.Decode(evt, &payload); err != nil {
			return err
		}
		s.Procurements[payload.ProcurementID] = Procurement{
			ID:          payload.ProcurementID,
			Subject:     payload.Subject,
			BudgetCents: payload.BudgetCents,
			Status:      ProcurementOpen,
			Bids:        make(map[string]int64),
		}

	case event.TypeProcurementBidRecorded:
		var payload event.ProcurementBidRecorded
		if err := event.Decode(evt, &payload); err != nil {
			return err
		}
		procurement := s.Procurements[payload.ProcurementID]
		if procurement.Bids == nil {
			procurement.Bids = make(map[string]int64)
		}
		procurement.Bids[payload.BidderID] = payload.AmountCents
		s.Procurements[payload.ProcurementID] = procurement

	case event.TypeProcurementAwarded:
		var payload event.ProcurementAwarded
		if err := event.Decode(evt, &payload); err != nil {
			return err
		}
		procurement := s.Procurements[payload.ProcurementID]
		procurement.Status = ProcurementAwarded
		procurement.AwardedTo = payload.BidderID
		s.Procurements[payload.ProcurementID] = procurement

	default:
		return fmt.Errorf("unknown event type %q at seq %d", evt.Type, evt.Seq)
	}

	s.LastSeq = evt.Seq
	if evt.Timestamp.After(s.LastTimestamp) {
		s.LastTimestamp = evt.Timestamp
	}
	return nil
}
