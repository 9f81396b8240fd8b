// Package validate checks candidate events against derived state before the
// journal admits them. Checks are pure functions: same candidate and state,
// same verdict, no mutation of either.
package validate

import (
	"fmt"
	"strings"

	"github.com/plenumhq/plenum/internal/kernel/event"
	"github.com/plenumhq/plenum/internal/kernel/state"
)

// Kind categorizes an invariant violation so callers can present
// actionable rejections.
type Kind string

const (
	// KindUnknownType rejects event types outside the kernel's set.
	KindUnknownType Kind = "unknown-type"
	// KindMalformedPayload rejects undecodable or incomplete payloads.
	KindMalformedPayload Kind = "malformed-payload"
	// KindUnknownReference rejects events referencing entities absent from
	// state. An event cannot precede its own cause.
	KindUnknownReference Kind = "unknown-reference"
	// KindConflict rejects events colliding with an existing entity or a
	// terminal entity status.
	KindConflict Kind = "conflict"
	// KindMissingEvidence rejects decisions that lack required evidence.
	KindMissingEvidence Kind = "missing-evidence"
	// KindTimeBound rejects events violating a time constraint.
	KindTimeBound Kind = "time-bound"
)

// Violation reports why a candidate was rejected.
type Violation struct {
	Kind   Kind
	Reason string
}

// Error implements the error interface.
func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Reason)
}

// Is matches violations by kind so callers can branch with errors.Is.
func (v *Violation) Is(target error) bool {
	t, ok := target.(*Violation)
	return ok && v.Kind == t.Kind
}

func violationf(kind Kind, format string, args ...any) *Violation {
	return &Violation{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Check validates a normalized candidate against the current state. A nil
// return admits the candidate. Check never mutates st.
func Check(candidate event.Event, st *state.State) *Violation {
	if st == nil {
		st = state.New()
	}
	switch candidate.Type {
	case event.TypeDelegationGranted:
		return checkDelegationGranted(candidate, st)
	case event.TypeDelegationRevoked:
		return checkDelegationRevoked(candidate, st)
	case event.TypeLawEnacted:
		return checkLawEnacted(candidate, st)
	case event.TypeLawAmended:
		return checkLawAmended(candidate, st)
	case event.TypeLawRepealed:
		return checkLawRepealed(candidate, st)
	case event.TypeEvidenceFiled:
		return checkEvidenceFiled(candidate, st)
	case event.TypeProcurementOpened:
		return checkProcurementOpened(candidate, st)
	case event.TypeProcurementBidRecorded:
		return checkProcurementBidRecorded(candidate, st)
	case event.TypeProcurementAwarded:
		return checkProcurementAwarded(candidate, st)
	default:
		return violationf(KindUnknownType, "event type %q is not part of the governance set", candidate.Type)
	}
}

func decode[T any](candidate event.Event) (T, *Violation) {
	var payload T
	if err := event.Decode(candidate, &payload); err != nil {
		return payload, violationf(KindMalformedPayload, "%v", err)
	}
	return payload, nil
}

func checkDelegationGranted(candidate event.Event, st *state.State) *Violation {
	payload, violation := decode[event.DelegationGranted](candidate)
	if violation != nil {
		return violation
	}
	if strings.TrimSpace(payload.DelegationID) == "" {
		return violationf(KindMalformedPayload, "delegation id is required")
	}
	if strings.TrimSpace(payload.GrantorID) == "" || strings.TrimSpace(payload.GranteeID) == "" {
		return violationf(KindMalformedPayload, "grantor and grantee are required")
	}
	if existing, ok := st.Delegations[payload.DelegationID]; ok && !existing.Revoked {
		return violationf(KindConflict, "delegation %s is already active", payload.DelegationID)
	}
	if payload.ExpiresAt != nil && !candidate.Timestamp.IsZero() && payload.ExpiresAt.Before(candidate.Timestamp) {
		return violationf(KindTimeBound, "delegation %s expires before it is granted", payload.DelegationID)
	}
	return nil
}

func checkDelegationRevoked(candidate event.Event, st *state.State) *Violation {
	payload, violation := decode[event.DelegationRevoked](candidate)
	if violation != nil {
		return violation
	}
	delegation, ok := st.Delegations[payload.DelegationID]
	if !ok {
		return violationf(KindUnknownReference, "delegation %s does not exist", payload.DelegationID)
	}
	if delegation.Revoked {
		return violationf(KindConflict, "delegation %s is already revoked", payload.DelegationID)
	}
	return nil
}

func checkLawEnacted(candidate event.Event, st *state.State) *Violation {
	payload, violation := decode[event.LawEnacted](candidate)
	if violation != nil {
		return violation
	}
	if strings.TrimSpace(payload.LawID) == "" {
		return violationf(KindMalformedPayload, "law id is required")
	}
	if strings.TrimSpace(payload.TextDigest) == "" {
		return violationf(KindMissingEvidence, "law %s has no text digest", payload.LawID)
	}
	if _, ok := st.Laws[payload.LawID]; ok {
		return violationf(KindConflict, "law %s is already enacted", payload.LawID)
	}
	return nil
}

func checkLawAmended(candidate event.Event, st *state.State) *Violation {
	payload, violation := decode[event.LawAmended](candidate)
	if violation != nil {
		return violation
	}
	law, ok := st.Laws[payload.LawID]
	if !ok {
		return violationf(KindUnknownReference, "law %s does not exist", payload.LawID)
	}
	if law.Repealed {
		return violationf(KindConflict, "law %s is repealed", payload.LawID)
	}
	if strings.TrimSpace(payload.TextDigest) == "" {
		return violationf(KindMissingEvidence, "amendment to law %s has no text digest", payload.LawID)
	}
	return nil
}

func checkLawRepealed(candidate event.Event, st *state.State) *Violation {
	payload, violation := decode[event.LawRepealed](candidate)
	if violation != nil {
		return violation
	}
	law, ok := st.Laws[payload.LawID]
	if !ok {
		return violationf(KindUnknownReference, "law %s does not exist", payload.LawID)
	}
	if law.Repealed {
		return violationf(KindConflict, "law %s is already repealed", payload.LawID)
	}
	return nil
}

func checkEvidenceFiled(candidate event.Event, st *state.State) *Violation {
	payload, violation := decode[event.EvidenceFiled](candidate)
	if violation != nil {
		return violation
	}
	if strings.TrimSpace(payload.EvidenceID) == "" {
		return violationf(KindMalformedPayload, "evidence id is required")
	}
	if strings.TrimSpace(payload.Digest) == "" {
		return violationf(KindMalformedPayload, "evidence digest is required")
	}
	if _, ok := st.Evidence[payload.EvidenceID]; ok {
		return violationf(KindConflict, "evidence %s is already filed", payload.EvidenceID)
	}
	return nil
}

func checkProcurementOpened(candidate event.Event, st *state.State) *Violation {
	payload, violation := decode[event.ProcurementOpened](candidate)
	if violation != nil {
		return violation
	}
	if strings.TrimSpace(payload.ProcurementID) == "" {
		return violationf(KindMalformedPayload, "procurement id is required")
	}
	if payload.BudgetCents <= 0 {
		return violationf(KindMalformedPayload, "procurement %s budget must be positive", payload.ProcurementID)
	}
	if _, ok := st.Procurements[payload.ProcurementID]; ok {
		return violationf(KindConflict, "procurement %s is already open", payload.ProcurementID)
	}
	return nil
}

func checkProcurementBidRecorded(candidate event.Event, st *state.State) *Violation {
	payload, violation := decode[event.ProcurementBidRecorded](candidate)
	if violation != nil {
		return violation
	}
	procurement, ok := st.Procurements[payload.ProcurementID]
	if !ok {
		return violationf(KindUnknownReference, "procurement %s does not exist", payload.ProcurementID)
	}
	if procurement.Status != state.ProcurementOpen {
		return violationf(KindConflict, "procurement %s is not open for bids", payload.ProcurementID)
	}
	if strings.TrimSpace(payload.BidderID) == "" {
		return violationf(KindMalformedPayload, "bidder id is required")
	}
	if payload.AmountCents <= 0 {
		return violationf(KindMalformedPayload, "bid amount must be positive")
	}
	return nil
}

func checkProcurementAwarded(candidate event.Event, st *state.State) *Violation {
	payload, violation := decode[event.ProcurementAwarded](candidate)
	if violation != nil {
		return violation
	}
	procurement, ok := st.Procurements[payload.ProcurementID]
	if !ok {
		return violationf(KindUnknownReference, "procurement %s does not exist", payload.ProcurementID)
	}
	if procurement.Status == state.ProcurementAwarded {
		return violationf(KindConflict, "procurement %s is already awarded", payload.ProcurementID)
	}
	if _, ok := procurement.Bids[payload.BidderID]; !ok {
		return violationf(KindUnknownReference, "bidder %s has no recorded bid on procurement %s", payload.BidderID, payload.ProcurementID)
	}
	if strings.TrimSpace(payload.EvidenceID) == "" {
		return violationf(KindMissingEvidence, "award on procurement %s requires selection evidence", payload.ProcurementID)
	}
	if _, ok := st.Evidence[payload.EvidenceID]; !ok {
		return violationf(KindMissingEvidence, "evidence %s is not on file", payload.EvidenceID)
	}
	return nil
}
