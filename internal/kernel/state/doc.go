// Package state holds the derived governance state and the deterministic
// fold that produces it from the event log. Replaying the same log always
// yields the same state; cached snapshots are an optimization, never truth.
package state
