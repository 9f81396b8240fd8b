// Package event defines the immutable governance event envelope, the known
// event type set and payloads, candidate normalization, and the content and
// chain hashing that give committed events a tamper-evident identity.
package event
