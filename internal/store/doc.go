// Package store persists the replication journal in SQLite.
//
// The journal is the authority's durable record of everything it sent:
// replicated deltas and key lifecycle signals, keyed by a session
// token. Records are content-addressed (domain-separated SHA-256 over
// canonical JSON), which makes every write idempotent and lets two
// peers agree on record identity without coordination.
//
// ReplaySession rebuilds a client's authoritative mirror and effective
// view from the journal alone, which is both the crash-recovery path
// and the offline debugging path (see the replay CLI command).
package store
