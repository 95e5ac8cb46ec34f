// Package engine implements the Specular prediction and reconciliation
// core.
//
// The engine lets a non-authoritative peer show a speculative result for
// a container mutation immediately, and guarantees the authoritative
// peer's state wins once known - silently when the prediction was right,
// with a clean rollback when it was not.
//
// ARCHITECTURE:
//
// Two independently-mutated stores per container instance:
//   - the authoritative store, owned by the container's Adapter and
//     mutated only by the peer holding authority
//   - the overlay store, holding at most one speculative record per
//     identity, mutated only by the owning client peer
//
// The effective view is composed on demand from both stores; it is never
// stored and never incrementally maintained. Correctness, not
// throughput, is the priority here.
//
// Reconciliation is driven by two independent input channels:
//   - replicated deltas (Identity, Stamp, DeltaKind), fired after the
//     authoritative store has already absorbed the mutation
//   - key lifecycle signals (PredictionKey, Rejected|CaughtUp), fired
//     exactly once per key
//
// Delta classification on the client:
//   - no overlay record          -> authoritative update, no action
//   - overlay key == stamp key   -> confirmation: transfer predicted-only
//     state into the entry, clear the record; the view must not visibly
//     change
//   - overlay key != stamp key   -> mismatched echo: leave the record
//     untouched; the newer local prediction keeps driving the view
//
// Both channels are idempotent: redelivery never double-clears,
// double-transfers, or errors.
//
// CRITICAL PATTERNS:
//
// Single-threaded peer:
// All engine calls are synchronous and complete within the calling
// simulation step; nothing blocks or suspends. The engine holds no locks.
// A multi-threaded host must serialize one container instance's mutation
// surface behind a single exclusive access point.
//
// Adapter injected per call:
// The engine never stores an adapter reference. Every method takes the
// container's Adapter as an argument, so a container can own its engine
// without a back-reference cycle.
//
// Ordering:
// Delta delivery is ordered per identity only. A newer overlay for an
// identity always survives races against stale confirmations or terminal
// signals referencing an older key, and a key's rollback only ever
// touches records it currently owns.
//
// Failure is data, not exceptions: authority rejection surfaces as a
// Rejected key signal, stale identities resolve as silent no-ops, and
// redundant signals are absorbed by idempotence. Errors returned by
// Record* calls indicate local programming mistakes only.
package engine
