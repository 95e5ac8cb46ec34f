package engine

import (
	"slices"
	"strings"

	"github.com/roach88/specular/internal/state"
)

// keyState tracks one prediction key through its lifecycle.
type keyState int

const (
	statePending keyState = iota + 1
	stateRejected
	stateCaughtUp
)

// KeyRegistry tracks the lifecycle of causal client-initiated operations:
// Pending -> Rejected | CaughtUp -> Discarded.
//
// A key is begun when its first speculative record is stored (one key may
// span several identities) and resolved by exactly one terminal signal.
// Resolved keys remain as tombstones so that reuse under a dead key is
// detectable; a host may discard them once it knows no redelivery is
// possible. Redundant terminal signals - including signals for discarded
// or never-begun keys - resolve to no-ops, never errors.
//
// Not safe for concurrent use; the owning peer is single-threaded.
type KeyRegistry struct {
	keys map[state.PredictionKey]keyState
}

// NewKeyRegistry creates an empty registry.
func NewKeyRegistry() *KeyRegistry {
	return &KeyRegistry{keys: make(map[state.PredictionKey]keyState)}
}

// Begin marks a key as pending. Idempotent: beginning a known pending key
// is a no-op. Returns false if the key has already resolved; recording
// new predictions under a resolved key is a caller bug.
func (r *KeyRegistry) Begin(key state.PredictionKey) bool {
	switch r.keys[key] {
	case statePending:
		return true
	case stateRejected, stateCaughtUp:
		return false
	default:
		r.keys[key] = statePending
		return true
	}
}

// IsPending reports whether the key is known and unresolved.
func (r *KeyRegistry) IsPending(key state.PredictionKey) bool {
	return r.keys[key] == statePending
}

// Resolve moves a pending key to its terminal state. Returns true only
// on the first terminal signal; unknown, discarded, and already-terminal
// keys all return false.
func (r *KeyRegistry) Resolve(key state.PredictionKey, outcome state.KeyOutcome) bool {
	if r.keys[key] != statePending {
		return false
	}
	switch outcome {
	case state.OutcomeRejected:
		r.keys[key] = stateRejected
	case state.OutcomeCaughtUp:
		r.keys[key] = stateCaughtUp
	default:
		return false
	}
	return true
}

// Discard forgets a resolved key, releasing its tombstone. The engine
// never discards on its own: dropping the tombstone also drops the
// resolved-key reuse guard, so reclamation is left to the host once the
// signal source can no longer redeliver or mint records under the key.
func (r *KeyRegistry) Discard(key state.PredictionKey) {
	delete(r.keys, key)
}

// Pending returns the unresolved keys in deterministic order.
//
// The engine defines no timeout for a key whose terminal signal is lost;
// this accessor exists so a host can implement its own liveness policy
// (e.g. reject everything pending on disconnect).
func (r *KeyRegistry) Pending() []state.PredictionKey {
	var out []state.PredictionKey
	for key, st := range r.keys {
		if st == statePending {
			out = append(out, key)
		}
	}
	slices.SortFunc(out, func(a, b state.PredictionKey) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// Len returns the number of tracked (pending or resolved, undiscarded)
// keys.
func (r *KeyRegistry) Len() int {
	return len(r.keys)
}
