package state

import "fmt"

// OpKind classifies a speculative edit held in an overlay record.
type OpKind int

const (
	// OpAdd predicts the creation of an entry.
	OpAdd OpKind = iota + 1
	// OpChange predicts the mutation of an existing entry.
	OpChange
	// OpRemove predicts the removal of an entry. A Remove record omits
	// its identity from the effective view entirely.
	OpRemove
)

// String returns the journal form of the op kind.
func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpChange:
		return "change"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// DeltaKind classifies a replicated change notification. Deltas describe
// mutations the authoritative store has already absorbed; they are facts,
// not requests.
type DeltaKind int

const (
	// DeltaAdded reports a newly created authoritative entry.
	DeltaAdded DeltaKind = iota + 1
	// DeltaChanged reports a mutated authoritative entry.
	DeltaChanged
	// DeltaRemoved reports a removed authoritative entry.
	DeltaRemoved
)

// String returns the journal form of the delta kind.
func (k DeltaKind) String() string {
	switch k {
	case DeltaAdded:
		return "added"
	case DeltaChanged:
		return "changed"
	case DeltaRemoved:
		return "removed"
	default:
		return fmt.Sprintf("DeltaKind(%d)", int(k))
	}
}

// ParseDeltaKind converts the journal form back to a DeltaKind.
func ParseDeltaKind(s string) (DeltaKind, error) {
	switch s {
	case "added":
		return DeltaAdded, nil
	case "changed":
		return DeltaChanged, nil
	case "removed":
		return DeltaRemoved, nil
	default:
		return 0, fmt.Errorf("unknown delta kind %q", s)
	}
}

// Record is one speculative, not-yet-confirmed edit for one identity.
//
// INVARIANT: at most one Record exists per identity per client instance.
// A newer speculative edit for the same identity unconditionally replaces
// the prior record (last local prediction wins).
type Record[P any] struct {
	Identity Identity
	Op       OpKind
	Payload  P
	Key      PredictionKey
}

// Delta is a replicated change notification in transport/journal form.
//
// The payload is the post-mutation authoritative state rendered as an
// Object (empty for removes). Seq is the authority's logical clock at
// emission time; delivery is ordered per identity, not globally.
type Delta struct {
	Container string    `json:"container"`
	Identity  Identity  `json:"identity"`
	Stamp     Stamp     `json:"stamp"`
	Kind      DeltaKind `json:"kind"`
	Payload   Object    `json:"payload,omitempty"`
	Seq       int64     `json:"seq"`
}

// KeySignal is a prediction key lifecycle signal in transport/journal
// form. Exactly one terminal signal is emitted per key; delivery order
// relative to the key's own deltas is not guaranteed.
type KeySignal struct {
	Key     PredictionKey `json:"key"`
	Outcome KeyOutcome    `json:"outcome"`
	Seq     int64         `json:"seq"`
}
