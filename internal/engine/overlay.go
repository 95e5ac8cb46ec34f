package engine

import "github.com/roach88/specular/internal/state"

// Overlay is the per-client-instance store of speculative records.
//
// INVARIANTS:
//   - at most one record per identity; Insert unconditionally supersedes
//     (last local prediction wins)
//   - iteration order is insertion order of live identities, which keeps
//     the overlay-only tail of the effective view deterministic
//
// The overlay holds no policy: classification and rollback live in the
// Engine. Not safe for concurrent use; the owning peer is
// single-threaded.
type Overlay[P any] struct {
	records map[state.Identity]state.Record[P]
	order   []state.Identity
}

// NewOverlay creates an empty overlay store.
func NewOverlay[P any]() *Overlay[P] {
	return &Overlay[P]{
		records: make(map[state.Identity]state.Record[P]),
	}
}

// Insert stores a speculative record, superseding any existing record
// for the same identity. A superseded identity keeps its original
// position in iteration order.
func (o *Overlay[P]) Insert(rec state.Record[P]) {
	if _, exists := o.records[rec.Identity]; !exists {
		o.order = append(o.order, rec.Identity)
	}
	o.records[rec.Identity] = rec
}

// Get returns the record for an identity, if one exists.
func (o *Overlay[P]) Get(id state.Identity) (state.Record[P], bool) {
	rec, ok := o.records[id]
	return rec, ok
}

// Remove deletes the record for an identity, reporting whether one
// existed.
func (o *Overlay[P]) Remove(id state.Identity) bool {
	if _, ok := o.records[id]; !ok {
		return false
	}
	delete(o.records, id)
	for i, ordered := range o.order {
		if ordered == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// Identities returns the live identities in insertion order.
func (o *Overlay[P]) Identities() []state.Identity {
	out := make([]state.Identity, len(o.order))
	copy(out, o.order)
	return out
}

// OwnedBy returns the records currently owned by a key, in insertion
// order. Records superseded by a newer key are not owned by the older
// key and never appear here.
func (o *Overlay[P]) OwnedBy(key state.PredictionKey) []state.Record[P] {
	var out []state.Record[P]
	for _, id := range o.order {
		if rec := o.records[id]; rec.Key == key {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of live records.
func (o *Overlay[P]) Len() int {
	return len(o.records)
}
