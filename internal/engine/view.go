package engine

import "github.com/roach88/specular/internal/state"

// EffectiveView composes the read-only projection consumers render.
//
// Ordering: authoritative entries first, in the adapter's stable order;
// overlay-only identities appended in local insertion order. For each
// identity, the overlay record's projection wins when one exists (a
// Remove record omits the identity entirely); otherwise the
// authoritative entry is projected.
//
// The composer performs no mutation and is recomputed on demand; it is
// safe to call at arbitrary frequency.
func (e *Engine[P, E, V]) EffectiveView(a Adapter[P, E, V]) []V {
	entries := a.AuthoritativeEntries()
	out := make([]V, 0, len(entries)+e.overlay.Len())
	shadowed := make(map[state.Identity]bool)

	for _, entry := range entries {
		id := a.IdentityOfEntry(entry)
		rec, ok := e.overlay.Get(id)
		if !ok {
			out = append(out, a.ProjectEntry(entry))
			continue
		}
		shadowed[id] = true
		if rec.Op == state.OpRemove {
			continue
		}
		out = append(out, a.ProjectPayload(rec.Payload, rec.Op))
	}

	for _, id := range e.overlay.Identities() {
		if shadowed[id] {
			continue
		}
		rec, _ := e.overlay.Get(id)
		if rec.Op == state.OpRemove {
			continue
		}
		out = append(out, a.ProjectPayload(rec.Payload, rec.Op))
	}

	return out
}
