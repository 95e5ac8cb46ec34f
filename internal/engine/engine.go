package engine

import (
	"log/slog"

	"github.com/roach88/specular/internal/state"
)

// Engine is the per-container-instance reconciliation core.
//
// One Engine serves one container instance on one peer. It owns the
// overlay store and the key registry; the authoritative store belongs to
// the container's Adapter, which is passed into every call and never
// retained.
//
// All methods are synchronous, non-blocking, and must be called from the
// peer's single simulation thread.
type Engine[P, E, V any] struct {
	overlay  *Overlay[P]
	registry *KeyRegistry
	dirtied  func()
}

// New creates an engine with an empty overlay and key registry.
func New[P, E, V any]() *Engine[P, E, V] {
	return &Engine[P, E, V]{
		overlay:  NewOverlay[P](),
		registry: NewKeyRegistry(),
	}
}

// SetViewDirtied registers the notification fired whenever a composer
// recomputation is warranted (any overlay or authoritative mutation
// routed through the engine). Presentation code subscribes here; the
// engine never calls it re-entrantly.
func (e *Engine[P, E, V]) SetViewDirtied(fn func()) {
	e.dirtied = fn
}

func (e *Engine[P, E, V]) markDirty() {
	if e.dirtied != nil {
		e.dirtied()
	}
}

// RecordAdd records a request to create an entry.
//
// On the authority the adapter mutates the authoritative store directly
// and the result is stamped with the key; on a client a speculative Add
// record enters the overlay instead, superseding any prior record for
// the payload's identity.
func (e *Engine[P, E, V]) RecordAdd(a Adapter[P, E, V], payload P, key state.PredictionKey) error {
	id := a.IdentityOfPayload(payload)
	return e.record(a, state.Record[P]{
		Identity: id,
		Op:       state.OpAdd,
		Payload:  payload,
		Key:      key,
	})
}

// RecordChange records a request to mutate the entry for an identity.
func (e *Engine[P, E, V]) RecordChange(a Adapter[P, E, V], id state.Identity, payload P, key state.PredictionKey) error {
	return e.record(a, state.Record[P]{
		Identity: id,
		Op:       state.OpChange,
		Payload:  payload,
		Key:      key,
	})
}

// RecordRemove records a request to remove the entry for an identity.
func (e *Engine[P, E, V]) RecordRemove(a Adapter[P, E, V], id state.Identity, key state.PredictionKey) error {
	return e.record(a, state.Record[P]{
		Identity: id,
		Op:       state.OpRemove,
		Key:      key,
	})
}

// record routes a requested mutation to the authoritative store (if
// authority) or the overlay store (if not).
func (e *Engine[P, E, V]) record(a Adapter[P, E, V], rec state.Record[P]) error {
	if rec.Key.IsZero() {
		return newZeroKeyError()
	}
	if rec.Identity.IsZero() {
		return newZeroIdentityError(rec.Key)
	}

	if a.IsAuthority() {
		e.applyDirect(a, rec)
		return nil
	}

	if !e.registry.Begin(rec.Key) {
		return newKeyResolvedError(rec.Key, rec.Identity)
	}

	e.overlay.Insert(rec)

	slog.Debug("speculative record stored",
		"identity", rec.Identity,
		"op", rec.Op,
		"key", rec.Key,
	)

	e.markDirty()
	return nil
}

// applyDirect performs the authoritative mutation for a record and
// stamps the result with the owning key. The authority never reconciles
// its own direct mutations; MarkDirty hands propagation to the transport.
func (e *Engine[P, E, V]) applyDirect(a Adapter[P, E, V], rec state.Record[P]) {
	switch rec.Op {
	case state.OpAdd:
		entry := a.DirectAdd(rec.Payload)
		if entry == nil {
			slog.Debug("direct add refused by adapter", "identity", rec.Identity, "key", rec.Key)
			return
		}
		*a.StampOf(entry) = state.Stamp{Key: rec.Key}
		a.MarkDirty(entry)

	case state.OpChange:
		entry := a.DirectChange(rec.Identity, rec.Payload)
		if entry == nil {
			// Stale identity: benign no-op.
			slog.Debug("direct change on missing identity", "identity", rec.Identity, "key", rec.Key)
			return
		}
		*a.StampOf(entry) = state.Stamp{Key: rec.Key}
		a.MarkDirty(entry)

	case state.OpRemove:
		if !a.DirectRemove(rec.Identity) {
			slog.Debug("direct remove on missing identity", "identity", rec.Identity, "key", rec.Key)
			return
		}
	}

	e.markDirty()
}

// OnReplicatedDelta consumes a change notification from the transport
// layer, fired after the authoritative store has already absorbed the
// mutation.
//
// Classification (client only; the authority never reconciles its own
// mutations):
//   - no overlay record for the identity: authoritative update, the view
//     now reads straight from the authoritative store
//   - record owned by the stamp's key: confirmation - predicted-only
//     state transfers into the entry, the record clears silently
//   - record owned by a different key: mismatched echo - the record is
//     left untouched and keeps driving the view until its own key
//     resolves; the authoritative store has already absorbed the update
//     underneath
//
// Idempotent: redelivering a delta reclassifies it; a confirmed record
// is already gone, so the redelivery lands as an authoritative update.
func (e *Engine[P, E, V]) OnReplicatedDelta(a Adapter[P, E, V], id state.Identity, stamp state.Stamp, kind state.DeltaKind) {
	if a.IsAuthority() {
		return
	}

	rec, ok := e.overlay.Get(id)
	if !ok {
		// Authoritative update: no overlay interaction.
		slog.Debug("delta: authoritative update", "identity", id, "kind", kind)
		e.markDirty()
		return
	}

	if rec.Key != stamp.Key {
		// Mismatched echo: a foreign operation on this identity, or a
		// stale echo of a superseded local prediction. The newer overlay
		// wins either way.
		slog.Debug("delta: mismatched echo",
			"identity", id,
			"kind", kind,
			"overlay_key", rec.Key,
			"stamp_key", stamp.Key,
		)
		e.markDirty()
		return
	}

	// Confirmation: migrate predicted-only side data before the overlay
	// record disappears, then clear it. The view must not visibly change.
	e.confirmRecord(a, rec)

	slog.Debug("delta: confirmation", "identity", id, "kind", kind, "key", rec.Key)
	e.markDirty()
}

// confirmRecord transfers predicted-only state into the authoritative
// entry (when one survives to receive it) and clears the overlay record.
func (e *Engine[P, E, V]) confirmRecord(a Adapter[P, E, V], rec state.Record[P]) {
	if rec.Op != state.OpRemove {
		if entry := a.FindAuthoritative(rec.Identity); entry != nil {
			a.TransferPredictedState(rec.Payload, entry)
		}
	}
	e.overlay.Remove(rec.Identity)
}

// OnPredictionKeyRejected consumes a Rejected lifecycle signal: the
// authority declined the operation and it never happened.
//
// Every overlay record still owned by the key rolls back in the same
// step, with no state transfer. Records the key once owned but that a
// newer key has since claimed are untouched. Idempotent: a redelivered
// signal finds the key already resolved and is a no-op. The key stays
// in the registry as a tombstone so that recording a new prediction
// under it is refused.
func (e *Engine[P, E, V]) OnPredictionKeyRejected(a Adapter[P, E, V], key state.PredictionKey) {
	if !e.registry.Resolve(key, state.OutcomeRejected) {
		slog.Debug("redundant rejection signal", "key", key)
		return
	}

	swept := 0
	for _, rec := range e.overlay.OwnedBy(key) {
		e.overlay.Remove(rec.Identity)
		swept++
	}

	slog.Info("prediction rejected", "key", key, "records_rolled_back", swept)

	if swept > 0 {
		e.markDirty()
	}
}

// OnPredictionKeyCaughtUp consumes a CaughtUp lifecycle signal: the
// authority processed the operation and all of its deltas have been
// delivered.
//
// Any record still owned by the key is flushed as if confirmed -
// predicted-only state transfers first, then the record clears. This is
// the safety net for predictions whose net effect produced no
// distinguishable delta (e.g. a predicted change equal to the prior
// value). Idempotent like rejection.
func (e *Engine[P, E, V]) OnPredictionKeyCaughtUp(a Adapter[P, E, V], key state.PredictionKey) {
	if !e.registry.Resolve(key, state.OutcomeCaughtUp) {
		slog.Debug("redundant caught-up signal", "key", key)
		return
	}

	swept := 0
	for _, rec := range e.overlay.OwnedBy(key) {
		e.confirmRecord(a, rec)
		swept++
	}

	slog.Debug("prediction caught up", "key", key, "records_flushed", swept)

	if swept > 0 {
		e.markDirty()
	}
}

// Registry returns the key registry, for hosts implementing an external
// liveness policy over pending keys.
func (e *Engine[P, E, V]) Registry() *KeyRegistry {
	return e.registry
}

// OverlayLen returns the number of live speculative records.
// Useful for monitoring and testing.
func (e *Engine[P, E, V]) OverlayLen() int {
	return e.overlay.Len()
}
