package container

import (
	"log/slog"

	"github.com/roach88/specular/internal/engine"
	"github.com/roach88/specular/internal/state"
)

// Sequencer stamps outgoing deltas with logical sequence numbers.
// Satisfied by engine.Clock (production) and testutil.StepClock (tests).
type Sequencer interface {
	Next() int64
}

// ItemPayload is one speculative edit of the item container.
//
// The identity is minted by whichever peer originates the add and
// travels with the request, so the predicted entry and the eventual
// authoritative entry share it. Placeholder names a client-local
// resource (a preloaded icon, a staged model) that exists only on the
// predicting peer until confirmation migrates it into the entry.
type ItemPayload struct {
	ID          state.Identity
	Archetype   string
	Quantity    int64
	Slot        int64
	Placeholder string
}

// ItemEntry is a server-confirmed item.
type ItemEntry struct {
	ID        state.Identity
	Archetype string
	Quantity  int64
	Slot      int64
	Stamp     state.Stamp
	Resource  string
}

// ItemView is the read-only projection of one item.
type ItemView struct {
	ID        state.Identity `json:"id"`
	Archetype string         `json:"archetype"`
	Quantity  int64          `json:"quantity"`
	Slot      int64          `json:"slot"`
}

// ItemBox is a container of discrete stackable items.
// Entries keep insertion order; the effective view's determinism
// depends on it.
type ItemBox struct {
	authority bool
	eng       *engine.Engine[ItemPayload, ItemEntry, ItemView]
	entries   []*ItemEntry
	seq       Sequencer
	outbox    []state.Delta
	announced map[state.Identity]bool // identities already replicated as Added
}

// NewAuthorityItemBox creates the authoritative side of an item
// container. The sequencer stamps outgoing deltas.
func NewAuthorityItemBox(seq Sequencer) *ItemBox {
	return &ItemBox{
		authority: true,
		eng:       engine.New[ItemPayload, ItemEntry, ItemView](),
		seq:       seq,
		announced: make(map[state.Identity]bool),
	}
}

// NewClientItemBox creates a non-authoritative replica.
func NewClientItemBox() *ItemBox {
	return &ItemBox{
		eng:       engine.New[ItemPayload, ItemEntry, ItemView](),
		announced: make(map[state.Identity]bool),
	}
}

// Adapter contract. Compile-time checked.
var _ engine.Adapter[ItemPayload, ItemEntry, ItemView] = (*ItemBox)(nil)

func (b *ItemBox) IdentityOfPayload(p ItemPayload) state.Identity { return p.ID }
func (b *ItemBox) IdentityOfEntry(e *ItemEntry) state.Identity    { return e.ID }
func (b *ItemBox) IsAuthority() bool                              { return b.authority }

func (b *ItemBox) AuthoritativeEntries() []*ItemEntry { return b.entries }

func (b *ItemBox) FindAuthoritative(id state.Identity) *ItemEntry {
	for _, e := range b.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (b *ItemBox) ProjectPayload(p ItemPayload, _ state.OpKind) ItemView {
	return ItemView{ID: p.ID, Archetype: p.Archetype, Quantity: p.Quantity, Slot: p.Slot}
}

func (b *ItemBox) ProjectEntry(e *ItemEntry) ItemView {
	return ItemView{ID: e.ID, Archetype: e.Archetype, Quantity: e.Quantity, Slot: e.Slot}
}

func (b *ItemBox) DirectAdd(p ItemPayload) *ItemEntry {
	e := &ItemEntry{ID: p.ID, Archetype: p.Archetype, Quantity: p.Quantity, Slot: p.Slot}
	b.entries = append(b.entries, e)
	return e
}

func (b *ItemBox) DirectRemove(id state.Identity) bool {
	for i, e := range b.entries {
		if e.ID == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			if b.authority {
				b.queueDelta(id, state.Stamp{}, state.DeltaRemoved, nil)
			}
			delete(b.announced, id)
			return true
		}
	}
	return false
}

func (b *ItemBox) DirectChange(id state.Identity, p ItemPayload) *ItemEntry {
	e := b.FindAuthoritative(id)
	if e == nil {
		return nil
	}
	e.Archetype = p.Archetype
	e.Quantity = p.Quantity
	e.Slot = p.Slot
	return e
}

func (b *ItemBox) TransferPredictedState(p ItemPayload, e *ItemEntry) {
	if p.Placeholder != "" {
		e.Resource = p.Placeholder
	}
}

func (b *ItemBox) StampOf(e *ItemEntry) *state.Stamp { return &e.Stamp }

// MarkDirty queues a replicated delta for the entry. The first
// propagation of an identity is an Added delta, later ones Changed.
func (b *ItemBox) MarkDirty(e *ItemEntry) {
	if !b.authority {
		return
	}
	kind := state.DeltaChanged
	if !b.announced[e.ID] {
		kind = state.DeltaAdded
		b.announced[e.ID] = true
	}
	b.queueDelta(e.ID, e.Stamp, kind, b.entryObject(e))
}

func (b *ItemBox) queueDelta(id state.Identity, stamp state.Stamp, kind state.DeltaKind, payload state.Object) {
	b.outbox = append(b.outbox, state.Delta{
		Container: "items",
		Identity:  id,
		Stamp:     stamp,
		Kind:      kind,
		Payload:   payload,
		Seq:       b.seq.Next(),
	})
}

func (b *ItemBox) entryObject(e *ItemEntry) state.Object {
	return state.Object{
		"id":        state.String(e.ID.String()),
		"archetype": state.String(e.Archetype),
		"quantity":  state.Int(e.Quantity),
		"slot":      state.Int(e.Slot),
	}
}

// Add records a request to create an item under the given key.
func (b *ItemBox) Add(p ItemPayload, key state.PredictionKey) error {
	return b.eng.RecordAdd(b, p, key)
}

// Change records a request to mutate an item under the given key.
func (b *ItemBox) Change(id state.Identity, p ItemPayload, key state.PredictionKey) error {
	return b.eng.RecordChange(b, id, p, key)
}

// Remove records a request to remove an item under the given key.
func (b *ItemBox) Remove(id state.Identity, key state.PredictionKey) error {
	return b.eng.RecordRemove(b, id, key)
}

// View composes the effective view.
func (b *ItemBox) View() []ItemView {
	return b.eng.EffectiveView(b)
}

// SetViewDirtied forwards the recomposition notification.
func (b *ItemBox) SetViewDirtied(fn func()) {
	b.eng.SetViewDirtied(fn)
}

// Engine exposes the underlying engine, mainly for liveness policies
// over pending keys.
func (b *ItemBox) Engine() *engine.Engine[ItemPayload, ItemEntry, ItemView] {
	return b.eng
}

// Deltas drains the queued outgoing deltas. Authority-only; a client
// always drains empty.
func (b *ItemBox) Deltas() []state.Delta {
	out := b.outbox
	b.outbox = nil
	return out
}

// ApplyDelta applies a replicated delta to this replica's authoritative
// mirror, then notifies the engine. Called by the transport layer; the
// store mutation always precedes the notification.
func (b *ItemBox) ApplyDelta(d state.Delta) {
	switch d.Kind {
	case state.DeltaAdded, state.DeltaChanged:
		p, err := itemPayloadFromObject(d.Payload)
		if err != nil {
			slog.Error("item delta payload rejected", "identity", d.Identity, "error", err)
			return
		}
		e := b.FindAuthoritative(d.Identity)
		if e == nil {
			e = b.DirectAdd(p)
		} else {
			b.DirectChange(d.Identity, p)
		}
		e.Stamp = d.Stamp
	case state.DeltaRemoved:
		b.DirectRemove(d.Identity)
	}
	b.eng.OnReplicatedDelta(b, d.Identity, d.Stamp, d.Kind)
}

// ApplySignal applies a key lifecycle signal.
func (b *ItemBox) ApplySignal(s state.KeySignal) {
	switch s.Outcome {
	case state.OutcomeRejected:
		b.eng.OnPredictionKeyRejected(b, s.Key)
	case state.OutcomeCaughtUp:
		b.eng.OnPredictionKeyCaughtUp(b, s.Key)
	}
}

func itemPayloadFromObject(obj state.Object) (ItemPayload, error) {
	raw, ok := obj["id"].(state.String)
	if !ok {
		return ItemPayload{}, errMissingIdentityField
	}
	id, err := state.ParseIdentity(string(raw))
	if err != nil {
		return ItemPayload{}, err
	}
	p := ItemPayload{ID: id}
	if v, ok := obj["archetype"].(state.String); ok {
		p.Archetype = string(v)
	}
	if v, ok := obj["quantity"].(state.Int); ok {
		p.Quantity = int64(v)
	}
	if v, ok := obj["slot"].(state.Int); ok {
		p.Slot = int64(v)
	}
	return p, nil
}
