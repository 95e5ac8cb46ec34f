package container

import (
	"fmt"
	"log/slog"

	"github.com/roach88/specular/internal/engine"
	"github.com/roach88/specular/internal/state"
)

// SchemaEntry is a confirmed entry of a schema-driven container.
// Fields holds exactly the replicated payload fields.
type SchemaEntry struct {
	ID     state.Identity
	Fields state.Object
	Stamp  state.Stamp
}

// SchemaContainer is a container whose payload shape is described by a
// compiled ContainerSpec rather than by Go structs. It is what the
// scenario harness and the CLI instantiate: one declaration in CUE
// yields a working container on both peers.
//
// Identities are always derived from the spec's identity field, so the
// two peers agree on them without exchanging anything.
type SchemaContainer struct {
	spec      state.ContainerSpec
	authority bool
	eng       *engine.Engine[state.Object, SchemaEntry, state.Object]
	entries   []*SchemaEntry
	seq       Sequencer
	outbox    []state.Delta
	announced map[state.Identity]bool
}

// NewAuthoritySchemaContainer creates the authoritative side.
func NewAuthoritySchemaContainer(spec state.ContainerSpec, seq Sequencer) *SchemaContainer {
	return &SchemaContainer{
		spec:      spec,
		authority: true,
		eng:       engine.New[state.Object, SchemaEntry, state.Object](),
		seq:       seq,
		announced: make(map[state.Identity]bool),
	}
}

// NewClientSchemaContainer creates a non-authoritative replica.
func NewClientSchemaContainer(spec state.ContainerSpec) *SchemaContainer {
	return &SchemaContainer{
		spec:      spec,
		eng:       engine.New[state.Object, SchemaEntry, state.Object](),
		announced: make(map[state.Identity]bool),
	}
}

var _ engine.Adapter[state.Object, SchemaEntry, state.Object] = (*SchemaContainer)(nil)

// Spec returns the compiled schema this container runs.
func (c *SchemaContainer) Spec() state.ContainerSpec { return c.spec }

func (c *SchemaContainer) IdentityOfPayload(p state.Object) state.Identity {
	id, err := c.spec.IdentityOf(p)
	if err != nil {
		// The zero identity is rejected downstream.
		return state.Identity{}
	}
	return id
}

func (c *SchemaContainer) IdentityOfEntry(e *SchemaEntry) state.Identity { return e.ID }
func (c *SchemaContainer) IsAuthority() bool                             { return c.authority }

func (c *SchemaContainer) AuthoritativeEntries() []*SchemaEntry { return c.entries }

func (c *SchemaContainer) FindAuthoritative(id state.Identity) *SchemaEntry {
	for _, e := range c.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// ProjectPayload projects a speculative payload. A change payload may
// be partial, so it merges over the authoritative fields when an entry
// exists for the same identity.
func (c *SchemaContainer) ProjectPayload(p state.Object, op state.OpKind) state.Object {
	if op == state.OpChange {
		if e := c.FindAuthoritative(c.IdentityOfPayload(p)); e != nil {
			merged := e.Fields.Clone()
			for k, v := range p {
				merged[k] = v
			}
			return merged
		}
	}
	return p.Clone()
}

func (c *SchemaContainer) ProjectEntry(e *SchemaEntry) state.Object {
	return e.Fields.Clone()
}

func (c *SchemaContainer) DirectAdd(p state.Object) *SchemaEntry {
	id := c.IdentityOfPayload(p)
	if id.IsZero() {
		return nil
	}
	e := &SchemaEntry{ID: id, Fields: p.Clone()}
	c.entries = append(c.entries, e)
	return e
}

func (c *SchemaContainer) DirectRemove(id state.Identity) bool {
	for i, e := range c.entries {
		if e.ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			if c.authority {
				c.queueDelta(id, state.Stamp{}, state.DeltaRemoved, nil)
			}
			delete(c.announced, id)
			return true
		}
	}
	return false
}

func (c *SchemaContainer) DirectChange(id state.Identity, p state.Object) *SchemaEntry {
	e := c.FindAuthoritative(id)
	if e == nil {
		return nil
	}
	for k, v := range p {
		e.Fields[k] = v
	}
	return e
}

// TransferPredictedState is a no-op: schema payloads replicate in
// full, there is no client-local side data to migrate.
func (c *SchemaContainer) TransferPredictedState(state.Object, *SchemaEntry) {}

func (c *SchemaContainer) StampOf(e *SchemaEntry) *state.Stamp { return &e.Stamp }

func (c *SchemaContainer) MarkDirty(e *SchemaEntry) {
	if !c.authority {
		return
	}
	kind := state.DeltaChanged
	if !c.announced[e.ID] {
		kind = state.DeltaAdded
		c.announced[e.ID] = true
	}
	c.queueDelta(e.ID, e.Stamp, kind, e.Fields.Clone())
}

func (c *SchemaContainer) queueDelta(id state.Identity, stamp state.Stamp, kind state.DeltaKind, payload state.Object) {
	c.outbox = append(c.outbox, state.Delta{
		Container: c.spec.Name,
		Identity:  id,
		Stamp:     stamp,
		Kind:      kind,
		Payload:   payload,
		Seq:       c.seq.Next(),
	})
}

// Add records a request to create an entry, validating the payload
// against the schema first.
func (c *SchemaContainer) Add(p state.Object, key state.PredictionKey) error {
	if err := c.spec.ValidatePayload(p); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return c.eng.RecordAdd(c, p, key)
}

// Change records a request to mutate an entry. The payload may be
// partial but must carry the identity field.
func (c *SchemaContainer) Change(p state.Object, key state.PredictionKey) error {
	if err := c.spec.ValidatePayload(p); err != nil {
		return fmt.Errorf("change: %w", err)
	}
	id, err := c.spec.IdentityOf(p)
	if err != nil {
		return fmt.Errorf("change: %w", err)
	}
	return c.eng.RecordChange(c, id, p, key)
}

// Remove records a request to remove the entry named by semanticKey,
// the value of the schema's identity field.
func (c *SchemaContainer) Remove(semanticKey string, key state.PredictionKey) error {
	id := state.DeriveIdentity(c.spec.Namespace(), semanticKey)
	return c.eng.RecordRemove(c, id, key)
}

// View composes the effective view.
func (c *SchemaContainer) View() []state.Object {
	return c.eng.EffectiveView(c)
}

// SetViewDirtied forwards the recomposition notification.
func (c *SchemaContainer) SetViewDirtied(fn func()) {
	c.eng.SetViewDirtied(fn)
}

// Engine exposes the underlying engine.
func (c *SchemaContainer) Engine() *engine.Engine[state.Object, SchemaEntry, state.Object] {
	return c.eng
}

// Deltas drains the queued outgoing deltas.
func (c *SchemaContainer) Deltas() []state.Delta {
	out := c.outbox
	c.outbox = nil
	return out
}

// ApplyDelta applies a replicated delta to the authoritative mirror,
// then notifies the engine.
func (c *SchemaContainer) ApplyDelta(d state.Delta) {
	switch d.Kind {
	case state.DeltaAdded, state.DeltaChanged:
		if err := c.spec.ValidatePayload(d.Payload); err != nil {
			slog.Error("schema delta payload rejected",
				"container", c.spec.Name,
				"identity", d.Identity,
				"error", err,
			)
			return
		}
		e := c.FindAuthoritative(d.Identity)
		if e == nil {
			e = c.DirectAdd(d.Payload)
			if e == nil {
				return
			}
		} else {
			c.DirectChange(d.Identity, d.Payload)
		}
		e.Stamp = d.Stamp
	case state.DeltaRemoved:
		c.DirectRemove(d.Identity)
	}
	c.eng.OnReplicatedDelta(c, d.Identity, d.Stamp, d.Kind)
}

// ApplySignal applies a key lifecycle signal.
func (c *SchemaContainer) ApplySignal(s state.KeySignal) {
	switch s.Outcome {
	case state.OutcomeRejected:
		c.eng.OnPredictionKeyRejected(c, s.Key)
	case state.OutcomeCaughtUp:
		c.eng.OnPredictionKeyCaughtUp(c, s.Key)
	}
}
