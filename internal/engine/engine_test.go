package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specular/internal/state"
)

// gem is the speculative payload of the test container.
type gem struct {
	id          state.Identity
	name        string
	qty         int64
	placeholder string // predicted-only side data, migrated at confirmation
}

// gemEntry is an authoritative entry of the test container.
type gemEntry struct {
	id       state.Identity
	name     string
	qty      int64
	stamp    state.Stamp
	resource string // receives the payload's placeholder on confirmation
}

// gemView is the projection consumers would render.
type gemView struct {
	ID   state.Identity
	Name string
	Qty  int64
}

// gemBox is a minimal Adapter implementation backing the engine tests.
// Entries keep insertion order, as the contract requires.
type gemBox struct {
	authority bool
	entries   []*gemEntry
	dirty     []*gemEntry
	transfers int
}

func (b *gemBox) IdentityOfPayload(p gem) state.Identity     { return p.id }
func (b *gemBox) IdentityOfEntry(e *gemEntry) state.Identity { return e.id }
func (b *gemBox) IsAuthority() bool                          { return b.authority }

func (b *gemBox) AuthoritativeEntries() []*gemEntry { return b.entries }

func (b *gemBox) FindAuthoritative(id state.Identity) *gemEntry {
	for _, e := range b.entries {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (b *gemBox) ProjectPayload(p gem, _ state.OpKind) gemView {
	return gemView{ID: p.id, Name: p.name, Qty: p.qty}
}

func (b *gemBox) ProjectEntry(e *gemEntry) gemView {
	return gemView{ID: e.id, Name: e.name, Qty: e.qty}
}

func (b *gemBox) DirectAdd(p gem) *gemEntry {
	e := &gemEntry{id: p.id, name: p.name, qty: p.qty}
	b.entries = append(b.entries, e)
	return e
}

func (b *gemBox) DirectRemove(id state.Identity) bool {
	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (b *gemBox) DirectChange(id state.Identity, p gem) *gemEntry {
	e := b.FindAuthoritative(id)
	if e == nil {
		return nil
	}
	e.name = p.name
	e.qty = p.qty
	return e
}

func (b *gemBox) TransferPredictedState(p gem, e *gemEntry) {
	b.transfers++
	if p.placeholder != "" {
		e.resource = p.placeholder
	}
}

func (b *gemBox) StampOf(e *gemEntry) *state.Stamp { return &e.stamp }
func (b *gemBox) MarkDirty(e *gemEntry)            { b.dirty = append(b.dirty, e) }

// applyDelta mimics the transport layer on a client: mutate the local
// authoritative mirror first, then notify the engine. Deltas are fired
// only after the store has absorbed the mutation.
func applyDelta(t *testing.T, eng *Engine[gem, gemEntry, gemView], box *gemBox, d state.DeltaKind, p gem, key state.PredictionKey) {
	t.Helper()
	switch d {
	case state.DeltaAdded:
		e := box.DirectAdd(p)
		e.stamp = state.Stamp{Key: key}
	case state.DeltaChanged:
		e := box.DirectChange(p.id, p)
		if e != nil {
			e.stamp = state.Stamp{Key: key}
		}
	case state.DeltaRemoved:
		box.DirectRemove(p.id)
	}
	eng.OnReplicatedDelta(box, p.id, state.Stamp{Key: key}, d)
}

func newKey() state.PredictionKey {
	return state.UUIDv7KeyGenerator{}.NewKey()
}

func newClient() (*Engine[gem, gemEntry, gemView], *gemBox) {
	return New[gem, gemEntry, gemView](), &gemBox{authority: false}
}

// Scenario: predicted add is visible immediately; its confirmation
// clears the overlay without visibly changing the view.
func TestEngine_PredictedAdd_Confirmation(t *testing.T) {
	eng, box := newClient()
	k1 := newKey()
	g1 := gem{id: state.NewIdentity(), name: "ruby", qty: 1}

	require.NoError(t, eng.RecordAdd(box, g1, k1))

	view := eng.EffectiveView(box)
	require.Len(t, view, 1)
	assert.Equal(t, gemView{ID: g1.id, Name: "ruby", Qty: 1}, view[0])

	before := eng.EffectiveView(box)
	applyDelta(t, eng, box, state.DeltaAdded, g1, k1)

	assert.Equal(t, 0, eng.OverlayLen(), "confirmation clears the overlay")
	assert.Equal(t, before, eng.EffectiveView(box), "confirmation is silent")
}

// Scenario: predicted remove hides the entry; rejection restores the
// authoritative projection unchanged.
func TestEngine_PredictedRemove_Rejection(t *testing.T) {
	eng, box := newClient()
	g2 := gem{id: state.NewIdentity(), name: "opal", qty: 3}
	applyDelta(t, eng, box, state.DeltaAdded, g2, state.PredictionKey{})

	before := eng.EffectiveView(box)
	require.Len(t, before, 1)

	k2 := newKey()
	require.NoError(t, eng.RecordRemove(box, g2.id, k2))
	assert.Empty(t, eng.EffectiveView(box), "predicted remove omits the entry")

	eng.OnPredictionKeyRejected(box, k2)
	assert.Equal(t, before, eng.EffectiveView(box), "rejection restores the authoritative projection")
	assert.Equal(t, 0, eng.OverlayLen())
}

// Scenario: a re-predicted change supersedes the overlay; the stale echo
// of the first prediction leaves the newer overlay untouched, and the
// second echo confirms it.
func TestEngine_SupersededChange_StaleEcho(t *testing.T) {
	eng, box := newClient()
	g3 := gem{id: state.NewIdentity(), name: "topaz", qty: 5}
	applyDelta(t, eng, box, state.DeltaAdded, g3, state.PredictionKey{})

	k3a, k3b := newKey(), newKey()
	p3a := gem{id: g3.id, name: "topaz", qty: 7}
	p3b := gem{id: g3.id, name: "topaz", qty: 9}

	require.NoError(t, eng.RecordChange(box, g3.id, p3a, k3a))
	require.NoError(t, eng.RecordChange(box, g3.id, p3b, k3b))

	view := eng.EffectiveView(box)
	require.Len(t, view, 1)
	assert.Equal(t, int64(9), view[0].Qty, "last local prediction wins")
	assert.Equal(t, 1, eng.OverlayLen(), "superseded record replaced, not stacked")

	// Stale echo of the first, superseded prediction: mismatched echo.
	applyDelta(t, eng, box, state.DeltaChanged, p3a, k3a)
	view = eng.EffectiveView(box)
	require.Len(t, view, 1)
	assert.Equal(t, int64(9), view[0].Qty, "stale echo must not clear the newer overlay")
	assert.Equal(t, 1, eng.OverlayLen())

	// Echo of the live prediction: confirmation.
	applyDelta(t, eng, box, state.DeltaChanged, p3b, k3b)
	assert.Equal(t, 0, eng.OverlayLen())
	view = eng.EffectiveView(box)
	require.Len(t, view, 1)
	assert.Equal(t, int64(9), view[0].Qty)
}

// Scenario: one key covering two identities rolls both back atomically.
func TestEngine_MultiIdentityKey_AtomicRejection(t *testing.T) {
	eng, box := newClient()
	g4b := gem{id: state.NewIdentity(), name: "jade", qty: 2}
	applyDelta(t, eng, box, state.DeltaAdded, g4b, state.PredictionKey{})

	before := eng.EffectiveView(box)

	k4 := newKey()
	g4a := gem{id: state.NewIdentity(), name: "onyx", qty: 1}
	require.NoError(t, eng.RecordAdd(box, g4a, k4))
	require.NoError(t, eng.RecordChange(box, g4b.id, gem{id: g4b.id, name: "jade", qty: 99}, k4))
	require.Len(t, eng.EffectiveView(box), 2)

	eng.OnPredictionKeyRejected(box, k4)

	assert.Equal(t, before, eng.EffectiveView(box), "both identities roll back together")
	assert.Equal(t, 0, eng.OverlayLen())
}

// Scenario: a delta for an identity with no prediction activity passes
// straight through with no overlay interaction.
func TestEngine_AuthoritativeUpdate_PassThrough(t *testing.T) {
	eng, box := newClient()
	g5 := gem{id: state.NewIdentity(), name: "amber", qty: 4}

	applyDelta(t, eng, box, state.DeltaAdded, g5, state.PredictionKey{})

	view := eng.EffectiveView(box)
	require.Len(t, view, 1)
	assert.Equal(t, gemView{ID: g5.id, Name: "amber", Qty: 4}, view[0])
	assert.Equal(t, 0, eng.OverlayLen())
}

func TestEngine_CaughtUp_FlushesWithTransfer(t *testing.T) {
	eng, box := newClient()
	g := gem{id: state.NewIdentity(), name: "beryl", qty: 6}
	applyDelta(t, eng, box, state.DeltaAdded, g, state.PredictionKey{})

	// Prediction whose net effect equals the prior value: the authority
	// emits no distinguishable delta, only the caught-up signal.
	k := newKey()
	require.NoError(t, eng.RecordChange(box, g.id, gem{id: g.id, name: "beryl", qty: 6, placeholder: "res-1"}, k))

	eng.OnPredictionKeyCaughtUp(box, k)

	assert.Equal(t, 0, eng.OverlayLen())
	assert.Equal(t, 1, box.transfers, "caught-up flush migrates predicted-only state")
	assert.Equal(t, "res-1", box.FindAuthoritative(g.id).resource)
}

func TestEngine_Confirmation_TransfersPlaceholder(t *testing.T) {
	eng, box := newClient()
	k := newKey()
	g := gem{id: state.NewIdentity(), name: "coral", qty: 1, placeholder: "icon-7"}

	require.NoError(t, eng.RecordAdd(box, g, k))
	applyDelta(t, eng, box, state.DeltaAdded, gem{id: g.id, name: "coral", qty: 1}, k)

	assert.Equal(t, 1, box.transfers)
	assert.Equal(t, "icon-7", box.FindAuthoritative(g.id).resource)
}

func TestEngine_Rejection_NeverTransfers(t *testing.T) {
	eng, box := newClient()
	k := newKey()
	g := gem{id: state.NewIdentity(), name: "flint", qty: 1, placeholder: "res-9"}

	require.NoError(t, eng.RecordAdd(box, g, k))
	eng.OnPredictionKeyRejected(box, k)

	assert.Equal(t, 0, box.transfers, "a rejected operation never happened")
	assert.Equal(t, 0, eng.OverlayLen())
}

func TestEngine_TerminalSignal_SparesNewerKey(t *testing.T) {
	eng, box := newClient()
	g := gem{id: state.NewIdentity(), name: "slate", qty: 1}
	applyDelta(t, eng, box, state.DeltaAdded, g, state.PredictionKey{})

	kOld, kNew := newKey(), newKey()
	require.NoError(t, eng.RecordChange(box, g.id, gem{id: g.id, name: "slate", qty: 2}, kOld))
	require.NoError(t, eng.RecordChange(box, g.id, gem{id: g.id, name: "slate", qty: 3}, kNew))

	// The old key's rollback must not clobber the newer key's overlay
	// for an identity the old key previously touched.
	eng.OnPredictionKeyRejected(box, kOld)

	require.Equal(t, 1, eng.OverlayLen())
	view := eng.EffectiveView(box)
	require.Len(t, view, 1)
	assert.Equal(t, int64(3), view[0].Qty)
}

func TestEngine_SignalIdempotence(t *testing.T) {
	eng, box := newClient()
	g := gem{id: state.NewIdentity(), name: "quartz", qty: 1}
	applyDelta(t, eng, box, state.DeltaAdded, g, state.PredictionKey{})

	k := newKey()
	require.NoError(t, eng.RecordRemove(box, g.id, k))

	eng.OnPredictionKeyRejected(box, k)
	after := eng.EffectiveView(box)

	// Redelivery of the same terminal signal must not double-clear.
	eng.OnPredictionKeyRejected(box, k)
	eng.OnPredictionKeyCaughtUp(box, k)
	assert.Equal(t, after, eng.EffectiveView(box))
}

func TestEngine_DeltaIdempotence(t *testing.T) {
	eng, box := newClient()
	k := newKey()
	g := gem{id: state.NewIdentity(), name: "agate", qty: 2, placeholder: "res"}

	require.NoError(t, eng.RecordAdd(box, g, k))
	applyDelta(t, eng, box, state.DeltaAdded, gem{id: g.id, name: "agate", qty: 2}, k)
	require.Equal(t, 1, box.transfers)

	// Redelivered delta: the overlay record is gone, so it classifies as
	// an authoritative update and must not transfer again.
	eng.OnReplicatedDelta(box, g.id, state.Stamp{Key: k}, state.DeltaAdded)
	assert.Equal(t, 1, box.transfers)
	assert.Len(t, eng.EffectiveView(box), 1)
}

func TestEngine_ConfirmedRemove_NoTransfer(t *testing.T) {
	eng, box := newClient()
	g := gem{id: state.NewIdentity(), name: "pearl", qty: 1}
	applyDelta(t, eng, box, state.DeltaAdded, g, state.PredictionKey{})

	k := newKey()
	require.NoError(t, eng.RecordRemove(box, g.id, k))
	applyDelta(t, eng, box, state.DeltaRemoved, g, k)

	assert.Equal(t, 0, box.transfers, "no surviving entry to transfer into")
	assert.Equal(t, 0, eng.OverlayLen())
	assert.Empty(t, eng.EffectiveView(box))
}

func TestEngine_AuthorityPath_StampsAndMarksDirty(t *testing.T) {
	eng := New[gem, gemEntry, gemView]()
	box := &gemBox{authority: true}
	k := newKey()
	g := gem{id: state.NewIdentity(), name: "ruby", qty: 1}

	require.NoError(t, eng.RecordAdd(box, g, k))

	require.Len(t, box.entries, 1)
	assert.Equal(t, state.Stamp{Key: k}, box.entries[0].stamp)
	assert.Len(t, box.dirty, 1, "transport must be told to propagate")
	assert.Equal(t, 0, eng.OverlayLen(), "the authority holds no overlay records")
}

func TestEngine_AuthorityChange_StaleIdentityNoop(t *testing.T) {
	eng := New[gem, gemEntry, gemView]()
	box := &gemBox{authority: true}

	err := eng.RecordChange(box, state.NewIdentity(), gem{id: state.NewIdentity()}, newKey())
	assert.NoError(t, err, "stale identity is a benign no-op, not an error")
	assert.Empty(t, box.dirty)
}

func TestEngine_AuthorityIgnoresDeltas(t *testing.T) {
	eng := New[gem, gemEntry, gemView]()
	box := &gemBox{authority: true}
	g := gem{id: state.NewIdentity(), name: "ruby", qty: 1}
	require.NoError(t, eng.RecordAdd(box, g, newKey()))

	// The authority never reconciles its own direct mutations.
	eng.OnReplicatedDelta(box, g.id, state.Stamp{}, state.DeltaChanged)
	assert.Len(t, box.entries, 1)
}

func TestEngine_RecordErrors(t *testing.T) {
	eng, box := newClient()

	err := eng.RecordAdd(box, gem{id: state.NewIdentity()}, state.PredictionKey{})
	require.Error(t, err)
	var re *ReconcileError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeZeroKey, re.Code)

	err = eng.RecordRemove(box, state.Identity{}, newKey())
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeZeroIdentity, re.Code)
}

func TestEngine_RecordUnderResolvedKey(t *testing.T) {
	eng, box := newClient()
	k := newKey()

	require.NoError(t, eng.RecordAdd(box, gem{id: state.NewIdentity(), name: "x"}, k))
	eng.OnPredictionKeyRejected(box, k)

	err := eng.RecordAdd(box, gem{id: state.NewIdentity(), name: "y"}, k)
	assert.True(t, IsKeyResolvedError(err), "a resolved key must not own new predictions")
	assert.Equal(t, 0, eng.OverlayLen(), "a refused record must not leave an orphan overlay entry")

	// Same guard after the other terminal outcome.
	k2 := newKey()
	require.NoError(t, eng.RecordChange(box, state.NewIdentity(), gem{name: "z"}, k2))
	eng.OnPredictionKeyCaughtUp(box, k2)
	err = eng.RecordAdd(box, gem{id: state.NewIdentity(), name: "w"}, k2)
	assert.True(t, IsKeyResolvedError(err))
	assert.Equal(t, 0, eng.OverlayLen())
}

func TestEngine_ViewDirtied(t *testing.T) {
	eng, box := newClient()
	fired := 0
	eng.SetViewDirtied(func() { fired++ })

	k := newKey()
	g := gem{id: state.NewIdentity(), name: "ruby", qty: 1}
	require.NoError(t, eng.RecordAdd(box, g, k))
	assert.Equal(t, 1, fired, "overlay mutation warrants recomposition")

	applyDelta(t, eng, box, state.DeltaAdded, g, k)
	assert.Equal(t, 2, fired, "authoritative mutation warrants recomposition")

	// A terminal signal that sweeps nothing fires nothing.
	eng.OnPredictionKeyRejected(box, k)
	assert.Equal(t, 2, fired)
}
