package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specular/internal/state"
)

// Property: every identity's view entry equals the overlay projection if
// a record exists, else the authoritative projection, else the identity
// is absent.
func TestEffectiveView_PerIdentityResolution(t *testing.T) {
	eng, box := newClient()

	confirmed := gem{id: state.NewIdentity(), name: "ruby", qty: 1}
	shadowed := gem{id: state.NewIdentity(), name: "opal", qty: 2}
	hidden := gem{id: state.NewIdentity(), name: "jade", qty: 3}
	for _, g := range []gem{confirmed, shadowed, hidden} {
		applyDelta(t, eng, box, state.DeltaAdded, g, state.PredictionKey{})
	}

	k := newKey()
	require.NoError(t, eng.RecordChange(box, shadowed.id, gem{id: shadowed.id, name: "opal", qty: 20}, k))
	require.NoError(t, eng.RecordRemove(box, hidden.id, k))
	overlayOnly := gem{id: state.NewIdentity(), name: "mist", qty: 9}
	require.NoError(t, eng.RecordAdd(box, overlayOnly, k))

	view := eng.EffectiveView(box)
	require.Len(t, view, 3)

	assert.Equal(t, gemView{ID: confirmed.id, Name: "ruby", Qty: 1}, view[0], "no record: authoritative projection")
	assert.Equal(t, gemView{ID: shadowed.id, Name: "opal", Qty: 20}, view[1], "record: overlay projection")
	assert.Equal(t, gemView{ID: overlayOnly.id, Name: "mist", Qty: 9}, view[2], "overlay-only tail")

	for _, v := range view {
		assert.NotEqual(t, hidden.id, v.ID, "a Remove record omits the identity")
	}
}

func TestEffectiveView_Ordering(t *testing.T) {
	eng, box := newClient()

	// Authoritative entries in insertion order.
	auth := make([]gem, 3)
	for i := range auth {
		auth[i] = gem{id: state.NewIdentity(), name: "auth", qty: int64(i)}
		applyDelta(t, eng, box, state.DeltaAdded, auth[i], state.PredictionKey{})
	}

	// Overlay-only identities appended in local insertion order.
	k := newKey()
	first := gem{id: state.NewIdentity(), name: "pred", qty: 10}
	second := gem{id: state.NewIdentity(), name: "pred", qty: 11}
	require.NoError(t, eng.RecordAdd(box, first, k))
	require.NoError(t, eng.RecordAdd(box, second, k))

	view := eng.EffectiveView(box)
	require.Len(t, view, 5)
	for i, g := range auth {
		assert.Equal(t, g.id, view[i].ID)
	}
	assert.Equal(t, first.id, view[3].ID)
	assert.Equal(t, second.id, view[4].ID)
}

func TestEffectiveView_NoMutation(t *testing.T) {
	eng, box := newClient()
	g := gem{id: state.NewIdentity(), name: "ruby", qty: 1}
	applyDelta(t, eng, box, state.DeltaAdded, g, state.PredictionKey{})
	require.NoError(t, eng.RecordRemove(box, g.id, newKey()))

	// Arbitrary-frequency calls are safe and stable.
	a := eng.EffectiveView(box)
	b := eng.EffectiveView(box)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, eng.OverlayLen())
	assert.Len(t, box.entries, 1)
}

func TestEffectiveView_Empty(t *testing.T) {
	eng, box := newClient()
	assert.Empty(t, eng.EffectiveView(box))
}
