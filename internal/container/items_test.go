package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specular/internal/state"
	"github.com/roach88/specular/internal/testutil"
)

var keys testutil.NamedKeyGenerator

func pipe(t *testing.T, from, to *ItemBox) {
	t.Helper()
	for _, d := range from.Deltas() {
		to.ApplyDelta(d)
	}
}

func TestItemBox_PredictThenConfirm(t *testing.T) {
	auth := NewAuthorityItemBox(testutil.NewStepClock())
	client := NewClientItemBox()

	id := state.NewIdentity()
	key := keys.KeyFor("pickup")
	payload := ItemPayload{
		ID:          id,
		Archetype:   "sword",
		Quantity:    1,
		Slot:        3,
		Placeholder: "models/sword_lowres",
	}

	require.NoError(t, client.Add(payload, key))
	require.Equal(t, 1, client.Engine().OverlayLen())

	view := client.View()
	require.Len(t, view, 1)
	assert.Equal(t, "sword", view[0].Archetype)

	// The authority processes the same request under the same key.
	require.NoError(t, auth.Add(payload, key))
	pipe(t, auth, client)

	// Confirmed: the overlay record is gone and the predicted-only
	// resource migrated into the entry.
	assert.Equal(t, 0, client.Engine().OverlayLen())
	entry := client.FindAuthoritative(id)
	require.NotNil(t, entry)
	assert.Equal(t, "models/sword_lowres", entry.Resource)

	view = client.View()
	require.Len(t, view, 1)
	assert.Equal(t, "sword", view[0].Archetype)
}

func TestItemBox_Rejection(t *testing.T) {
	client := NewClientItemBox()

	id := state.NewIdentity()
	key := keys.KeyFor("denied")
	require.NoError(t, client.Add(ItemPayload{ID: id, Archetype: "gem", Quantity: 9}, key))
	require.Len(t, client.View(), 1)

	client.ApplySignal(state.KeySignal{Key: key, Outcome: state.OutcomeRejected})

	assert.Empty(t, client.View())
	assert.Equal(t, 0, client.Engine().OverlayLen())
}

func TestItemBox_AuthorityDeltaKinds(t *testing.T) {
	auth := NewAuthorityItemBox(testutil.NewStepClock())

	id := state.NewIdentity()
	require.NoError(t, auth.Add(ItemPayload{ID: id, Archetype: "ore", Quantity: 4}, keys.KeyFor("a")))
	require.NoError(t, auth.Change(id, ItemPayload{ID: id, Archetype: "ore", Quantity: 7}, keys.KeyFor("b")))
	require.NoError(t, auth.Remove(id, keys.KeyFor("c")))

	deltas := auth.Deltas()
	require.Len(t, deltas, 3)
	assert.Equal(t, state.DeltaAdded, deltas[0].Kind)
	assert.Equal(t, state.DeltaChanged, deltas[1].Kind)
	assert.Equal(t, state.DeltaRemoved, deltas[2].Kind)
	assert.Equal(t, int64(1), deltas[0].Seq)
	assert.Equal(t, int64(3), deltas[2].Seq)
	assert.Nil(t, deltas[2].Payload)

	// Drained.
	assert.Empty(t, auth.Deltas())
}

func TestItemBox_RemoveClearsOnCaughtUp(t *testing.T) {
	auth := NewAuthorityItemBox(testutil.NewStepClock())
	client := NewClientItemBox()

	id := state.NewIdentity()
	seed := ItemPayload{ID: id, Archetype: "torch", Quantity: 2}
	require.NoError(t, auth.Add(seed, keys.KeyFor("seed")))
	pipe(t, auth, client)
	require.NotNil(t, client.FindAuthoritative(id))

	key := keys.KeyFor("drop")
	require.NoError(t, client.Remove(id, key))
	assert.Empty(t, client.View())

	require.NoError(t, auth.Remove(id, key))
	pipe(t, auth, client)

	// The removed delta is unstamped, so the speculative record stays
	// until the caught-up signal flushes it. The view is stable
	// throughout.
	assert.Empty(t, client.View())
	client.ApplySignal(state.KeySignal{Key: key, Outcome: state.OutcomeCaughtUp})
	assert.Empty(t, client.View())
	assert.Equal(t, 0, client.Engine().OverlayLen())
	assert.Nil(t, client.FindAuthoritative(id))
}

func TestItemBox_ForeignUpdateUnderPrediction(t *testing.T) {
	auth := NewAuthorityItemBox(testutil.NewStepClock())
	client := NewClientItemBox()

	id := state.NewIdentity()
	require.NoError(t, auth.Add(ItemPayload{ID: id, Archetype: "coin", Quantity: 10}, keys.KeyFor("seed")))
	pipe(t, auth, client)

	// Client predicts a change while the authority applies someone
	// else's change to the same item.
	mine := keys.KeyFor("mine")
	require.NoError(t, client.Change(id, ItemPayload{ID: id, Archetype: "coin", Quantity: 11}, mine))
	require.NoError(t, auth.Change(id, ItemPayload{ID: id, Archetype: "coin", Quantity: 50}, keys.KeyFor("theirs")))
	pipe(t, auth, client)

	// Mismatched echo: the prediction keeps driving the view.
	view := client.View()
	require.Len(t, view, 1)
	assert.Equal(t, int64(11), view[0].Quantity)
	// The mirror absorbed the foreign value underneath.
	assert.Equal(t, int64(50), client.FindAuthoritative(id).Quantity)

	// Rejection uncovers the foreign value.
	client.ApplySignal(state.KeySignal{Key: mine, Outcome: state.OutcomeRejected})
	view = client.View()
	require.Len(t, view, 1)
	assert.Equal(t, int64(50), view[0].Quantity)
}
