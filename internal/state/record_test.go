package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeltaKind_RoundTrip(t *testing.T) {
	for _, k := range []DeltaKind{DeltaAdded, DeltaChanged, DeltaRemoved} {
		parsed, err := ParseDeltaKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseDeltaKind("mutated")
	assert.Error(t, err)
}

func TestOpKind_String(t *testing.T) {
	assert.Equal(t, "add", OpAdd.String())
	assert.Equal(t, "change", OpChange.String())
	assert.Equal(t, "remove", OpRemove.String())
}
