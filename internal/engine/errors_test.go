package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/specular/internal/state"
)

func TestReconcileError_Format(t *testing.T) {
	k := newKey()
	id := state.NewIdentity()

	err := newKeyResolvedError(k, id)
	assert.Contains(t, err.Error(), "KEY_RESOLVED")
	assert.Contains(t, err.Error(), k.String())
	assert.Contains(t, err.Error(), id.String())

	bare := newZeroKeyError()
	assert.Equal(t, "ZERO_KEY: prediction key is required", bare.Error())
}

func TestIsKeyResolvedError(t *testing.T) {
	err := newKeyResolvedError(newKey(), state.NewIdentity())

	assert.True(t, IsKeyResolvedError(err))
	assert.True(t, IsKeyResolvedError(fmt.Errorf("record: %w", err)), "wrapped errors match")
	assert.False(t, IsKeyResolvedError(newZeroKeyError()))
	assert.False(t, IsKeyResolvedError(errors.New("other")))
}
