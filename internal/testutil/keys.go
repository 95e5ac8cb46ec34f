// Package testutil provides deterministic helpers for tests and the
// conformance harness: named prediction keys and a resettable step
// clock. Deterministic inputs are what make golden traces byte-stable.
package testutil

import (
	"github.com/google/uuid"

	"github.com/roach88/specular/internal/state"
)

// keyNamespace seeds deterministic test key derivation.
var keyNamespace = uuid.NewSHA1(uuid.UUID{}, []byte("specular/testutil/key"))

// NamedKeyGenerator derives prediction keys from scenario-level names
// ("K1", "K2", ...). The same name always yields the same key, across
// peers and runs, which lets scenario files refer to keys symbolically.
//
// Thread-safety: stateless and safe for concurrent use.
type NamedKeyGenerator struct{}

// KeyFor derives the key for a scenario name.
func (NamedKeyGenerator) KeyFor(name string) state.PredictionKey {
	return state.PredictionKey{
		Token:      uuid.NewSHA1(keyNamespace, []byte(name)),
		Generation: 1,
	}
}

// NewKey implements state.KeyGenerator with an arbitrary but
// deterministic sequence-free key; rarely wanted - prefer KeyFor.
func (g NamedKeyGenerator) NewKey() state.PredictionKey {
	return g.KeyFor("anonymous")
}
