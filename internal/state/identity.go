package state

import (
	"fmt"

	"github.com/google/uuid"
)

// Identity is the stable 128-bit logical name of one entry.
//
// The same logical entry carries the same Identity whether it currently
// exists in predicted form, authoritative form, or both, and on every
// peer. The zero value is invalid and means "no identity".
type Identity uuid.UUID

// NewIdentity returns a fresh random identity.
//
// Used for entries with natural object identity (an item instance that is
// minted exactly once, on whichever peer originates it). Entries without
// natural object identity must use DeriveIdentity instead.
func NewIdentity() Identity {
	return Identity(uuid.Must(uuid.NewRandom()))
}

// DeriveIdentity computes a deterministic identity from a namespace and a
// stable semantic key.
//
// This is the only correct way to name virtual entries (a named currency
// counter, a settings slot): every peer derives the same identity from
// the same key, with no coordination. The derivation is UUIDv5 (SHA-1
// name-based), which is a pure function of its inputs.
func DeriveIdentity(namespace Identity, semanticKey string) Identity {
	return Identity(uuid.NewSHA1(uuid.UUID(namespace), []byte(semanticKey)))
}

// ParseIdentity parses the canonical hyphenated string form.
func ParseIdentity(s string) (Identity, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Identity{}, fmt.Errorf("parse identity %q: %w", s, err)
	}
	return Identity(u), nil
}

// IsZero reports whether the identity is the invalid zero value.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// String returns the canonical hyphenated string form.
func (id Identity) String() string {
	return uuid.UUID(id).String()
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentity(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
