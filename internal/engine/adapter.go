package engine

import "github.com/roach88/specular/internal/state"

// Adapter bridges the generic engine to one concrete container shape.
//
// Type parameters:
//   - P: the payload of one speculative edit (what a prediction carries)
//   - E: the authoritative entry (what the server-confirmed store holds)
//   - V: the read-only view projection exposed to consumers
//
// The contract is checked at compile time; there is no runtime
// reflection. Implementations own the authoritative store for their
// container instance and expose it only through these methods.
//
// The engine calls Direct* methods only on the authority peer.
// FindAuthoritative returning nil is a benign "not found", never a fatal
// condition: the engine resolves stale identities as silent no-ops.
type Adapter[P, E, V any] interface {
	// IdentityOfPayload returns the stable identity named by a payload.
	IdentityOfPayload(P) state.Identity

	// IdentityOfEntry returns the stable identity of an authoritative
	// entry.
	IdentityOfEntry(*E) state.Identity

	// IsAuthority reports whether this peer holds authority for the
	// container instance.
	IsAuthority() bool

	// AuthoritativeEntries returns the server-confirmed entries in
	// stable order (insertion or explicit order). The effective view's
	// determinism depends on this ordering being stable.
	AuthoritativeEntries() []*E

	// FindAuthoritative returns a mutable reference to the entry for an
	// identity, or nil if no such entry exists.
	FindAuthoritative(state.Identity) *E

	// ProjectPayload projects a speculative payload into a view entry.
	ProjectPayload(P, state.OpKind) V

	// ProjectEntry projects an authoritative entry into a view entry.
	// For a correct prediction, ProjectPayload and ProjectEntry must
	// produce equal view entries, or confirmation will flicker.
	ProjectEntry(*E) V

	// DirectAdd creates an authoritative entry from a payload.
	// Authority-only.
	DirectAdd(P) *E

	// DirectRemove removes the authoritative entry for an identity,
	// reporting whether one existed. Authority-only.
	DirectRemove(state.Identity) bool

	// DirectChange mutates the authoritative entry for an identity,
	// returning nil if no such entry exists. Authority-only.
	DirectChange(state.Identity, P) *E

	// TransferPredictedState migrates predicted-only side data (e.g. a
	// locally-created placeholder resource) into the entry that is about
	// to become the source of truth. Called exactly once per confirmed
	// record, before the overlay record disappears. Implementations with
	// no side data make this a no-op.
	TransferPredictedState(P, *E)

	// StampOf returns a mutable reference to the entry's prediction
	// stamp.
	StampOf(*E) *state.Stamp

	// MarkDirty signals the transport layer that the entry changed and
	// must be propagated.
	MarkDirty(*E)
}
