// Package container provides concrete container types built on the
// generic engine: a discrete item container, a named currency ledger,
// and a schema-driven container whose shape comes from a compiled CUE
// spec.
//
// Each container implements engine.Adapter for its own data shape and
// owns the authoritative store for its instance. Containers also carry
// the transport seam used by the loopback channel and the journal: the
// authority side queues state.Delta envelopes as its entries change, and
// the client side applies received envelopes to its authoritative mirror
// before notifying the engine.
//
// The engine is owned by the container, and the container passes itself
// into every engine call; the engine never holds a container reference.
package container
