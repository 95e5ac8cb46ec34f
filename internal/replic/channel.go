// Package replic provides the loopback replication channel used to wire
// an authority peer to a client peer in-process.
//
// The channel models the transport guarantees the reconciliation engine
// assumes: per-identity FIFO delivery of deltas, and a key-signal lane
// that is ordered within itself but independent of the delta lane.
// Delivery is explicit (nothing moves until Flush), and individual
// identities can be held back to simulate latency and reordering
// between identities.
package replic

import (
	"sync"

	"github.com/roach88/specular/internal/state"
)

// Peer receives replicated traffic. Implemented by the containers in
// internal/container.
type Peer interface {
	ApplyDelta(state.Delta)
	ApplySignal(state.KeySignal)
}

type routedSignal struct {
	container string
	signal    state.KeySignal
}

// Channel is an in-process replication link from one authority peer to
// one client peer. Traffic is routed to receivers by container name.
//
// Thread-safe for external queuing, though the intended use is the
// single-threaded step loop of a harness.
type Channel struct {
	mu      sync.Mutex
	routes  map[string]Peer
	deltas  []state.Delta
	signals []routedSignal
	held    map[state.Identity]bool
}

// NewChannel creates an empty channel with no routes.
func NewChannel() *Channel {
	return &Channel{
		routes: make(map[string]Peer),
		held:   make(map[state.Identity]bool),
	}
}

// Route registers the receiving peer for a container name. Traffic for
// an unrouted container is dropped at flush time.
func (c *Channel) Route(container string, p Peer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[container] = p
}

// QueueDeltas appends deltas to the delta lane in order.
func (c *Channel) QueueDeltas(deltas ...state.Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deltas = append(c.deltas, deltas...)
}

// QueueSignal appends a key lifecycle signal for a container to the
// signal lane.
func (c *Channel) QueueSignal(container string, s state.KeySignal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = append(c.signals, routedSignal{container: container, signal: s})
}

// Hold blocks delivery of deltas for one identity. Deltas for held
// identities stay queued in order; deltas for other identities pass.
func (c *Channel) Hold(id state.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held[id] = true
}

// Release unblocks an identity. The backlog delivers on the next flush,
// still in its original order.
func (c *Channel) Release(id state.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, id)
}

// FlushDeltas delivers every queued delta whose identity is not held,
// preserving enqueue order, and returns the number delivered. Held
// deltas remain queued.
func (c *Channel) FlushDeltas() int {
	c.mu.Lock()
	var deliver, keep []state.Delta
	for _, d := range c.deltas {
		if c.held[d.Identity] {
			keep = append(keep, d)
			continue
		}
		deliver = append(deliver, d)
	}
	c.deltas = keep
	routes := c.routes
	c.mu.Unlock()

	n := 0
	for _, d := range deliver {
		if p, ok := routes[d.Container]; ok {
			p.ApplyDelta(d)
			n++
		}
	}
	return n
}

// FlushSignals delivers every queued key signal in order and returns
// the number delivered. Holds do not apply to the signal lane.
func (c *Channel) FlushSignals() int {
	c.mu.Lock()
	deliver := c.signals
	c.signals = nil
	routes := c.routes
	c.mu.Unlock()

	n := 0
	for _, rs := range deliver {
		if p, ok := routes[rs.container]; ok {
			p.ApplySignal(rs.signal)
			n++
		}
	}
	return n
}

// Flush delivers deltas first, then signals, and returns the total
// delivered. Delta-lane-first matches an authority that emits a key's
// terminal signal only after the key's deltas.
func (c *Channel) Flush() int {
	return c.FlushDeltas() + c.FlushSignals()
}

// PendingDeltas returns the number of queued, undelivered deltas.
func (c *Channel) PendingDeltas() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deltas)
}

// PendingSignals returns the number of queued, undelivered signals.
func (c *Channel) PendingSignals() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.signals)
}
