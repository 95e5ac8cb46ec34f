package engine

import "sync/atomic"

// Clock is a monotonic logical clock for delta and signal ordering.
//
// The authority stamps every emitted delta with a strictly increasing
// seq from this clock. This ensures:
// - Deterministic ordering (no wall-clock race conditions)
// - Journal replay produces identical order
// - Per-identity delivery order is explicit
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though a single-threaded peer typically has one caller.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used by journal replay to resume from the last recorded position.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
