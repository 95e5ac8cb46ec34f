package testutil

import "sync"

// StepClock provides a thread-safe monotonic logical clock for tests.
//
// Unlike engine.Clock, StepClock can be reset for test reuse. This
// enables the same scenario to run multiple times with identical seq
// values, which golden trace comparison depends on.
type StepClock struct {
	mu  sync.Mutex
	seq int64
}

// NewStepClock creates a clock starting at 0; the first Next() returns 1.
func NewStepClock() *StepClock {
	return &StepClock{}
}

// Next increments and returns the next sequence number.
func (c *StepClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *StepClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset resets the clock to 0.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
