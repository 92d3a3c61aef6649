package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a wall-time source for tests that advances by a
// fixed step on every reading.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	n    int64
}

// NewDeterministicClock creates a clock whose first reading is base.
//
// A zero base means 2025-01-01T00:00:00Z; a zero step means one second.
func NewDeterministicClock(base time.Time, step time.Duration) *DeterministicClock {
	if base.IsZero() {
		base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if step == 0 {
		step = time.Second
	}
	return &DeterministicClock{base: base, step: step}
}

// Now returns base + n*step and then advances n.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Reset rewinds the clock so the next reading is base again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
