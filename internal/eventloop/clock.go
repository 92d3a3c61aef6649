package eventloop

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Clock is the loop's only source of time.
//
// Now reports time elapsed since the clock was created. Sleep blocks for d
// or until ctx is done, whichever comes first, and returns ctx.Err() in the
// latter case.
type Clock interface {
	Now() time.Duration
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockKind selects a Clock implementation by name (configuration, flags).
type ClockKind string

const (
	// ClockWall sleeps for real.
	ClockWall ClockKind = "wall"
	// ClockVirtual advances instantly to the next timer.
	ClockVirtual ClockKind = "virtual"
)

// NewClock creates a fresh clock of the given kind.
// An empty kind selects the wall clock.
func NewClock(kind ClockKind) (Clock, error) {
	switch kind {
	case "", ClockWall:
		return NewWallClock(), nil
	case ClockVirtual:
		return NewVirtualClock(), nil
	default:
		return nil, fmt.Errorf("unknown clock %q: must be %q or %q", kind, ClockWall, ClockVirtual)
	}
}

// WallClock measures real elapsed time.
type WallClock struct {
	start time.Time
}

// NewWallClock creates a wall clock starting now.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Now returns real time elapsed since the clock was created.
func (c *WallClock) Now() time.Duration {
	return time.Since(c.start)
}

// Sleep waits for d, aborting early if ctx is done.
func (c *WallClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// VirtualClock is a logical clock that only moves when the loop sleeps.
//
// Sleeping never blocks, so a snippet that waits 300ms on a virtual clock
// finishes immediately while still observing 300ms of loop time.
//
// Thread-safety: safe for concurrent use via internal mutex, so the runner
// may read Now while the loop goroutine advances it.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewVirtualClock creates a virtual clock at zero.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// Now returns the current logical time.
func (c *VirtualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d without blocking.
func (c *VirtualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		c.mu.Lock()
		c.now += d
		c.mu.Unlock()
	}
	return nil
}
