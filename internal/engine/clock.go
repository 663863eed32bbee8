package engine

import (
	"sync/atomic"
	"time"
)

// Clock stamps creation times on sessions, objects and versions.
type Clock interface {
	Now() time.Time
}

// SystemClock reads wall time but never returns the same or an earlier
// instant twice within one process.
//
// Lookups order objects by creation time, so two objects created back to
// back by one writer must not share a timestamp.
//
// Thread-safety: SystemClock is safe for concurrent use (atomic operations).
type SystemClock struct {
	last atomic.Int64
}

// NewSystemClock creates a wall clock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current time in UTC, strictly after any earlier result.
func (c *SystemClock) Now() time.Time {
	for {
		now := time.Now().UnixNano()
		last := c.last.Load()
		if now <= last {
			now = last + 1
		}
		if c.last.CompareAndSwap(last, now) {
			return time.Unix(0, now).UTC()
		}
	}
}
