package ledger

import (
	"sync/atomic"
	"time"
)

// Clock supplies event timestamps in milliseconds since the Unix epoch.
type Clock interface {
	Now() int64
}

// MonotonicClock is a wall clock that never repeats or goes backwards.
//
// Each call returns max(wall time, previous + 1). Under bursts faster than
// one record per millisecond the timestamps run slightly ahead of the
// wall clock and converge again once the burst ends.
//
// Thread-safety: MonotonicClock is safe for concurrent use (atomic CAS).
type MonotonicClock struct {
	wall func() time.Time
	last atomic.Int64
}

// NewMonotonicClock returns a clock backed by time.Now.
func NewMonotonicClock() *MonotonicClock {
	return NewMonotonicClockFrom(time.Now)
}

// NewMonotonicClockFrom returns a clock backed by wall.
func NewMonotonicClockFrom(wall func() time.Time) *MonotonicClock {
	return &MonotonicClock{wall: wall}
}

// Now returns the next timestamp. Calls are linearizable: each returns a
// unique, strictly increasing value.
func (c *MonotonicClock) Now() int64 {
	for {
		last := c.last.Load()
		next := c.wall().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if c.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
