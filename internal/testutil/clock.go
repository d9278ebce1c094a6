package testutil

import "sync"

// DefaultEpoch is the first timestamp a DeterministicClock issues:
// 2023-11-14T22:13:20Z in milliseconds.
const DefaultEpoch int64 = 1700000000000

// DeterministicClock issues evenly spaced millisecond timestamps for tests.
//
// It satisfies ledger.Clock. The same scenario run against a fresh clock
// produces identical timestamps and therefore identical hashes.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	step  int64
	n     int64
}

// NewDeterministicClock creates a clock starting at DefaultEpoch that
// advances one millisecond per call.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(DefaultEpoch, 1)
}

// NewDeterministicClockAt creates a clock whose first Now() returns start
// and which advances by step (minimum 1) on every call.
func NewDeterministicClockAt(start, step int64) *DeterministicClock {
	if step < 1 {
		step = 1
	}
	return &DeterministicClock{start: start, step: step}
}

// Now returns the next timestamp.
func (c *DeterministicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.start + c.n*c.step
	c.n++
	return ts
}

// Calls returns how many timestamps have been issued.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock. After Reset, Now returns start again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}

// FixedClock always returns the same timestamp. Useful for forcing
// duplicate hashes.
type FixedClock int64

// Now returns the fixed timestamp.
func (c FixedClock) Now() int64 {
	return int64(c)
}
