package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time for test clocks.
var Epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// SteppingClock is a deterministic objectid.Clock for tests.
//
// Each call to Now returns the current time and then advances it by the
// step. A zero step makes it a fixed clock. The clock can be reset so the
// same scenario replays with identical timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	now   time.Time
}

// NewSteppingClock creates a clock starting at start.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{start: start, step: step, now: start}
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) *SteppingClock {
	return NewSteppingClock(t, 0)
}

// Now returns the current time and advances the clock by one step.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the time the next Now call will report.
func (c *SteppingClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to its start time.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
