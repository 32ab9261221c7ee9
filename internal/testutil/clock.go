package testutil

import "sync"

// DeterministicClock is a thread-safe, strictly increasing millisecond clock
// for tests.
//
// Every call to NowMillis advances the clock by Step, so records created one
// after another get distinct, ordered timestamps without sleeping.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	now   int64
	Step  int64
}

// NewDeterministicClock creates a clock whose first reading is start+1.
func NewDeterministicClock(start int64) *DeterministicClock {
	return &DeterministicClock{start: start, now: start, Step: 1}
}

// NowMillis advances the clock by Step and returns the new reading.
//
// Monotonic: never decreases while Step >= 0.
func (c *DeterministicClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.Step
	return c.now
}

// Current returns the last reading without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to ms. The next NowMillis returns ms+Step.
func (c *DeterministicClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ms
}

// Reset moves the clock back to its start value.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
