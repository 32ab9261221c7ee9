// Package clock supplies wall-clock timestamps in epoch milliseconds.
//
// Listings and chat messages are stamped through a Clock so tests can drive
// creation order deterministically (see testutil.DeterministicClock).
package clock

import "time"

// Clock returns the current time in epoch milliseconds.
type Clock interface {
	NowMillis() int64
}

// System reads the host clock.
//
// Thread-safety: System is stateless and safe for concurrent use.
type System struct{}

// NowMillis returns time.Now in epoch milliseconds.
func (System) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Func adapts a plain function to Clock.
type Func func() int64

// NowMillis calls f.
func (f Func) NowMillis() int64 {
	return f()
}
