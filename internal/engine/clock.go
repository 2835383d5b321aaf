package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps included calls.
//
// Seq values are strictly increasing and never derived from wall time, so
// replay produces the same order on every node.
//
// Clock is safe for concurrent use; only the engine's writer advances it, and
// only once a call is included.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start, e.g. the last seq in the
// call log. The next call to Next returns start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Peek returns the seq the next included call will receive. Call IDs are
// derived from it before the call is known to be included.
func (c *Clock) Peek() int64 {
	return c.seq.Load() + 1
}

// Next advances the clock and returns the new sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the seq of the last included call, 0 before the first.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
