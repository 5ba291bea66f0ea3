package runner

import "sync/atomic"

// Clock numbers fetch cycles.
//
// Every cycle attempt, successful or not, takes the next number, so a
// snapshot's Cycle identifies exactly which attempt produced it. Numbering
// starts at 0: the first cycle a Runner executes is cycle 0.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 0.
func NewClock() *Clock {
	return NewClockAt(-1)
}

// NewClockAt creates a clock positioned at last; the next call to Next
// returns last+1.
func NewClockAt(last int64) *Clock {
	c := &Clock{}
	c.seq.Store(last)
	return c
}

// Next returns the next cycle number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the most recently issued cycle number, or -1 when no
// cycle has started.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
