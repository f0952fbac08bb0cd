package trace

import "sync/atomic"

// Clock is a monotonic logical clock for ordering recorded engine calls.
//
// Calls are stamped with a strictly increasing seq from Next. Wall-clock
// time is never used for ordering, so replays and golden traces line up.
//
// Clock is safe for concurrent use, although a session records from a
// single logical thread.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start. Used to continue numbering
// after calls already persisted in a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
