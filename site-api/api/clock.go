package api

import (
	"sync/atomic"
	"time"
)

// Clock hands out strictly increasing nanosecond timestamps so that two
// writes in the same process never share an event timestamp.
type Clock struct {
	last int64
	now  func() time.Time
}

// NewClock returns a clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Next returns a timestamp greater than every previous one.
func (c *Clock) Next() int64 {
	for {
		now := c.now().UnixNano()
		last := atomic.LoadInt64(&c.last)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&c.last, last, now) {
			return now
		}
	}
}

// Now returns the wall-clock time matching Next's resolution.
func (c *Clock) Now() time.Time {
	return time.Unix(0, c.Next()).UTC()
}
