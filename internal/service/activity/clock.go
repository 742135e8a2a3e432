// Package activity records when the service last handled a request.
package activity

import (
	"sync/atomic"
	"time"
)

// Clock holds the last-activity timestamp. Writers race benignly; a reader
// may see a value one write stale.
type Clock struct {
	last atomic.Int64
	now  func() time.Time
}

// NewClock returns a clock initialized to the current time.
func NewClock() *Clock {
	return newClockAt(time.Now)
}

func newClockAt(now func() time.Time) *Clock {
	c := &Clock{now: now}
	c.last.Store(now().UnixNano())
	return c
}

// Touch records activity now.
func (c *Clock) Touch() {
	c.last.Store(c.now().UnixNano())
}

// Last returns the time of the last recorded activity.
func (c *Clock) Last() time.Time {
	return time.Unix(0, c.last.Load())
}

// IdleFor returns how long the service has been idle.
func (c *Clock) IdleFor() time.Duration {
	return c.now().Sub(c.Last())
}
