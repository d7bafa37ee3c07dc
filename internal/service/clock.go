package service

import (
	"sync"
	"time"
)

// Clock hands out millisecond timestamps that never go backwards within the
// process, even if the wall clock does.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock wraps now; nil means time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns the current instant truncated to storage precision.
func (c *Clock) Now() time.Time {
	t := c.now().UTC().Truncate(time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
