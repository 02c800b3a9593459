package lending

import (
	"sync"
	"time"
)

// Clock supplies the current date.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock in the configured location.
type SystemClock struct {
	Location *time.Location
}

// Today returns the current calendar day in the clock's location (UTC if none is set).
func (c SystemClock) Today() Date {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}

	return ToDate(time.Now().In(loc))
}

// FixedClock is a settable clock for tests and simulations. It is safe for concurrent use.
type FixedClock struct {
	mu    sync.RWMutex
	today Date
}

// NewFixedClock creates a FixedClock standing on the given day.
func NewFixedClock(today Date) *FixedClock {
	return &FixedClock{today: today}
}

// Today returns the day the clock is currently set to.
func (c *FixedClock) Today() Date {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.today
}

// Set moves the clock to the given day.
func (c *FixedClock) Set(today Date) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.today = today
}

// Advance moves the clock n days forward.
func (c *FixedClock) Advance(days int) Date {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.today = c.today.AddDays(days)

	return c.today
}
