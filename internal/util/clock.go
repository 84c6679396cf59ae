// Package util holds the clock that stamps records and the display labels
// derived from record timestamps.
package util

import (
	"sync"
	"time"
)

// Clock supplies the timestamps stored on users, posts, messages and flags.
type Clock interface {
	NowUtc() time.Time
}

// Stored timestamps keep millisecond precision, like the seeded records.
const stampPrecision = time.Millisecond

type RealClock struct{}

func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) NowUtc() time.Time {
	return time.Now().Truncate(stampPrecision).UTC()
}

// StubClock is a Clock for tests. It only moves when told to.
type StubClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewStubClock starts at the current wall time.
func NewStubClock() *StubClock {
	return NewStubClockAt(time.Now().Truncate(stampPrecision))
}

func NewStubClockAt(now time.Time) *StubClock {
	return &StubClock{now: now.UTC()}
}

func (c *StubClock) NowUtc() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *StubClock) SetNow(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

// Advance moves the clock forward by d and returns the new time.
func (c *StubClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
