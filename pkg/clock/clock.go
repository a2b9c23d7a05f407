// Package clock abstracts wall time and one-shot timers so that code which
// schedules work can be driven by simulated time in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a scheduled one-shot callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer; false means it already fired or was stopped.
	Stop() bool
}

// Clock provides the current time and one-shot timers.
type Clock interface {
	Now() time.Time
	// AfterFunc waits for d to elapse and then calls f in its own goroutine
	// (real clock) or in the goroutine advancing time (managed clock).
	AfterFunc(d time.Duration, f func()) Timer
}

type clock struct{}

// New returns an initialized instance of clock backed by the time package.
func New() Clock {
	return &clock{}
}

// Now returns the current time
func (c *clock) Now() time.Time {
	return time.Now()
}

func (c *clock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManagedClock is a struct used to hand manage time. Intended for tests
type ManagedClock struct {
	mu        sync.Mutex
	startTime time.Time
	offset    time.Duration
	seq       uint64
	timers    []*managedTimer
}

// NewManaged returns an initialized instance of managedClock for use in tests
func NewManaged(startTime time.Time) *ManagedClock {
	return &ManagedClock{startTime: startTime}
}

// Now returns the current managed time
func (c *ManagedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTime.Add(c.offset)
}

// AfterFunc registers f to run once the managed time reaches Now()+d.
func (c *ManagedClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &managedTimer{
		clock:    c,
		deadline: c.offset + d,
		seq:      c.seq,
		fn:       f,
	}
	c.timers = append(c.timers, t)
	return t
}

// WarpForward moves time forward by the provided offset within the clock and
// returns the new time. Timers that become due fire synchronously, in deadline
// order, with the clock set to their deadline. Timers scheduled by those
// callbacks fire too if they fall inside the warped window.
func (c *ManagedClock) WarpForward(offset time.Duration) time.Time {
	c.mu.Lock()
	target := c.offset + offset
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			if target > c.offset {
				c.offset = target
			}
			now := c.startTime.Add(c.offset)
			c.mu.Unlock()
			return now
		}
		if next.deadline > c.offset {
			c.offset = next.deadline
		}
		c.removeLocked(next)
		c.mu.Unlock()

		next.fn()
	}
}

// PendingTimers returns the number of timers that have neither fired nor
// been stopped.
func (c *ManagedClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *ManagedClock) nextDueLocked(target time.Duration) *managedTimer {
	if len(c.timers) == 0 {
		return nil
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline == c.timers[j].deadline {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].deadline < c.timers[j].deadline
	})
	if c.timers[0].deadline > target {
		return nil
	}
	return c.timers[0]
}

func (c *ManagedClock) removeLocked(t *managedTimer) bool {
	for i, candidate := range c.timers {
		if candidate == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

type managedTimer struct {
	clock    *ManagedClock
	deadline time.Duration
	seq      uint64
	fn       func()
}

func (t *managedTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.removeLocked(t)
}

// Why is there no WarpBackward? Time should never go backwards, especially in your tests
