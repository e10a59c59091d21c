// Package idletest provides a manually advanced clock for timer tests.
package idletest

import (
	"sort"
	"sync"
	"time"

	"garagepro/internal/idle"
)

// Clock is an idle.Clock whose time only moves on Advance. Due callbacks run
// synchronously inside Advance, in deadline order.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	waiters []*waiter
}

type waiter struct {
	clock *Clock
	at    time.Time
	seq   int
	f     func()
}

var _ idle.Clock = (*Clock)(nil)

// NewClock returns a clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) idle.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	w := &waiter{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.waiters = append(c.waiters, w)
	return w
}

// Pending returns the number of callbacks that are scheduled and not stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Advance moves time forward by d, running every callback that comes due.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.Slice(c.waiters, func(i, j int) bool {
			if c.waiters[i].at.Equal(c.waiters[j].at) {
				return c.waiters[i].seq < c.waiters[j].seq
			}
			return c.waiters[i].at.Before(c.waiters[j].at)
		})
		if len(c.waiters) == 0 || c.waiters[0].at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		w := c.waiters[0]
		c.waiters = c.waiters[1:]
		c.now = w.at
		c.mu.Unlock()

		w.f()
	}
}

func (w *waiter) Stop() bool {
	c := w.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.waiters {
		if other == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}
