// internal/sched/tickclock.go

package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickClock paces the kernel against the wall clock and counts wall ticks.
type TickClock struct {
	Ch      chan struct{}
	count   atomic.Int64
	dropped atomic.Int64
	stop    chan struct{}
	once    sync.Once
}

// NewTickClock creates a clock but does not start it.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins emitting ticks at the given interval.
// A tick that finds the buffer full is counted as dropped, never queued.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				select {
				case c.Ch <- struct{}{}:
				default:
					c.dropped.Add(1)
				}
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting ticks. Safe to call twice.
func (c *TickClock) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Count returns the number of wall ticks seen so far.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}

// Dropped returns the number of wall ticks the kernel fell behind on.
func (c *TickClock) Dropped() int64 {
	return c.dropped.Load()
}
