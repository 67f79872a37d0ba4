package queue

import (
	"sync"

	"github.com/emirpasic/gods/queues/circularbuffer"

	"rtnode/internal/sched"
)

// Waiter suspends the calling task until cond holds or timeout ticks pass.
// *sched.Proc implements it.
type Waiter interface {
	WaitFor(cond func() bool, timeout sched.Tick) bool
}

// ByteChannel is a bounded FIFO of bytes. Sends wait up to a timeout while
// the channel is full and drop the byte after that; receives wait up to a
// timeout while it is empty.
type ByteChannel struct {
	mu  sync.Mutex
	buf *circularbuffer.Queue
	cap int

	sent     uint64
	dropped  uint64
	received uint64
	resets   uint64
}

// ChannelStats is a point-in-time copy of the channel counters.
type ChannelStats struct {
	Capacity int
	Pending  int
	Sent     uint64
	Dropped  uint64
	Received uint64
	Resets   uint64
}

// NewByteChannel creates a channel holding up to capacity bytes.
// A capacity below one is raised to one.
func NewByteChannel(capacity int) *ByteChannel {
	if capacity < 1 {
		capacity = 1
	}
	return &ByteChannel{
		buf: circularbuffer.New(capacity),
		cap: capacity,
	}
}

// Cap returns the channel capacity.
func (c *ByteChannel) Cap() int { return c.cap }

// Send appends b, waiting through w for up to timeout ticks while the
// channel is full. It reports false and drops b on timeout.
func (c *ByteChannel) Send(w Waiter, b byte, timeout sched.Tick) bool {
	if c.enqueue(b) {
		return true
	}
	if timeout > 0 && w != nil && w.WaitFor(c.hasRoom, timeout) && c.enqueue(b) {
		return true
	}
	c.drop()
	return false
}

// TrySend appends b if there is room. It never waits; a full channel
// drops b.
func (c *ByteChannel) TrySend(b byte) bool {
	return c.Send(nil, b, 0)
}

func (c *ByteChannel) enqueue(b byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	// circularbuffer overwrites its oldest element when full
	if c.buf.Full() {
		return false
	}
	c.buf.Enqueue(b)
	c.sent++
	return true
}

// Receive removes the oldest byte, waiting through w for up to timeout ticks
// while the channel is empty.
func (c *ByteChannel) Receive(w Waiter, timeout sched.Tick) (byte, bool) {
	if b, ok := c.TryReceive(); ok {
		return b, true
	}
	if timeout == 0 || w == nil {
		return 0, false
	}
	if !w.WaitFor(c.hasData, timeout) {
		return 0, false
	}
	return c.TryReceive()
}

// TryReceive removes the oldest byte without waiting.
func (c *ByteChannel) TryReceive() (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.buf.Dequeue()
	if !ok {
		return 0, false
	}
	c.received++
	return v.(byte), true
}

// Pending returns the number of bytes waiting to be received.
func (c *ByteChannel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Size()
}

// Reset discards everything still queued.
func (c *ByteChannel) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Clear()
	c.resets++
}

// Stats returns a copy of the channel counters.
func (c *ByteChannel) Stats() ChannelStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChannelStats{
		Capacity: c.cap,
		Pending:  c.buf.Size(),
		Sent:     c.sent,
		Dropped:  c.dropped,
		Received: c.received,
		Resets:   c.resets,
	}
}

func (c *ByteChannel) drop() {
	c.mu.Lock()
	c.dropped++
	c.mu.Unlock()
}

func (c *ByteChannel) hasRoom() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.buf.Full()
}

func (c *ByteChannel) hasData() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.buf.Empty()
}
