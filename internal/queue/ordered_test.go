package queue

import (
	"testing"

	"rtnode/internal/sched"
)

// stepWaiter runs step once per wait, standing in for the consumer getting
// the processor while the sender is blocked.
type stepWaiter struct {
	step  func()
	waits int
}

func (w *stepWaiter) WaitFor(cond func() bool, timeout sched.Tick) bool {
	w.waits++
	if w.step != nil {
		w.step()
	}
	return cond()
}

func drain(c *ByteChannel, n int) []byte {
	var out []byte
	for i := 0; i < n; i++ {
		b, ok := c.TryReceive()
		if !ok {
			break
		}
		out = append(out, b)
	}
	return out
}

func TestByteChannelFIFO(t *testing.T) {
	t.Parallel()
	msg := []byte("\n100 ms")
	c := NewByteChannel(len(msg))
	for _, b := range msg {
		if !c.Send(nil, b, 100) {
			t.Fatalf("Send(%q) failed within capacity", b)
		}
	}
	if c.Pending() != len(msg) {
		t.Fatalf("Pending = %d, want %d", c.Pending(), len(msg))
	}
	if got := drain(c, len(msg)); string(got) != string(msg) {
		t.Fatalf("drained %q, want %q", got, msg)
	}
}

func TestByteChannelZeroTimeoutDropsWhenFull(t *testing.T) {
	t.Parallel()
	c := NewByteChannel(1)
	if !c.TrySend('a') {
		t.Fatal("first send should fit")
	}
	if c.TrySend('b') {
		t.Fatal("second send should fail on a full channel")
	}
	if got := drain(c, 2); string(got) != "a" {
		t.Fatalf("drained %q, want %q", got, "a")
	}
	st := c.Stats()
	if st.Sent != 1 || st.Dropped != 1 {
		t.Fatalf("stats = %+v, want 1 sent 1 dropped", st)
	}
}

func TestByteChannelSendWaitsForRoom(t *testing.T) {
	t.Parallel()
	c := NewByteChannel(1)
	c.TrySend('a')
	w := &stepWaiter{step: func() { c.TryReceive() }}
	if !c.Send(w, 'b', 10) {
		t.Fatal("Send should succeed once the consumer made room")
	}
	if w.waits != 1 {
		t.Fatalf("waits = %d, want 1", w.waits)
	}
	if b, _ := c.TryReceive(); b != 'b' {
		t.Fatalf("received %q, want %q", b, 'b')
	}
}

func TestByteChannelSendTimesOut(t *testing.T) {
	t.Parallel()
	c := NewByteChannel(1)
	c.TrySend('a')
	w := &stepWaiter{}
	if c.Send(w, 'b', 10) {
		t.Fatal("Send should time out while nobody drains")
	}
	if c.Stats().Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", c.Stats().Dropped)
	}
}

func TestByteChannelReceiveWaits(t *testing.T) {
	t.Parallel()
	c := NewByteChannel(4)
	w := &stepWaiter{step: func() { c.TrySend('z') }}
	b, ok := c.Receive(w, 5)
	if !ok || b != 'z' {
		t.Fatalf("Receive = %q,%v", b, ok)
	}
	if _, ok := c.Receive(nil, 0); ok {
		t.Fatal("Receive on empty channel with zero timeout should fail")
	}
}

// A message that lost units to timeouts must not bleed into the next one
// once the consumer has drained and reset the channel.
func TestByteChannelResetAfterPartialMessage(t *testing.T) {
	t.Parallel()
	c := NewByteChannel(4)
	// producer cycle 1: "abcdef" into capacity 4, zero timeout, "ef" dropped
	for _, b := range []byte("abcdef") {
		c.TrySend(b)
	}
	// consumer drains a fixed length of 6; only 4 are there
	if got := drain(c, 6); string(got) != "abcd" {
		t.Fatalf("first drain %q, want %q", got, "abcd")
	}
	c.TrySend('x') // stale unit arriving between drain and reset
	c.Reset()
	if c.Pending() != 0 {
		t.Fatalf("Pending after Reset = %d", c.Pending())
	}

	for _, b := range []byte("ghij") {
		c.TrySend(b)
	}
	if got := drain(c, 6); string(got) != "ghij" {
		t.Fatalf("second drain %q, want %q", got, "ghij")
	}
	if c.Stats().Resets != 1 {
		t.Fatalf("Resets = %d, want 1", c.Stats().Resets)
	}
}

func TestByteChannelCapacityFloor(t *testing.T) {
	t.Parallel()
	if c := NewByteChannel(0); c.Cap() != 1 {
		t.Fatalf("Cap = %d, want 1", c.Cap())
	}
}
