package node

import (
	"testing"

	"rtnode/internal/gpio"
	"rtnode/internal/queue"
)

// seqReader returns levels in order and repeats the last one.
type seqReader struct {
	levels []gpio.Level
	reads  int
}

func (r *seqReader) ReadPin(gpio.Port, gpio.Pin) gpio.Level {
	i := r.reads
	if i >= len(r.levels) {
		i = len(r.levels) - 1
	}
	r.reads++
	return r.levels[i]
}

func TestClassify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		prev, cur gpio.Level
		want      Edge
	}{
		{gpio.Low, gpio.Low, EdgeNone},
		{gpio.Low, gpio.High, EdgeRising},
		{gpio.High, gpio.High, EdgeNone},
		{gpio.High, gpio.Low, EdgeFalling},
	}
	for _, c := range cases {
		if got := Classify(c.prev, c.cur); got != c.want {
			t.Errorf("Classify(%v, %v) = %c, want %c", c.prev, c.cur, got, c.want)
		}
	}
}

func TestEdgeMonitorRisingThenUnchanged(t *testing.T) {
	t.Parallel()
	in := &seqReader{levels: []gpio.Level{gpio.Low, gpio.High, gpio.High}}
	mb := queue.NewMailbox[Edge]()
	m := NewEdgeMonitor(in, 1, 0, mb)

	m.Prime(nil)
	if e := m.Sample(); e != EdgeRising {
		t.Fatalf("first sample = %c, want +", e)
	}
	if e, ok := mb.TryRead(); !ok || e != EdgeRising {
		t.Fatalf("mailbox = %c/%v, want +", e, ok)
	}
	if e := m.Sample(); e != EdgeNone {
		t.Fatalf("second sample = %c, want =", e)
	}
	if e, ok := mb.TryRead(); !ok || e != EdgeNone {
		t.Fatalf("mailbox = %c/%v, want =", e, ok)
	}
	if m.Samples() != 2 {
		t.Fatalf("samples = %d, want 2", m.Samples())
	}
}

func TestEdgeMonitorMailboxKeepsLatest(t *testing.T) {
	t.Parallel()
	in := &seqReader{levels: []gpio.Level{gpio.High, gpio.Low, gpio.Low}}
	mb := queue.NewMailbox[Edge]()
	m := NewEdgeMonitor(in, 1, 1, mb)

	m.Prime(nil)
	m.Release(nil) // falling
	m.Release(nil) // unchanged, overwrites the falling edge

	if e, ok := mb.TryRead(); !ok || e != EdgeNone {
		t.Fatalf("mailbox = %c/%v, want =", e, ok)
	}
	if mb.Overwritten() != 1 {
		t.Fatalf("overwritten = %d, want 1", mb.Overwritten())
	}
}
