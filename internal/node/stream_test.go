package node

import (
	"testing"

	"github.com/rs/zerolog"

	"rtnode/internal/queue"
	"rtnode/internal/serial"
)

func TestConsumerAssemblesMessage(t *testing.T) {
	t.Parallel()
	ch := queue.NewByteChannel(7)
	out := &serial.Buffer{}
	prod := NewProducer(ch, "\n100 ms", 7, 0)
	cons := NewConsumer(out, ch, 7, zerolog.Nop())

	prod.Release(nil)
	if ch.Pending() != 7 {
		t.Fatalf("pending = %d, want 7", ch.Pending())
	}
	cons.Release(nil)

	if got := out.String(); got != "\n100 ms" {
		t.Fatalf("output = %q, want %q", got, "\n100 ms")
	}
	if ch.Pending() != 0 || cons.Messages() != 1 {
		t.Fatalf("pending = %d, messages = %d", ch.Pending(), cons.Messages())
	}
}

func TestConsumerStripsPadding(t *testing.T) {
	t.Parallel()
	ch := queue.NewByteChannel(15)
	out := &serial.Buffer{}
	NewProducer(ch, "\n100 ms", 15, 0).Release(nil)
	NewConsumer(out, ch, 15, zerolog.Nop()).Release(nil)

	if got := out.String(); got != "\n100 ms" {
		t.Fatalf("output = %q", got)
	}
}

func TestProducerDropsWhenFullWithoutTimeout(t *testing.T) {
	t.Parallel()
	ch := queue.NewByteChannel(1)
	prod := NewProducer(ch, "\n100 ms", 7, 0)

	prod.Release(nil)

	if prod.Dropped() != 6 {
		t.Fatalf("dropped = %d, want 6", prod.Dropped())
	}
	if b, ok := ch.TryReceive(); !ok || b != '\n' {
		t.Fatalf("head = %q/%v, want newline", b, ok)
	}
}

func TestProducerOutsideTaskDoesNotWait(t *testing.T) {
	t.Parallel()
	ch := queue.NewByteChannel(1)
	prod := NewProducer(ch, "\n100 ms", 7, 5)

	prod.Release(nil)

	if prod.Dropped() != 6 {
		t.Fatalf("dropped = %d, want 6", prod.Dropped())
	}
}

func TestConsumerReportsEdges(t *testing.T) {
	t.Parallel()
	ch := queue.NewByteChannel(4)
	out := &serial.Buffer{}
	b1 := queue.NewMailbox[Edge]()
	b2 := queue.NewMailbox[Edge]()
	cons := NewConsumer(out, ch, 4, zerolog.Nop())
	cons.Watch("B1", b1)
	cons.Watch("B2", b2)

	b1.Overwrite(EdgeRising)
	b2.Overwrite(EdgeNone)
	cons.Release(nil)
	if got, want := out.String(), "\nB1:+     "; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}

	// nothing new: both slots are blank
	out.Reset()
	cons.Release(nil)
	if got, want := out.String(), "          "; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}

	out.Reset()
	b2.Overwrite(EdgeFalling)
	cons.Release(nil)
	if got, want := out.String(), "     \nB2:-"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestConsumerAppendsStats(t *testing.T) {
	t.Parallel()
	out := &serial.Buffer{}
	cons := NewConsumer(out, queue.NewByteChannel(1), 1, zerolog.Nop())
	cons.WithStats(func() string { return "CPU 1%\r\n" })

	cons.Release(nil)
	if got, want := out.String(), "\nCPU 1%\r\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

type failingPort struct{}

func (failingPort) PutChar(byte) error     { return errFull }
func (failingPort) PutString([]byte) error { return errFull }

type portErr string

func (e portErr) Error() string { return string(e) }

const errFull = portErr("tx fifo full")

func TestConsumerCountsOutputErrors(t *testing.T) {
	t.Parallel()
	cons := NewConsumer(failingPort{}, queue.NewByteChannel(1), 1, zerolog.Nop())
	cons.Watch("B1", queue.NewMailbox[Edge]())

	cons.Release(nil)
	if cons.OutputErrors() != 1 {
		t.Fatalf("output errors = %d, want 1", cons.OutputErrors())
	}
}

// countingPort records how each byte reached the port.
type countingPort struct {
	serial.Buffer
	chars, puts int
}

func (p *countingPort) PutChar(c byte) error {
	p.chars++
	return p.Buffer.PutChar(c)
}

func (p *countingPort) PutString(s []byte) error {
	p.puts++
	return p.Buffer.PutString(s)
}

func TestConsumerSendsTagsPerCharacter(t *testing.T) {
	t.Parallel()
	ch := queue.NewByteChannel(7)
	out := &countingPort{}
	b1 := queue.NewMailbox[Edge]()
	cons := NewConsumer(out, ch, 7, zerolog.Nop())
	cons.Watch("B1", b1)

	b1.Overwrite(EdgeRising)
	NewProducer(ch, "\n100 ms", 7, 0).Release(nil)
	cons.Release(nil)

	if out.chars != 5 || out.puts != 1 {
		t.Fatalf("chars = %d, strings = %d, want 5 and 1", out.chars, out.puts)
	}
	if got, want := out.String(), "\nB1:+\n100 ms"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}
