package node

import (
	"bytes"

	"github.com/rs/zerolog"

	"rtnode/internal/queue"
	"rtnode/internal/sched"
	"rtnode/internal/serial"
)

// Producer writes a fixed message into the stream one unit at a time.
type Producer struct {
	ch      *queue.ByteChannel
	msg     []byte
	timeout sched.Tick

	dropped uint64
}

// NewProducer pads message with NUL up to length units.
func NewProducer(ch *queue.ByteChannel, message string, length int, timeout sched.Tick) *Producer {
	if length < len(message) {
		length = len(message)
	}
	msg := make([]byte, length)
	copy(msg, message)
	return &Producer{ch: ch, msg: msg, timeout: timeout}
}

// Release sends the whole message. A unit that times out is dropped and the
// rest of the message still goes out.
func (p *Producer) Release(proc *sched.Proc) {
	for _, b := range p.msg {
		if !p.ch.Send(proc, b, p.timeout) {
			p.dropped++
		}
	}
}

// Dropped returns how many units timed out.
func (p *Producer) Dropped() uint64 { return p.dropped }

// Consumer gathers the edge mailboxes and the stream once per release and
// forwards everything to the serial port. A pass never blocks.
type Consumer struct {
	out     serial.Port
	log     zerolog.Logger
	inputs  []edgeInput
	ch      *queue.ByteChannel
	length  int
	stats   func() string // nil = no run-time stats
	scratch []byte

	messages  uint64
	outErrors uint64
}

type edgeInput struct {
	tag []byte // "\nB1:"
	mb  *queue.Mailbox[Edge]
}

var filler = []byte("     ")

// NewConsumer drains length units from ch per message and forwards to out.
func NewConsumer(out serial.Port, ch *queue.ByteChannel, length int, log zerolog.Logger) *Consumer {
	return &Consumer{out: out, ch: ch, length: length, log: log, scratch: make([]byte, 0, length)}
}

// Watch adds a mailbox reported under name. Reports keep the order Watch
// was called in.
func (c *Consumer) Watch(name string, mb *queue.Mailbox[Edge]) {
	c.inputs = append(c.inputs, edgeInput{tag: []byte("\n" + name + ":"), mb: mb})
}

// WithStats appends the output of stats after every pass.
func (c *Consumer) WithStats(stats func() string) {
	c.stats = stats
}

// Release runs one pass.
func (c *Consumer) Release(*sched.Proc) {
	for _, in := range c.inputs {
		if e, ok := in.mb.TryRead(); ok && e != EdgeNone {
			c.putChars(append(in.tag[:len(in.tag):len(in.tag)], byte(e)))
		} else {
			c.putChars(filler)
		}
	}

	if c.ch.Pending() != 0 {
		buf := c.scratch[:0]
		for i := 0; i < c.length; i++ {
			if b, ok := c.ch.TryReceive(); ok {
				buf = append(buf, b)
			}
		}
		// the message is NUL padded; forward the text part only
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			buf = buf[:i]
		}
		c.put(buf)
		c.ch.Reset()
		c.messages++
	}

	if c.stats != nil {
		c.put([]byte("\n"))
		c.put([]byte(c.stats()))
	}
}

// Messages returns how many stream messages were forwarded.
func (c *Consumer) Messages() uint64 { return c.messages }

// OutputErrors returns how many writes the serial port rejected.
func (c *Consumer) OutputErrors() uint64 { return c.outErrors }

// putChars sends b one character at a time and gives up on the first
// rejected character.
func (c *Consumer) putChars(b []byte) {
	for _, ch := range b {
		if err := c.out.PutChar(ch); err != nil {
			c.outErrors++
			c.log.Debug().Err(err).Msg("serial output dropped")
			return
		}
	}
}

func (c *Consumer) put(b []byte) {
	if len(b) == 0 {
		return
	}
	if err := c.out.PutString(b); err != nil {
		c.outErrors++
		c.log.Debug().Err(err).Msg("serial output dropped")
	}
}
