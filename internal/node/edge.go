package node

import (
	"rtnode/internal/gpio"
	"rtnode/internal/queue"
	"rtnode/internal/sched"
)

// Edge is what an edge monitor reports for one release.
type Edge byte

const (
	EdgeNone    Edge = '='
	EdgeRising  Edge = '+'
	EdgeFalling Edge = '-'
)

// Classify compares two consecutive samples. No debouncing.
func Classify(prev, cur gpio.Level) Edge {
	switch {
	case cur == gpio.High && prev == gpio.Low:
		return EdgeRising
	case cur == gpio.Low && prev == gpio.High:
		return EdgeFalling
	default:
		return EdgeNone
	}
}

// EdgeMonitor samples one input per release and posts the classification
// to its mailbox.
type EdgeMonitor struct {
	in   gpio.Reader
	port gpio.Port
	pin  gpio.Pin
	out  *queue.Mailbox[Edge]

	prev    gpio.Level
	samples uint64
}

// NewEdgeMonitor watches port/pin on in and writes to out.
func NewEdgeMonitor(in gpio.Reader, port gpio.Port, pin gpio.Pin, out *queue.Mailbox[Edge]) *EdgeMonitor {
	return &EdgeMonitor{in: in, port: port, pin: pin, out: out}
}

// Prime takes the reference sample the first release compares against.
func (m *EdgeMonitor) Prime(*sched.Proc) {
	m.prev = m.in.ReadPin(m.port, m.pin)
}

// Release runs one job.
func (m *EdgeMonitor) Release(*sched.Proc) {
	m.Sample()
}

// Sample reads the input, posts its classification against the previous
// sample and keeps the new one.
func (m *EdgeMonitor) Sample() Edge {
	cur := m.in.ReadPin(m.port, m.pin)
	e := Classify(m.prev, cur)
	m.out.Overwrite(e)
	m.prev = cur
	m.samples++
	return e
}

// Samples returns the number of releases processed.
func (m *EdgeMonitor) Samples() uint64 { return m.samples }
