// Package gpio is the digital input/output collaborator: pin reads for the
// edge monitors and pin writes for execution tracing.
package gpio

import (
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
	"github.com/pkg/errors"

	"rtnode/internal/sched"
)

// Port selects a pin bank.
type Port uint8

// Pin selects a pin within a port.
type Pin uint8

// Level is the state of a digital pin.
type Level uint8

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// UnmarshalText accepts "high"/"low" and "1"/"0".
func (l *Level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "high", "HIGH", "1":
		*l = High
	case "low", "LOW", "0":
		*l = Low
	default:
		return errors.Errorf("invalid pin level %q", b)
	}
	return nil
}

// MarshalText is the inverse of UnmarshalText.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Reader reads a digital input.
type Reader interface {
	ReadPin(port Port, pin Pin) Level
}

// Writer drives a digital output.
type Writer interface {
	WritePin(port Port, pin Pin, level Level)
}

// Bank is both.
type Bank interface {
	Reader
	Writer
}

type pinKey struct {
	port Port
	pin  Pin
}

type output struct {
	level  Level
	rises  uint64
	writes uint64
}

// SimBank is an in-memory pin bank. Inputs follow a script of timed level
// changes evaluated against the kernel tick; outputs remember their level
// and count rising edges.
type SimBank struct {
	mu      sync.Mutex
	now     func() sched.Tick
	inputs  map[pinKey]*redblacktree.Tree // tick -> Level
	outputs map[pinKey]*output
}

// NewSimBank creates a bank whose inputs are evaluated at now().
func NewSimBank(now func() sched.Tick) *SimBank {
	return &SimBank{
		now:     now,
		inputs:  make(map[pinKey]*redblacktree.Tree),
		outputs: make(map[pinKey]*output),
	}
}

// Schedule makes the input read level from tick at onwards, until the next
// scheduled change on the same pin. Inputs are low before their first change.
func (b *SimBank) Schedule(port Port, pin Pin, at sched.Tick, level Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := pinKey{port, pin}
	tr, ok := b.inputs[k]
	if !ok {
		tr = redblacktree.NewWith(utils.UInt64Comparator)
		b.inputs[k] = tr
	}
	tr.Put(uint64(at), level)
}

// ReadPin returns the scripted level of an input at the current tick.
func (b *SimBank) ReadPin(port Port, pin Pin) Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	tr, ok := b.inputs[pinKey{port, pin}]
	if !ok {
		return Low
	}
	node, found := tr.Floor(uint64(b.now()))
	if !found {
		return Low
	}
	return node.Value.(Level)
}

// WritePin drives an output.
func (b *SimBank) WritePin(port Port, pin Pin, level Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := pinKey{port, pin}
	o, ok := b.outputs[k]
	if !ok {
		o = &output{}
		b.outputs[k] = o
	}
	if o.level == Low && level == High {
		o.rises++
	}
	o.level = level
	o.writes++
}

// Output returns the last level written to an output pin.
func (b *SimBank) Output(port Port, pin Pin) Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.outputs[pinKey{port, pin}]; ok {
		return o.level
	}
	return Low
}

// Rises returns how many low-to-high transitions an output has seen.
func (b *SimBank) Rises(port Port, pin Pin) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.outputs[pinKey{port, pin}]; ok {
		return o.rises
	}
	return 0
}
