package gpio

import "rtnode/internal/sched"

// Tracer mirrors the processor onto output pins so a logic analyser can
// watch the schedule: a task's pin is high while it is switched in, the
// idle pin while nothing is ready, and the tick pin pulses once per tick.
type Tracer struct {
	out     Writer
	port    Port
	tickPin Pin
	idlePin Pin
	pins    map[sched.TaskID]Pin
}

// NewTracer drives pins on port through out. Task IDs without an entry in
// pins are not traced.
func NewTracer(out Writer, port Port, tickPin, idlePin Pin, pins map[sched.TaskID]Pin) *Tracer {
	return &Tracer{out: out, port: port, tickPin: tickPin, idlePin: idlePin, pins: pins}
}

func (t *Tracer) pin(id sched.TaskID) (Pin, bool) {
	if id == sched.IdleTaskID {
		return t.idlePin, true
	}
	p, ok := t.pins[id]
	return p, ok
}

// SwitchedIn raises the task's pin.
func (t *Tracer) SwitchedIn(id sched.TaskID) {
	if p, ok := t.pin(id); ok {
		t.out.WritePin(t.port, p, High)
	}
}

// SwitchedOut lowers the task's pin.
func (t *Tracer) SwitchedOut(id sched.TaskID) {
	if p, ok := t.pin(id); ok {
		t.out.WritePin(t.port, p, Low)
	}
}

// Tick pulses the tick pin.
func (t *Tracer) Tick(sched.Tick) {
	t.out.WritePin(t.port, t.tickPin, High)
	t.out.WritePin(t.port, t.tickPin, Low)
}
