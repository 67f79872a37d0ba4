// Package exectime measures per-task execution time and processor load
// from the kernel's switch-in / switch-out boundary events.
//
// Every field written by a hook has exactly one writer: the kernel
// goroutine. The hooks also record the reference clock they saw, and
// Snapshot and Stats measure against that reading instead of the clock, so
// readers on other goroutines only ever perform atomic loads.
package exectime

import (
	"math"
	"sync/atomic"

	"rtnode/internal/sched"
)

// Clock is the reference clock the monitor stamps boundaries with.
type Clock interface {
	RunTimeCounter() sched.Cycles
}

type slot struct {
	in      atomic.Uint64 // reference clock at the last switch-in
	running atomic.Bool   // switched in and not yet out
	busy    atomic.Uint64 // cycles attributed since the epoch
	entries atomic.Uint64 // switch-ins since the epoch
}

// Monitor accumulates busy time for a fixed, closed set of task IDs
// 0..n-1. IDs outside that range, including the idle task, are ignored.
type Monitor struct {
	clock Clock
	names []string
	slots []slot

	epoch  atomic.Uint64 // reference clock at the last Reset
	last   atomic.Uint64 // reference clock at the most recent hook call
	loadPc atomic.Uint64 // float64 bits of the last computed CPU load
}

// New returns a monitor for len(names) tasks; names[i] labels task ID i.
func New(clock Clock, names []string) *Monitor {
	return &Monitor{
		clock: clock,
		names: append([]string(nil), names...),
		slots: make([]slot, len(names)),
	}
}

func (m *Monitor) slot(id sched.TaskID) *slot {
	if uint64(id) >= uint64(len(m.slots)) {
		return nil
	}
	return &m.slots[id]
}

// SwitchedIn records when the task entered the running state.
func (m *Monitor) SwitchedIn(id sched.TaskID) {
	now := m.stamp()
	s := m.slot(id)
	if s == nil {
		return
	}
	s.in.Store(now)
	s.running.Store(true)
	s.entries.Add(1)
}

// SwitchedOut charges the time since the matching switch-in to the task and
// recomputes the CPU load.
func (m *Monitor) SwitchedOut(id sched.TaskID) {
	now := m.stamp()
	s := m.slot(id)
	if s == nil || !s.running.Load() {
		return
	}
	in := s.in.Load()
	if epoch := m.epoch.Load(); in < epoch {
		in = epoch
	}
	if now > in {
		s.busy.Add(now - in)
	}
	s.running.Store(false)
	m.loadPc.Store(math.Float64bits(m.compute(now)))
}

// stamp reads the clock on the kernel goroutine and publishes the reading.
func (m *Monitor) stamp() uint64 {
	now := uint64(m.clock.RunTimeCounter())
	m.last.Store(now)
	return now
}

func (m *Monitor) compute(now uint64) float64 {
	elapsed := now - m.epoch.Load()
	if elapsed == 0 {
		return 0
	}
	var total uint64
	for i := range m.slots {
		total += m.slots[i].busy.Load()
	}
	load := float64(total) * 100 / float64(elapsed)
	if load > 100 {
		load = 100
	}
	return load
}

// CPULoad returns the load computed at the most recent switch-out, in
// percent.
func (m *Monitor) CPULoad() float64 {
	return math.Float64frombits(m.loadPc.Load())
}

// Reset zeroes every accumulator and starts a new measurement epoch at the
// current reference clock. Call it from the kernel goroutine (a hook or a
// task) or while the kernel is stopped.
func (m *Monitor) Reset() {
	for i := range m.slots {
		m.slots[i].busy.Store(0)
		m.slots[i].entries.Store(0)
	}
	now := uint64(m.clock.RunTimeCounter())
	m.epoch.Store(now)
	m.last.Store(now)
	m.loadPc.Store(0)
}

// TaskTime is one task's share of a Snapshot.
type TaskTime struct {
	ID       sched.TaskID
	Name     string
	Busy     sched.Cycles
	Switches uint64
	Percent  float64
}

// Snapshot is a consistent-enough copy of the accumulators for reporting.
type Snapshot struct {
	Now     sched.Cycles
	Elapsed sched.Cycles
	Busy    sched.Cycles
	CPULoad float64
	Tasks   []TaskTime
}

// Snapshot copies the accumulators as of the most recent switch. Time spent
// by a task that is switched in right now is not included until it switches
// out. Safe to call from any goroutine.
func (m *Monitor) Snapshot() Snapshot {
	now := m.last.Load()
	epoch := m.epoch.Load()
	snap := Snapshot{
		Now:     sched.Cycles(now),
		CPULoad: m.CPULoad(),
		Tasks:   make([]TaskTime, len(m.slots)),
	}
	if now > epoch {
		snap.Elapsed = sched.Cycles(now - epoch)
	}
	for i := range m.slots {
		busy := m.slots[i].busy.Load()
		tt := TaskTime{
			ID:       sched.TaskID(i),
			Name:     m.names[i],
			Busy:     sched.Cycles(busy),
			Switches: m.slots[i].entries.Load(),
		}
		if snap.Elapsed > 0 {
			tt.Percent = float64(busy) * 100 / float64(snap.Elapsed)
		}
		snap.Busy += tt.Busy
		snap.Tasks[i] = tt
	}
	return snap
}
