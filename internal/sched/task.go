package sched

import "math"

// TaskID uniquely identifies a task in the scheduler.
type TaskID uint64

// IdleTaskID is reported to switch hooks while no task is ready.
const IdleTaskID TaskID = math.MaxUint64

// Tick counts scheduler ticks.
type Tick uint64

// Cycles counts reference-clock units. Several cycles make one tick.
type Cycles uint64

// TaskState is where a task sits in the kernel.
type TaskState int

const (
	StateReady    TaskState = iota // in the run queue (includes the running task)
	StateSleeping                  // waiting for its next release
	StateBlocked                   // waiting on a condition with a timeout
	StateDormant                   // entry returned
)

func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateSleeping:
		return "Sleeping"
	case StateBlocked:
		return "Blocked"
	case StateDormant:
		return "Dormant"
	default:
		return "Unknown"
	}
}

// Task represents one schedulable task unit.
type Task struct {
	ID         TaskID
	Name       string
	StackWords int  // informational only
	Priority   int  // placeholder; dispatch order comes from Deadline
	Period     Tick // release interval
	Deadline   Tick // relative to each release, 0 < Deadline <= Period
	Run        func(p *Proc)

	state       TaskState
	release     Tick // release tick of the current job
	absDeadline Tick
	wake        Tick // next release while sleeping
	blockUntil  Tick
	cond        func() bool
	timedOut    bool
	missed      bool // current job already counted as a miss

	jobs   uint64
	misses uint64

	grant chan Cycles
}

// State returns the current kernel state of the task.
func (t *Task) State() TaskState { return t.state }

// Jobs returns how many jobs have been released so far.
func (t *Task) Jobs() uint64 { return t.jobs }

// Misses returns how many jobs were still incomplete at their deadline.
func (t *Task) Misses() uint64 { return t.misses }

// AbsDeadline returns the absolute deadline of the current job.
func (t *Task) AbsDeadline() Tick { return t.absDeadline }

// NewTask creates a task whose first job is released at tick zero.
// NOTE: the first job's deadline is set when the task is added to a kernel.
func NewTask(id TaskID, name string, period, deadline Tick, run func(p *Proc)) *Task {
	if deadline == 0 || deadline > period {
		deadline = period
	}
	return &Task{
		ID:       id,
		Name:     name,
		Period:   period,
		Deadline: deadline,
		Run:      run,
		state:    StateReady,
	}
}
