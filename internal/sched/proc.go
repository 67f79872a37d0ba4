package sched

import "runtime"

type reason int

const (
	reasonSlice reason = iota // budget for this tick used up, still runnable
	reasonSleep               // job finished, waiting for the next release
	reasonBlock               // waiting on a condition
	reasonExit                // entry returned
)

type report struct {
	t    *Task
	used Cycles
	why  reason
}

// Proc is a task's handle on the processor. Its methods may only be called
// from the task's own entry function, while the task holds the processor.
type Proc struct {
	k      *Kernel
	t      *Task
	budget Cycles // cycles granted until the next tick boundary
	used   Cycles // cycles spent out of budget
}

// Task returns the task this handle belongs to.
func (p *Proc) Task() *Task { return p.t }

// RunTimeCounter returns the reference clock as seen by the running task.
func (p *Proc) RunTimeCounter() Cycles { return p.k.now + p.used }

// Now returns the current tick count.
func (p *Proc) Now() Tick { return Tick(p.RunTimeCounter() / p.k.cpt) }

// Consume spends n cycles of processor time. The task can be preempted at
// every tick boundary crossed on the way.
func (p *Proc) Consume(n Cycles) {
	for n > 0 {
		avail := p.budget - p.used
		if n <= avail {
			p.used += n
			return
		}
		p.used += avail
		n -= avail
		p.yield(reasonSlice)
	}
}

// DelayUntil advances *prev by exactly period and suspends until that tick.
// If the tick has already passed the task is released again immediately.
func (p *Proc) DelayUntil(prev *Tick, period Tick) {
	*prev += period
	p.t.wake = *prev
	p.yield(reasonSleep)
}

// WaitFor suspends until cond holds or timeout ticks have elapsed. It
// reports whether cond held. A zero timeout never suspends, and neither
// does a nil handle (code running outside any task).
func (p *Proc) WaitFor(cond func() bool, timeout Tick) bool {
	if cond() {
		return true
	}
	if timeout == 0 || p == nil {
		return false
	}
	t := p.t
	t.cond = cond
	t.blockUntil = p.Now() + timeout
	t.timedOut = false
	defer func() { t.cond = nil }()
	for {
		p.yield(reasonBlock)
		if cond() {
			return true
		}
		if t.timedOut {
			return false
		}
	}
}

func (p *Proc) yield(why reason) {
	p.k.reports <- report{t: p.t, used: p.used, why: why}
	b, ok := <-p.t.grant
	if !ok {
		// kernel shut down; unwind the task goroutine
		runtime.Goexit()
	}
	p.budget, p.used = b, 0
}
