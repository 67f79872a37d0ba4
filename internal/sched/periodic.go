package sched

import (
	"github.com/pkg/errors"
)

// PeriodicSpec is everything CreatePeriodicTask needs to register a task.
type PeriodicSpec struct {
	ID         TaskID
	Name       string
	StackWords int
	Priority   int
	Period     Tick
	Deadline   Tick
	Cost       Cycles        // charged after every job, may be zero
	Init       func(p *Proc) // runs once before the first job, may be nil
	Job        func(p *Proc) // one unit of work per release
}

// Periodic builds an entry that runs job once per release. The release
// anchor is taken once, before the loop, and only ever advanced by period,
// so a slow job does not shift the phase of later releases.
func Periodic(period Tick, cost Cycles, init, job func(p *Proc)) func(p *Proc) {
	return func(p *Proc) {
		if init != nil {
			init(p)
		}
		last := p.Now()
		for {
			job(p)
			if cost > 0 {
				p.Consume(cost)
			}
			p.DelayUntil(&last, period)
		}
	}
}

// CreatePeriodicTask validates spec and adds a periodic task to the kernel.
func (k *Kernel) CreatePeriodicTask(spec PeriodicSpec) (*Task, error) {
	switch {
	case spec.Job == nil:
		return nil, errors.Errorf("task %q: no job function", spec.Name)
	case spec.Period == 0:
		return nil, errors.Errorf("task %q: period must be positive", spec.Name)
	case spec.Deadline == 0:
		return nil, errors.Errorf("task %q: deadline must be positive", spec.Name)
	case spec.Deadline > spec.Period:
		return nil, errors.Errorf("task %q: deadline %d exceeds period %d", spec.Name, spec.Deadline, spec.Period)
	case spec.ID == IdleTaskID:
		return nil, errors.Errorf("task %q: id is reserved for the idle task", spec.Name)
	}

	t := NewTask(spec.ID, spec.Name, spec.Period, spec.Deadline,
		Periodic(spec.Period, spec.Cost, spec.Init, spec.Job))
	t.StackWords = spec.StackWords
	t.Priority = spec.Priority
	if err := k.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}
