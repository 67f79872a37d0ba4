package node

import "time"

// TaskBudget is the static timing of one task as the schedulability check
// sees it.
type TaskBudget struct {
	Name     string
	Period   time.Duration
	Deadline time.Duration
	Exec     time.Duration // busy + cost per job
}

// Analysis is a static EDF check of the configured task set.
type Analysis struct {
	Tasks       []TaskBudget
	Utilization float64 // sum of C/T
	Density     float64 // sum of C/D
}

// Schedulable reports whether EDF is guaranteed to meet every deadline.
// With D == T this is the utilization bound; otherwise the density bound,
// which is sufficient but not necessary.
func (a Analysis) Schedulable() bool {
	return a.Density <= 1
}

// Analyze computes the utilization and density of the task table.
func (c Config) Analyze() Analysis {
	var a Analysis
	for _, name := range taskNames {
		t, ok := c.Task(name)
		if !ok || t.PeriodMS <= 0 {
			continue
		}
		b := TaskBudget{
			Name:     name,
			Period:   time.Duration(t.PeriodMS) * time.Millisecond,
			Deadline: time.Duration(t.DeadlineMS) * time.Millisecond,
			Exec:     time.Duration(t.BusyUS+t.CostUS) * time.Microsecond,
		}
		if b.Deadline <= 0 {
			b.Deadline = b.Period
		}
		a.Utilization += float64(b.Exec) / float64(b.Period)
		a.Density += float64(b.Exec) / float64(b.Deadline)
		a.Tasks = append(a.Tasks, b)
	}
	return a
}
