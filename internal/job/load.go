package job

import (
	"time"

	"rtnode/internal/sched"
)

// Workload is one release worth of synthetic computation.
type Workload func(p *sched.Proc)

// Iterations returns how many passes of an empty counted loop take d on a
// processor that runs loopPerMS passes per millisecond.
func Iterations(d time.Duration, loopPerMS int) int {
	if d <= 0 || loopPerMS <= 0 {
		return 0
	}
	return int(d.Microseconds() * int64(loopPerMS) / 1000)
}

// CountedLoop returns a workload that spends the processor time of
// iterations passes of an empty loop running at loopPerMS passes per
// millisecond. The time is charged to the reference clock in one piece; the
// kernel still preempts at every tick boundary inside it.
func CountedLoop(iterations, loopPerMS int, cfg sched.Config) Workload {
	var cost sched.Cycles
	if iterations > 0 && loopPerMS > 0 {
		cost = sched.Cycles(int64(iterations) * int64(cfg.CounterHz) / (int64(loopPerMS) * 1000))
	}
	return func(p *sched.Proc) {
		p.Consume(cost)
	}
}

// Busy returns a workload calibrated to take d at the nominal loop rate.
func Busy(d time.Duration, loopPerMS int, cfg sched.Config) Workload {
	return CountedLoop(Iterations(d, loopPerMS), loopPerMS, cfg)
}

// Fixed returns a workload that consumes exactly n cycles.
func Fixed(n sched.Cycles) Workload {
	return func(p *sched.Proc) {
		p.Consume(n)
	}
}
