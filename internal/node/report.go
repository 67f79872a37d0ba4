package node

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rtnode/internal/exectime"
	"rtnode/internal/queue"
	"rtnode/internal/sched"
)

// virtualEpoch anchors the kernel's reference clock on a time.Time so the
// rate limiter can run on virtual time.
var virtualEpoch = time.Unix(0, 0)

// loadReporter logs the CPU load at most once per report interval of
// virtual time. It must be registered after the monitor so the load it reads
// already includes the switch that triggered it.
type loadReporter struct {
	mon   *exectime.Monitor
	clock exectime.Clock
	cfg   sched.Config
	lim   *rate.Limiter
	log   zerolog.Logger
}

func newLoadReporter(mon *exectime.Monitor, clock exectime.Clock, cfg Config, log zerolog.Logger) *loadReporter {
	every := time.Duration(cfg.LoadReportMS) * time.Millisecond
	return &loadReporter{
		mon:   mon,
		clock: clock,
		cfg:   cfg.Kernel,
		lim:   rate.NewLimiter(rate.Every(every), 1),
		log:   log,
	}
}

func (r *loadReporter) SwitchedIn(sched.TaskID) {}

func (r *loadReporter) SwitchedOut(id sched.TaskID) {
	if id == sched.IdleTaskID {
		return
	}
	at := r.cfg.CyclesToDuration(r.clock.RunTimeCounter())
	if !r.lim.AllowN(virtualEpoch.Add(at), 1) {
		return
	}
	r.log.Info().
		Dur("at", at).
		Float64("cpu_load", r.mon.CPULoad()).
		Msg("load")
}

// TaskSummary is the end-of-run record of one task.
type TaskSummary struct {
	ID       sched.TaskID
	Name     string
	Jobs     uint64
	Misses   uint64
	Busy     sched.Cycles
	Switches uint64
	Percent  float64
}

// Summary is the end-of-run report.
type Summary struct {
	Ticks       sched.Tick
	Elapsed     time.Duration
	CPULoad     float64
	Idle        sched.Cycles
	Tasks       []TaskSummary
	Stream      queue.ChannelStats
	TxDropped   uint64
	Messages    uint64
	Overwritten [2]uint64
	OutErrors   uint64
}

// Misses sums the deadline misses of every task.
func (s Summary) Misses() uint64 {
	var n uint64
	for _, t := range s.Tasks {
		n += t.Misses
	}
	return n
}

// Summary collects counters from every component. Call it after Run
// returns.
func (n *Node) Summary() Summary {
	snap := n.mon.Snapshot()
	s := Summary{
		Ticks:     n.kernel.Now(),
		Elapsed:   n.cfg.Kernel.CyclesToDuration(n.kernel.RunTimeCounter()),
		CPULoad:   snap.CPULoad,
		Idle:      n.kernel.IdleCycles(),
		Stream:    n.stream.Stats(),
		TxDropped: n.producer.Dropped(),
		Messages:  n.consumer.Messages(),
		OutErrors: n.consumer.OutputErrors(),
	}
	for i, mb := range n.edges {
		s.Overwritten[i] = mb.Overwritten()
	}
	for _, tt := range snap.Tasks {
		ts := TaskSummary{
			ID:       tt.ID,
			Name:     tt.Name,
			Busy:     tt.Busy,
			Switches: tt.Switches,
			Percent:  tt.Percent,
		}
		if t, ok := n.kernel.Lookup(tt.ID); ok {
			ts.Jobs = t.Jobs()
			ts.Misses = t.Misses()
		}
		s.Tasks = append(s.Tasks, ts)
	}
	return s
}
