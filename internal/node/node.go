package node

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"rtnode/internal/exectime"
	"rtnode/internal/gpio"
	"rtnode/internal/job"
	"rtnode/internal/queue"
	"rtnode/internal/sched"
	"rtnode/internal/serial"
)

// Input pins of the two edge monitors and the trace port.
const (
	inputPort  gpio.Port = 1
	tracePort  gpio.Port = 0
	tickPin    gpio.Pin  = 0
	idlePin    gpio.Pin  = 7
	firstTrace gpio.Pin  = 1
)

// Node is the complete task set wired to its collaborators.
type Node struct {
	cfg    Config
	log    zerolog.Logger
	kernel *sched.Kernel
	mon    *exectime.Monitor
	bank   *gpio.SimBank
	in     gpio.Reader
	out    serial.Port

	edges    [2]*queue.Mailbox[Edge]
	stream   *queue.ByteChannel
	buttons  [2]*EdgeMonitor
	producer *Producer
	consumer *Consumer
	loads    [2]*LoadGenerator
	work     map[sched.TaskID]job.Workload
}

// Option customises a Node before its tasks are registered.
type Option func(*Node)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(n *Node) { n.log = log }
}

// WithWorkload replaces the calibrated busy loop of a load generator.
func WithWorkload(id sched.TaskID, w job.Workload) Option {
	return func(n *Node) { n.work[id] = w }
}

// WithInputs reads the edge monitor inputs from in instead of the scripted
// pin bank.
func WithInputs(in gpio.Reader) Option {
	return func(n *Node) { n.in = in }
}

// New builds the node from cfg and registers every task with a fresh
// kernel. Output goes to out.
func New(cfg Config, out serial.Port, opts ...Option) (*Node, error) {
	cfg.sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &Node{
		cfg:  cfg,
		log:  zerolog.Nop(),
		out:  out,
		work: make(map[sched.TaskID]job.Workload),
	}
	n.kernel = sched.New(cfg.Kernel)
	n.bank = gpio.NewSimBank(n.kernel.Now)
	n.bank.Script(cfg.Stimulus, cfg.Ticks)
	n.in = n.bank
	for _, opt := range opts {
		opt(n)
	}
	n.kernel.SetLogger(n.log.With().Str("component", "kernel").Logger())

	n.build()
	if err := n.register(); err != nil {
		return nil, err
	}
	n.instrument()

	if cfg.Kernel.CSVPath != "" {
		if err := n.kernel.EnableCSVLogging(cfg.Kernel.CSVPath); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *Node) build() {
	for i := range n.edges {
		n.edges[i] = queue.NewMailbox[Edge]()
		n.buttons[i] = NewEdgeMonitor(n.in, inputPort, gpio.Pin(i), n.edges[i])
	}

	s := n.cfg.Stream
	n.stream = queue.NewByteChannel(s.Capacity)
	n.producer = NewProducer(n.stream, s.Message, s.Length, n.cfg.Ticks(s.SendTimeoutMS))

	n.consumer = NewConsumer(n.out, n.stream, s.Length, n.log.With().Str("task", TaskName(Receiver)).Logger())
	n.consumer.Watch(TaskName(ButtonOne), n.edges[0])
	n.consumer.Watch(TaskName(ButtonTwo), n.edges[1])

	for i, id := range []sched.TaskID{LoadOne, LoadTwo} {
		w, ok := n.work[id]
		if !ok {
			tc, _ := n.cfg.Task(TaskName(id))
			w = job.Busy(time.Duration(tc.BusyUS)*time.Microsecond, n.cfg.LoopPerMS, n.cfg.Kernel)
		}
		n.loads[i] = NewLoadGenerator(w)
	}
}

// registration is one row of the task table.
type registration struct {
	id   sched.TaskID
	init func(*sched.Proc)
	job  func(*sched.Proc)
}

func (n *Node) registrations() []registration {
	return []registration{
		{id: ButtonOne, init: n.buttons[0].Prime, job: n.buttons[0].Release},
		{id: ButtonTwo, init: n.buttons[1].Prime, job: n.buttons[1].Release},
		{id: Transmitter, job: n.producer.Release},
		{id: Receiver, job: n.consumer.Release},
		{id: LoadOne, job: n.loads[0].Release},
		{id: LoadTwo, job: n.loads[1].Release},
	}
}

func (n *Node) register() error {
	for _, r := range n.registrations() {
		name := TaskName(r.id)
		tc, _ := n.cfg.Task(name)
		_, err := n.kernel.CreatePeriodicTask(sched.PeriodicSpec{
			ID:         r.id,
			Name:       name,
			StackWords: tc.StackWords,
			Priority:   1,
			Period:     n.cfg.Ticks(tc.PeriodMS),
			Deadline:   n.cfg.Ticks(tc.DeadlineMS),
			Cost:       n.cfg.Cycles(tc.CostUS),
			Init:       r.init,
			Job:        r.job,
		})
		if err != nil {
			return errors.Wrapf(err, "register %s", name)
		}
		n.log.Debug().Str("task", name).Int("period_ms", tc.PeriodMS).Int("deadline_ms", tc.DeadlineMS).Msg("task registered")
	}
	return nil
}

func (n *Node) instrument() {
	n.mon = exectime.New(n.kernel, TaskNames())
	n.kernel.Use(n.mon)
	if n.cfg.LoadReportMS > 0 {
		n.kernel.Use(newLoadReporter(n.mon, n.kernel, n.cfg, n.log))
	}
	if n.cfg.Trace {
		pins := make(map[sched.TaskID]gpio.Pin, NumTasks)
		for id := sched.TaskID(0); id < NumTasks; id++ {
			pins[id] = firstTrace + gpio.Pin(id)
		}
		tr := gpio.NewTracer(n.bank, tracePort, tickPin, idlePin, pins)
		n.kernel.Use(tr)
		n.kernel.OnTick(tr.Tick)
	}
	if n.cfg.RuntimeStats {
		n.consumer.WithStats(n.mon.Stats)
	}
}

// Run starts the scheduler and blocks until the configured run length has
// elapsed in virtual time or ctx is done.
func (n *Node) Run(ctx context.Context) error {
	n.log.Info().Int("run_ms", n.cfg.RunMS).Bool("realtime", n.cfg.Kernel.Realtime).Msg("task set starting")
	err := n.kernel.Run(ctx, n.cfg.Ticks(n.cfg.RunMS))
	n.log.Info().Float64("cpu_load", n.mon.CPULoad()).Uint64("tick", uint64(n.kernel.Now())).Msg("task set stopped")
	return err
}

// Kernel exposes the scheduler.
func (n *Node) Kernel() *sched.Kernel { return n.kernel }

// Monitor exposes the execution-time monitor.
func (n *Node) Monitor() *exectime.Monitor { return n.mon }

// Pins exposes the simulated pin bank.
func (n *Node) Pins() *gpio.SimBank { return n.bank }

// Config returns the effective configuration.
func (n *Node) Config() Config { return n.cfg }
