// internal/sched/scheduler.go

package sched

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Kernel is a single-processor, tick-driven, earliest-deadline-first
// scheduler running in virtual time. Task code between kernel calls takes
// no time; only Proc.Consume advances the reference clock.
type Kernel struct {
	mu      sync.Mutex // protects tasks/order/started against Add() during Run()
	started bool

	cpt   Cycles     // cycles per tick
	clock *TickClock // wall-clock pacing, nil unless realtime

	rbt   *redblacktree.Tree // ready tasks ordered by absolute deadline and task ID
	tasks map[TaskID]*Task
	order []*Task // registration order

	// Everything below is owned by the kernel goroutine.
	now        Cycles
	nextTick   Tick
	idle       Cycles
	running    *Task  // task holding the processor, nil when idle
	current    TaskID // identity the switch hooks last saw switched in
	hasCurrent bool
	reports    chan report
	wg         sync.WaitGroup

	hooks     []SwitchHook
	tickHooks []TickHook
	observers []func(StatusEvent)
	statusCh  chan StatusEvent

	log zerolog.Logger

	// logging-related
	csvFile   *os.File
	csvWriter *csv.Writer
}

// New creates a new Kernel instance with the given configuration.
func New(cfg Config) *Kernel {
	cfg.Sanitize()
	k := &Kernel{
		cpt:      cfg.CyclesPerTick(),
		rbt:      redblacktree.NewWith(cmp),
		tasks:    make(map[TaskID]*Task),
		reports:  make(chan report),
		statusCh: make(chan StatusEvent, 256), // buffered channel for status events
		log:      zerolog.Nop(),
	}
	if cfg.Realtime {
		k.clock = NewTickClock(16)
		k.clock.Start(cfg.TickInterval())
	}
	return k
}

// SetLogger sets the logger status events are written to.
func (k *Kernel) SetLogger(log zerolog.Logger) { k.log = log }

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before Run().
func (k *Kernel) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "open csv event log")
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"tick", "cycles", "event", "task_id", "task", "abs_deadline", "misses"}); err != nil {
		f.Close()
		return errors.Wrap(err, "write csv header")
	}
	w.Flush()
	k.csvFile = f
	k.csvWriter = w
	return nil
}

// Add registers a task. Tasks can only be added before Run().
func (k *Kernel) Add(t *Task) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return errors.Errorf("task %d (%s): kernel already running", t.ID, t.Name)
	}
	if _, dup := k.tasks[t.ID]; dup {
		return errors.Errorf("task %d already exists", t.ID)
	}

	t.grant = make(chan Cycles)
	t.state = StateReady
	t.release = 0
	t.absDeadline = t.Deadline
	t.jobs = 1
	k.rbt.Put(nodeKey{t.absDeadline, t.ID}, t)
	k.tasks[t.ID] = t
	k.order = append(k.order, t)
	return nil
}

// Tasks returns the registered tasks in registration order.
func (k *Kernel) Tasks() []*Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]*Task(nil), k.order...)
}

// Lookup returns the task registered under id.
func (k *Kernel) Lookup(id TaskID) (*Task, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t, ok := k.tasks[id]
	return t, ok
}

// RunTimeCounter returns the reference clock. Call it from hooks or after
// Run() has returned.
func (k *Kernel) RunTimeCounter() Cycles { return k.now }

// Now returns the current tick. Same calling rules as RunTimeCounter.
func (k *Kernel) Now() Tick { return Tick(k.now / k.cpt) }

// IdleCycles returns the reference-clock time no task was ready.
func (k *Kernel) IdleCycles() Cycles { return k.idle }

// CyclesPerTick returns the number of reference-clock units per tick.
func (k *Kernel) CyclesPerTick() Cycles { return k.cpt }

// Run drives the kernel until ctx is done or, when horizon is non-zero, until
// horizon ticks of virtual time have elapsed. Status events are handled on
// the calling goroutine.
func (k *Kernel) Run(ctx context.Context, horizon Tick) error {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return errors.New("kernel already running")
	}
	k.started = true
	k.mu.Unlock()

	// start loop
	go k.loop(ctx, horizon)

	// consume events
	for ev := range k.statusCh {
		k.handleEvent(ev)
	}

	if k.csvFile != nil {
		k.csvWriter.Flush()
		if err := k.csvWriter.Error(); err != nil {
			k.csvFile.Close()
			return errors.Wrap(err, "flush csv event log")
		}
		return errors.Wrap(k.csvFile.Close(), "close csv event log")
	}
	return nil
}

// loop runs the dispatch loop. Between tick boundaries it hands the processor
// to the ready task with the earliest absolute deadline and waits for that
// task to use up its budget or suspend.
func (k *Kernel) loop(ctx context.Context, horizon Tick) {
	defer func() {
		k.shutdown()
		close(k.statusCh)
	}()

	for _, t := range k.order {
		k.spawn(t)
	}

	end := Cycles(horizon) * k.cpt
	for {
		// 1) check shutdown
		if ctx.Err() != nil {
			return
		}
		if horizon > 0 && k.now >= end {
			return
		}

		// 2) process every tick boundary reached so far
		for Tick(k.now/k.cpt) >= k.nextTick {
			if !k.onTick(ctx, k.nextTick) {
				return
			}
			k.nextTick++
		}
		k.unblock()

		// 3) pick the next task; idle to the boundary if nothing is ready
		boundary := (k.now/k.cpt + 1) * k.cpt
		next := k.pick()
		k.switchTo(next)
		if next == nil {
			k.idle += boundary - k.now
			k.now = boundary
			continue
		}

		// 4) run it until the boundary or until it suspends
		next.grant <- boundary - k.now
		r := <-k.reports
		k.now += r.used
		k.settle(r)
	}
}

func (k *Kernel) spawn(t *Task) {
	p := &Proc{k: k, t: t}
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		b, ok := <-t.grant
		if !ok {
			return
		}
		p.budget = b
		t.Run(p)
		k.reports <- report{t: t, used: p.used, why: reasonExit}
	}()
}

// shutdown closes the accounting window and unwinds every task goroutine.
func (k *Kernel) shutdown() {
	if k.clock != nil {
		k.clock.Stop()
	}
	if k.hasCurrent {
		k.switchedOut(k.current)
		k.hasCurrent = false
		k.running = nil
	}
	for _, t := range k.order {
		if t.state != StateDormant {
			close(t.grant)
		}
	}
	k.wg.Wait()
}

// onTick runs tick hooks, releases due tasks, expires timeouts and counts
// deadline misses. It reports false if ctx ended while pacing.
func (k *Kernel) onTick(ctx context.Context, now Tick) bool {
	if k.clock != nil && now > 0 {
		select {
		case <-k.clock.Ch:
		case <-ctx.Done():
			return false
		}
	}

	for _, h := range k.tickHooks {
		h(now)
	}

	for _, t := range k.order {
		switch t.state {
		case StateSleeping:
			if t.wake <= now {
				k.release(t, t.wake)
			}
		case StateBlocked:
			if t.blockUntil <= now && !t.cond() {
				t.timedOut = true
				k.makeReady(t)
				k.emit(StatusTimeout, t)
			}
		}
	}

	for _, t := range k.order {
		if t.state != StateReady && t.state != StateBlocked {
			continue
		}
		if !t.missed && now >= t.absDeadline {
			t.missed = true
			t.misses++
			k.emit(StatusDeadlineMiss, t)
		}
	}
	return true
}

// unblock readies blocked tasks whose condition now holds.
func (k *Kernel) unblock() {
	for _, t := range k.order {
		if t.state == StateBlocked && t.cond() {
			t.timedOut = false
			k.makeReady(t)
		}
	}
}

// pick returns the ready task with the earliest deadline. The running task
// keeps the processor unless another deadline is strictly earlier.
func (k *Kernel) pick() *Task {
	node := k.rbt.Left()
	if node == nil {
		return nil
	}
	best := node.Value.(*Task)
	if r := k.running; r != nil && r != best && r.state == StateReady && r.absDeadline <= best.absDeadline {
		return r
	}
	return best
}

// switchTo moves the processor to next (nil = idle), firing switch hooks
// only when the identity actually changes.
func (k *Kernel) switchTo(next *Task) {
	id := IdleTaskID
	if next != nil {
		id = next.ID
	}
	if k.hasCurrent && id == k.current {
		return
	}
	if k.hasCurrent {
		k.switchedOut(k.current)
		if k.running != nil && k.running.state == StateReady {
			k.emit(StatusPreempt, k.running)
		}
	}
	k.current, k.hasCurrent, k.running = id, true, next
	k.switchedIn(id)
	if next != nil {
		k.emit(StatusDispatch, next)
	} else {
		k.emit(StatusIdle, nil)
	}
}

// settle applies what the task reported when it gave the processor back.
func (k *Kernel) settle(r report) {
	t := r.t
	if r.why == reasonSlice {
		return
	}

	// the task left the processor before the boundary
	k.switchedOut(t.ID)
	k.hasCurrent, k.running = false, nil
	k.rbt.Remove(nodeKey{t.absDeadline, t.ID})

	switch r.why {
	case reasonSleep:
		k.emit(StatusSuspend, t)
		if t.wake <= k.Now() {
			k.release(t, t.wake)
		} else {
			t.state = StateSleeping
		}
	case reasonBlock:
		t.state = StateBlocked
		k.emit(StatusBlock, t)
	case reasonExit:
		t.state = StateDormant
		k.emit(StatusFinish, t)
	}
}

func (k *Kernel) release(t *Task, at Tick) {
	t.release = at
	t.absDeadline = at + t.Deadline
	t.missed = false
	t.jobs++
	k.makeReady(t)
	k.emit(StatusRelease, t)
}

func (k *Kernel) makeReady(t *Task) {
	t.state = StateReady
	k.rbt.Put(nodeKey{t.absDeadline, t.ID}, t)
}

func (k *Kernel) emit(kind StatusKind, t *Task) {
	ev := StatusEvent{
		Tick:   k.Now(),
		Cycles: k.now,
		Kind:   kind,
		TaskID: IdleTaskID,
		Name:   "IDLE",
	}
	if t != nil {
		ev.TaskID = t.ID
		ev.Name = t.Name
		ev.AbsDeadline = t.absDeadline
		ev.Misses = t.misses
	}
	k.statusCh <- ev
}

func (k *Kernel) handleEvent(ev StatusEvent) {
	for _, fn := range k.observers {
		fn(ev)
	}

	level := zerolog.TraceLevel
	if ev.Kind == StatusDeadlineMiss {
		level = zerolog.WarnLevel
	}
	k.log.WithLevel(level).
		Uint64("tick", uint64(ev.Tick)).
		Str("event", ev.Kind.String()).
		Str("task", ev.Name).
		Uint64("abs_deadline", uint64(ev.AbsDeadline)).
		Uint64("misses", ev.Misses).
		Msg("kernel")

	// CSV output
	if k.csvWriter != nil {
		id := "idle"
		if ev.TaskID != IdleTaskID {
			id = strconv.FormatUint(uint64(ev.TaskID), 10)
		}
		rec := []string{
			strconv.FormatUint(uint64(ev.Tick), 10),
			strconv.FormatUint(uint64(ev.Cycles), 10),
			ev.Kind.String(),
			id,
			ev.Name,
			strconv.FormatUint(uint64(ev.AbsDeadline), 10),
			strconv.FormatUint(ev.Misses, 10),
		}
		k.csvWriter.Write(rec)
	}
}

// nodeKey is used as a key in the red-black tree.
type nodeKey struct {
	deadline Tick
	id       TaskID
}

// cmp orders nodeKeys by absolute deadline, then task ID.
func cmp(a, b any) int {
	ka, kb := a.(nodeKey), b.(nodeKey)
	switch {
	case ka.deadline < kb.deadline:
		return -1
	case ka.deadline > kb.deadline:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}
