package sched

// SwitchHook observes every context switch. Both methods run on the kernel
// goroutine while no task holds the processor, one call at a time.
type SwitchHook interface {
	SwitchedIn(id TaskID)
	SwitchedOut(id TaskID)
}

// TickHook runs at the start of every tick, before releases are processed.
type TickHook func(now Tick)

// Use registers a switch hook. Must be called before Run().
func (k *Kernel) Use(h SwitchHook) {
	k.hooks = append(k.hooks, h)
}

// OnTick registers a tick hook. Must be called before Run().
func (k *Kernel) OnTick(h TickHook) {
	k.tickHooks = append(k.tickHooks, h)
}

// Observe registers a callback for every status event. Callbacks run on the
// goroutine that called Run(), not on the kernel goroutine.
func (k *Kernel) Observe(fn func(StatusEvent)) {
	k.observers = append(k.observers, fn)
}

func (k *Kernel) switchedIn(id TaskID) {
	for _, h := range k.hooks {
		h.SwitchedIn(id)
	}
}

func (k *Kernel) switchedOut(id TaskID) {
	for _, h := range k.hooks {
		h.SwitchedOut(id)
	}
}
