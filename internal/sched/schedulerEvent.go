// internal/sched/schedulerEvent.go

package sched

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusRelease
	StatusDispatch
	StatusPreempt
	StatusSuspend
	StatusBlock
	StatusTimeout
	StatusDeadlineMiss
	StatusFinish
)

// StatusEvent is emitted on key kernel actions. Times are virtual.
type StatusEvent struct {
	Tick        Tick
	Cycles      Cycles
	Kind        StatusKind
	TaskID      TaskID
	Name        string
	AbsDeadline Tick
	Misses      uint64
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusRelease:
		return "Release"
	case StatusDispatch:
		return "Dispatch"
	case StatusPreempt:
		return "Preempt"
	case StatusSuspend:
		return "Suspend"
	case StatusBlock:
		return "Block"
	case StatusTimeout:
		return "Timeout"
	case StatusDeadlineMiss:
		return "DeadlineMiss"
	case StatusFinish:
		return "Finish"
	default:
		return "Unknown"
	}
}
