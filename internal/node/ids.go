package node

import "rtnode/internal/sched"

// Task identities of the node. The set is closed: the kernel hands these IDs
// to the switch hooks and the execution-time monitor indexes its
// accumulators with them directly.
const (
	ButtonOne sched.TaskID = iota
	ButtonTwo
	Transmitter
	Receiver
	LoadOne
	LoadTwo

	NumTasks
)

var taskNames = [NumTasks]string{
	ButtonOne:   "B1",
	ButtonTwo:   "B2",
	Transmitter: "Tx",
	Receiver:    "Rx",
	LoadOne:     "L1",
	LoadTwo:     "L2",
}

var taskIDs = func() map[string]sched.TaskID {
	m := make(map[string]sched.TaskID, NumTasks)
	for id, name := range taskNames {
		m[name] = sched.TaskID(id)
	}
	return m
}()

// TaskName returns the short name of a task, or "IDLE" for the idle task.
func TaskName(id sched.TaskID) string {
	if id < NumTasks {
		return taskNames[id]
	}
	if id == sched.IdleTaskID {
		return "IDLE"
	}
	return "?"
}

// TaskNames lists the task names indexed by ID.
func TaskNames() []string {
	return append([]string(nil), taskNames[:]...)
}
