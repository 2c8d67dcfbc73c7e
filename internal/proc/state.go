package proc

import "fmt"

// State describes where a supervised process is in its lifecycle. The
// transition graph is Created → Running → one of the terminal states, and
// terminal states are sticky: once committed, the state never changes again.
type State int

const (
	// StateCreated means the process has been configured but not spawned.
	StateCreated State = iota
	// StateRunning means the process has been spawned and not yet finished.
	StateRunning
	// StateCompleted means the process exited on its own; the exit code may
	// be non-zero.
	StateCompleted
	// StateTimedOut means the watcher breached a global or per-line deadline
	// and terminated the process.
	StateTimedOut
	// StateKilled means an explicit Kill or Terminate won the terminal
	// transition.
	StateKilled
	// StateFailed means the process could not be spawned or waited on.
	StateFailed
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s >= StateCompleted
}

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateKilled:
		return "killed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}
