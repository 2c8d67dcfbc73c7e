package proc

import (
	"errors"
	"fmt"
	"time"

	"github.com/Paintersrp/runproc/internal/outputq"
)

// Configuration errors surfaced by New before any process exists.
var (
	// ErrEmptyCommand means neither an argv command nor a shell string was
	// provided.
	ErrEmptyCommand = errors.New("no command provided")

	// ErrShellRequired means a shell-string command was supplied without
	// shell mode.
	ErrShellRequired = errors.New("shell-string command requires shell mode")

	// ErrAmbiguousCommand means both the argv and shell-string forms were set.
	ErrAmbiguousCommand = errors.New("provide either an argv command or a shell string, not both")
)

// ErrNotStarted is returned by operations that require a spawned process.
var ErrNotStarted = errors.New("process has not been started")

// ErrKilled is the terminal cause reported by Wait after an explicit Kill or
// Terminate won the state transition.
var ErrKilled = errors.New("process was killed")

// ErrEndOfStream signals that the output stream is exhausted. It is a normal
// condition, not a failure, and it is sticky: once returned it is returned to
// every subsequent consumer.
var ErrEndOfStream = outputq.ErrEndOfStream

// MetacharError reports shell metacharacters found in an argv command while
// shell mode is off.
type MetacharError struct {
	Tokens []string
}

func (e *MetacharError) Error() string {
	return fmt.Sprintf("shell metacharacters %v in command but shell mode is off", e.Tokens)
}

// SpawnError wraps the operating system error that prevented process creation.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// OpTimeoutError reports that a single Wait or NextLine call exhausted its own
// timeout. The process itself keeps running; this is unrelated to the
// process-level timeouts enforced by the watcher.
type OpTimeoutError struct {
	Op    string
	After time.Duration
}

func (e *OpTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

// TimedOutError is the terminal cause reported by Wait after the watcher
// breached a global or per-line deadline and killed the process.
type TimedOutError struct {
	After time.Duration
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("process timed out after %s", e.After)
}

// ExitError reports a non-zero exit in check mode, carrying the combined
// output accumulated up to process exit.
type ExitError struct {
	Code    int
	Command string
	Output  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %s exited with code %d", e.Command, e.Code)
}
