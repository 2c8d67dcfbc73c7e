package proc

import "time"

// readerFlushGrace bounds how long Wait lingers for the reader to flush the
// tail of the stream after the terminal state commits. The reader may outlive
// the process when an orphaned descendant keeps the output pipe open.
const readerFlushGrace = 200 * time.Millisecond

// EchoFunc receives output lines drained while waiting.
type EchoFunc func(line string)

// WaitOptions configures a single Wait call.
type WaitOptions struct {
	// Timeout bounds this call only; zero waits indefinitely. When it
	// elapses Wait returns an *OpTimeoutError and the process keeps running;
	// process-level timeouts are enforced solely by the watcher.
	Timeout time.Duration

	// Echo, when non-nil, receives queued output lines while waiting and a
	// final drain after completion.
	Echo EchoFunc
}

// Wait blocks until a terminal state commits and returns the exit code
// together with the terminal cause, if any.
func (p *Process) Wait() (int, error) {
	return p.WaitWith(WaitOptions{})
}

// WaitWith is Wait with a per-call timeout and optional line echoing.
func (p *Process) WaitWith(opts WaitOptions) (int, error) {
	if p.State() == StateCreated {
		return -1, ErrNotStarted
	}

	var expired <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		expired = timer.C
	}
	var echoTick <-chan time.Time
	if opts.Echo != nil {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		echoTick = ticker.C
	}

waiting:
	for {
		select {
		case <-p.done:
			break waiting
		case <-expired:
			p.echoPending(opts.Echo)
			return -1, &OpTimeoutError{Op: "wait", After: opts.Timeout}
		case <-echoTick:
			p.echoPending(opts.Echo)
		}
	}

	select {
	case <-p.readerDone:
	case <-time.After(readerFlushGrace):
	}
	p.echoPending(opts.Echo)

	return p.result()
}

func (p *Process) echoPending(echo EchoFunc) {
	if echo == nil {
		return
	}
	for _, line := range p.DrainOutput() {
		echo(line)
	}
}

// result maps the committed terminal state to Wait's return values.
func (p *Process) result() (int, error) {
	p.mu.Lock()
	state, code, cause := p.state, p.exitCode, p.cause
	p.mu.Unlock()

	switch state {
	case StateCompleted:
		if p.opts.Check && code != 0 {
			return code, &ExitError{Code: code, Command: p.CommandString(), Output: p.OutputString()}
		}
		return code, nil
	case StateTimedOut, StateKilled, StateFailed:
		return code, cause
	default:
		return -1, ErrNotStarted
	}
}
