// Package proc supervises a single operating-system process: it spawns the
// process, streams its combined stdout+stderr without blocking the caller,
// enforces global and per-line timeouts independently of caller activity, and
// guarantees that exactly one terminal state commits no matter how the run
// ends.
//
// Three concurrent actors share a Process: the caller, the output reader and
// the timeout watcher. Natural exit, timeout and explicit kill race to perform
// the Running→terminal transition; all three funnel through a single
// mutex-guarded compare-and-commit, so whichever acquires it first wins and
// the losers become no-ops.
package proc

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Paintersrp/runproc/internal/metrics"
	"github.com/Paintersrp/runproc/internal/outfmt"
	"github.com/Paintersrp/runproc/internal/outputq"
	"github.com/Paintersrp/runproc/internal/proctree"
	"github.com/Paintersrp/runproc/internal/registry"
)

// Process supervises one spawned OS process. It is safe for concurrent use.
type Process struct {
	opts Options

	logger     *slog.Logger
	formatter  outfmt.Formatter
	terminator proctree.Terminator
	registry   *registry.Registry

	queue *outputq.Queue

	// shutdown is closed to ask both workers to exit within one interval.
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// done is closed exactly once, when a terminal state commits.
	done chan struct{}

	// reaped is closed once cmd.Wait has returned and the exit code is known.
	reaped chan struct{}

	// readerDone is closed when the output reader finishes, or on spawn
	// failure when no reader will ever run.
	readerDone chan struct{}

	lastOutput atomic.Int64 // unix nanos of the most recent line

	mu          sync.Mutex
	cmd         *exec.Cmd
	state       State
	exitCode    int
	cause       error
	reapCode    int
	startTime   time.Time
	endTime     time.Time
	output      []string
	regHandle   registry.Handle
	registered  bool
	endNotified bool

	completeOnce sync.Once
	timeoutOnce  sync.Once
}

// New validates the configuration and constructs a supervisor. With
// Options.AutoStart the process is spawned before New returns; a spawn
// failure then surfaces as the returned error and no workers are started.
func New(opts Options) (*Process, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	p := &Process{
		opts:       opts,
		logger:     opts.Logger,
		formatter:  opts.Formatter,
		terminator: opts.Terminator,
		registry:   opts.Registry,
		queue:      outputq.New(),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		reaped:     make(chan struct{}),
		readerDone: make(chan struct{}),
		state:      StateCreated,
		exitCode:   -1,
		reapCode:   -1,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.formatter == nil {
		p.formatter = outfmt.Null{}
	}
	if p.terminator == nil {
		p.terminator = proctree.New(opts.killGrace())
	}
	if p.registry == nil {
		p.registry = registry.Default()
	}

	if opts.AutoStart {
		if err := p.Start(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Start spawns the process, starts the output reader, the timeout watcher and
// the reaper, and transitions Created→Running. Spawn failures surface
// synchronously as a *SpawnError and leave the state at Failed.
func (p *Process) Start() error {
	p.mu.Lock()
	if p.state != StateCreated {
		state := p.state
		p.mu.Unlock()
		return errors.New("start: process already " + state.String())
	}
	p.mu.Unlock()

	name, args := p.invocation()
	cmd := exec.Command(name, args...)
	if p.opts.Dir != "" {
		cmd.Dir = p.opts.Dir
	}
	cmd.Env = p.environment()
	configureSysProcAttr(cmd)

	// One pipe carries both streams so consumers observe a single ordered
	// sequence of lines.
	pr, pw, err := os.Pipe()
	if err != nil {
		return p.failSpawn(err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return p.failSpawn(err)
	}
	// The child now owns the write end; closing ours lets the reader observe
	// EOF once the whole tree is done writing.
	pw.Close()

	p.mu.Lock()
	p.cmd = cmd
	p.state = StateRunning
	p.startTime = time.Now()
	p.mu.Unlock()

	metrics.ProcessStarted()
	if p.registry != nil {
		h := p.registry.Register(p)
		p.mu.Lock()
		p.regHandle = h
		p.registered = true
		p.mu.Unlock()
	}

	reader := &outputReader{
		src:       pr,
		queue:     p.queue,
		formatter: p.formatter,
		logger:    p.logger,
		shutdown:  p.shutdown,
		onLine:    p.consumeLine,
		onEnd:     p.notifyEnded,
		done:      p.readerDone,
	}
	go reader.run()
	go p.reap()

	watcher := &timeoutWatcher{proc: p, interval: p.opts.pollInterval()}
	go watcher.run()

	return nil
}

func (p *Process) failSpawn(err error) error {
	spawn := &SpawnError{Command: p.CommandString(), Err: err}
	p.mu.Lock()
	p.state = StateFailed
	p.cause = spawn
	p.mu.Unlock()
	close(p.readerDone)
	close(p.done)
	return spawn
}

func (p *Process) invocation() (string, []string) {
	if p.opts.Shell {
		return shellInvocation(p.opts.commandString())
	}
	return p.opts.Command[0], p.opts.Command[1:]
}

func (p *Process) environment() []string {
	env := os.Environ()
	for k, v := range p.opts.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// reap waits for the OS to report process exit and attempts to commit the
// natural-completion transition. If a timeout or kill already won, the commit
// is a no-op but the exit code is still recorded for Poll.
func (p *Process) reap() {
	err := p.cmd.Wait()

	code := 0
	var cause error
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
			cause = err
		}
	}

	p.mu.Lock()
	p.reapCode = code
	p.mu.Unlock()
	close(p.reaped)

	if cause != nil {
		p.logger.Warn("waiting on process failed", "command", p.CommandString(), "error", cause)
		p.commit(StateFailed, code, cause)
	} else {
		p.commit(StateCompleted, code, nil)
	}
	p.notifyEnded()
}

// commit is the single authoritative compare-and-commit on the process state.
// Exactly one caller observes true for a given run; everyone else loses the
// race and must treat the committed state as final.
func (p *Process) commit(state State, code int, cause error) bool {
	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		return false
	}
	p.state = state
	p.exitCode = code
	p.cause = cause
	if p.endTime.IsZero() {
		p.endTime = time.Now()
	}
	duration := p.endTime.Sub(p.startTime)
	p.mu.Unlock()

	close(p.done)
	metrics.ProcessFinished(state.String(), duration)

	if state == StateCompleted {
		p.fireOnComplete()
	}
	return true
}

// handleTimeout is invoked by the watcher on the first deadline breach. The
// Info snapshot is captured before the commit so the callback observes the
// state of the world at detection time.
func (p *Process) handleTimeout(elapsed time.Duration) {
	info := p.Info()
	if !p.commit(StateTimedOut, -1, &TimedOutError{After: elapsed}) {
		return
	}
	metrics.TimeoutTriggered()
	p.fireOnTimeout(info)
	p.logger.Warn("killing timed out process",
		"command", p.CommandString(), "pid", info.PID, "after", elapsed)
	p.signalShutdown()
	p.terminateTree()
	p.notifyEnded()
}

func (p *Process) fireOnTimeout(info Info) {
	cb := p.opts.OnTimeout
	if cb == nil {
		return
	}
	p.timeoutOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Warn("on_timeout callback panicked", "panic", r)
			}
		}()
		cb(info)
	})
}

func (p *Process) fireOnComplete() {
	cb := p.opts.OnComplete
	if cb == nil {
		return
	}
	p.completeOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Warn("on_complete callback panicked", "panic", r)
			}
		}()
		cb()
	})
}

// Kill terminates the process and its descendants. It is idempotent: when a
// terminal state has already committed it does nothing, and calling it twice
// has the effect of calling it once. Termination errors are logged, never
// returned.
func (p *Process) Kill() {
	p.stop(true)
}

// Terminate politely signals only the root process. Like Kill it attempts to
// commit the Killed state and loses the race gracefully; unlike Kill it never
// escalates to the process tree, so descendants may be orphaned.
func (p *Process) Terminate() {
	p.stop(false)
}

func (p *Process) stop(tree bool) {
	cmd := p.command()
	if cmd == nil || cmd.Process == nil {
		return
	}
	if !p.commit(StateKilled, -1, ErrKilled) {
		// A terminal state already won; the process is dead or dying.
		return
	}
	metrics.KillRequested()
	p.signalShutdown()
	if tree {
		p.terminateTree()
	} else {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Warn("failed to signal process", "pid", cmd.Process.Pid, "error", err)
		}
	}
	p.notifyEnded()
}

func (p *Process) terminateTree() {
	cmd := p.command()
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.killGrace()+3*time.Second)
	defer cancel()
	if err := p.terminator.Terminate(ctx, pid); err != nil {
		p.logger.Warn("process tree termination failed, killing root only",
			"pid", pid, "error", err)
		if killErr := cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			p.logger.Warn("failed to kill process", "pid", pid, "error", killErr)
		}
	}
}

func (p *Process) signalShutdown() {
	p.shutdownOnce.Do(func() { close(p.shutdown) })
}

// notifyEnded runs the idempotent end-of-life bookkeeping shared by the
// reader-end, reap, timeout and kill paths: record the end time and drop the
// registry entry.
func (p *Process) notifyEnded() {
	p.mu.Lock()
	if p.endNotified {
		p.mu.Unlock()
		return
	}
	p.endNotified = true
	if p.endTime.IsZero() {
		p.endTime = time.Now()
	}
	reg := p.registry
	handle := p.regHandle
	registered := p.registered
	p.registered = false
	p.mu.Unlock()

	if registered && reg != nil {
		reg.Unregister(handle)
	}
}

// consumeLine is the reader's per-line sink: it feeds the per-line timeout,
// the durable accumulation and the consumer queue, in that order.
func (p *Process) consumeLine(line string) {
	p.lastOutput.Store(time.Now().UnixNano())
	p.mu.Lock()
	p.output = append(p.output, line)
	p.mu.Unlock()
	p.queue.Push(line)
	metrics.AddOutputLines(1)
}

// Poll reports, without blocking, whether the OS has observed process exit,
// and the exit code if so. Observing the same exit twice is a no-op; the
// terminal transition itself is performed by the reaper.
func (p *Process) Poll() (int, bool) {
	select {
	case <-p.reaped:
	default:
		return -1, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reapCode, true
}

func (p *Process) command() *exec.Cmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd
}

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Running reports whether the process has been spawned and has not reached a
// terminal state.
func (p *Process) Running() bool {
	return p.State() == StateRunning
}

// Finished reports whether a terminal state has committed.
func (p *Process) Finished() bool {
	return p.State().Terminal()
}

// ExitCode returns the committed exit code, or -1 while running or when the
// process died from a signal.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// PID returns the operating-system process id, or 0 before spawn.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// StartTime returns when the process was spawned, zero before spawn.
func (p *Process) StartTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startTime
}

// EndTime returns when the run ended, zero while running.
func (p *Process) EndTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endTime
}

// Duration returns the elapsed run time: final once a terminal state has
// committed, running total otherwise.
func (p *Process) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startTime.IsZero() {
		return 0
	}
	if p.endTime.IsZero() {
		return time.Since(p.startTime)
	}
	return p.endTime.Sub(p.startTime)
}

// LastOutput returns the arrival time of the most recent output line, zero if
// none has arrived.
func (p *Process) LastOutput() time.Time {
	nanos := p.lastOutput.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Output returns a copy of every line produced so far, in arrival order,
// independent of what consumers have drained from the queue.
func (p *Process) Output() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.output...)
}

// OutputString returns the accumulated output joined with newlines.
func (p *Process) OutputString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.output, "\n")
}

// CommandString renders the configured command as a single shell-style string.
func (p *Process) CommandString() string {
	return p.opts.commandString()
}

// Info captures a snapshot of the process identity and elapsed duration.
func (p *Process) Info() Info {
	return Info{PID: p.PID(), Command: p.CommandString(), Duration: p.Duration()}
}
