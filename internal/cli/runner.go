package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/runproc/internal/config"
	"github.com/Paintersrp/runproc/internal/outfmt"
	"github.com/Paintersrp/runproc/internal/proc"
	"github.com/Paintersrp/runproc/internal/tui"
)

// runFlags are the supervision controls shared by exec and run.
type runFlags struct {
	timeout     time.Duration
	idleTimeout time.Duration
	killGrace   time.Duration
	workdir     string
	check       bool
	quiet       bool
	useTUI      bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Kill the process after this total runtime (0 disables)")
	cmd.Flags().DurationVar(&f.idleTimeout, "idle-timeout", 0, "Kill the process after this long without output (0 disables)")
	cmd.Flags().DurationVar(&f.killGrace, "kill-grace", 0, "Grace period between SIGTERM and SIGKILL")
	cmd.Flags().StringVarP(&f.workdir, "workdir", "C", "", "Working directory for the process")
	cmd.Flags().BoolVar(&f.check, "check", false, "Exit non-zero with an error message when the process fails")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "Do not echo process output")
	cmd.Flags().BoolVar(&f.useTUI, "tui", false, "Follow the process in a full-screen view")
}

func (f *runFlags) apply(opts *proc.Options) {
	if f.timeout > 0 {
		opts.Timeout = f.timeout
	}
	if f.idleTimeout > 0 {
		opts.IdleTimeout = f.idleTimeout
	}
	if f.killGrace > 0 {
		opts.KillGrace = f.killGrace
	}
	if f.workdir != "" {
		opts.Dir = f.workdir
	}
	if f.check {
		opts.Check = true
	}
}

// buildFormatter maps a job's formatter configuration onto an output
// formatter.
func buildFormatter(job *config.JobSpec) outfmt.Formatter {
	switch job.Formatter {
	case config.FormatterTimeDelta:
		return outfmt.NewTimeDelta()
	case config.FormatterPrefix:
		return outfmt.Prefix{Text: job.Prefix}
	default:
		return nil
	}
}

// supervise runs an already configured process to completion, echoing output
// unless quieted, and maps the outcome onto the CLI exit status.
func supervise(ctx stdcontext.Context, cmd *cobra.Command, opts proc.Options, flags *runFlags) error {
	if flags.useTUI && !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("--tui requires a terminal")
	}

	p, err := proc.New(opts)
	if err != nil {
		return err
	}
	if err := p.Start(); err != nil {
		return err
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			p.Kill()
		case <-finished:
		}
	}()

	if flags.useTUI {
		if err := tui.Follow(ctx, p); err != nil {
			return err
		}
	}

	var waitOpts proc.WaitOptions
	if !flags.quiet && !flags.useTUI {
		out := cmd.OutOrStdout()
		waitOpts.Echo = func(line string) { fmt.Fprintln(out, line) }
	}

	code, err := p.WaitWith(waitOpts)
	return mapResult(cmd.ErrOrStderr(), code, err)
}

// mapResult turns a supervision outcome into the CLI's error contract: clean
// runs return nil, child failures carry the child's exit code, supervision
// errors (timeouts, spawn failures) are reported and exit 1.
func mapResult(errOut io.Writer, code int, err error) error {
	if err == nil {
		if code != 0 {
			return &exitCodeError{code: code}
		}
		return nil
	}

	var exitErr *proc.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintf(errOut, "runproc: %v\n", err)
		return &exitCodeError{code: exitErr.Code}
	}

	var timedOut *proc.TimedOutError
	if errors.As(err, &timedOut) {
		fmt.Fprintf(errOut, "runproc: %v\n", timedOut)
		return &exitCodeError{code: 124}
	}
	if errors.Is(err, proc.ErrKilled) {
		return &exitCodeError{code: 130}
	}
	return err
}
