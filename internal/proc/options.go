package proc

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Paintersrp/runproc/internal/outfmt"
	"github.com/Paintersrp/runproc/internal/proctree"
	"github.com/Paintersrp/runproc/internal/registry"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultKillGrace    = 2 * time.Second
)

// Info is the immutable snapshot passed to the OnTimeout callback, captured
// at the instant the timeout is detected.
type Info struct {
	PID      int
	Command  string
	Duration time.Duration
}

// Options configures a supervised process. Command and ShellCommand are
// mutually exclusive: Command is the argv form executed directly, while
// ShellCommand is a single string handed to the shell and requires Shell to
// be set.
type Options struct {
	Command      []string
	ShellCommand string

	// Shell runs the command through the system shell. With the argv form the
	// arguments are joined into a single quoted shell string first.
	Shell bool

	// Dir is the working directory; empty means inherit.
	Dir string

	// Env entries override or extend the inherited environment.
	Env map[string]string

	// Timeout is the global deadline measured from spawn. Zero disables it.
	Timeout time.Duration

	// IdleTimeout is the rolling deadline reset on every output line. Zero
	// disables it.
	IdleTimeout time.Duration

	// Check makes Wait return an *ExitError for non-zero exits.
	Check bool

	// AutoStart spawns the process inside New.
	AutoStart bool

	// OnTimeout is invoked at most once, from the watcher goroutine, when a
	// timeout breach wins the terminal transition. Panics are recovered and
	// logged.
	OnTimeout func(Info)

	// OnComplete is invoked at most once when natural completion wins the
	// terminal transition. Panics are recovered and logged.
	OnComplete func()

	// Formatter transforms output lines; nil means the identity formatter.
	Formatter outfmt.Formatter

	// Logger receives swallowed errors from cleanup, callbacks and workers.
	// Nil means slog.Default().
	Logger *slog.Logger

	// Terminator performs process-tree termination on kill. Nil selects the
	// platform default (process-group delivery where supported).
	Terminator proctree.Terminator

	// Registry tracks the process for introspection. Nil means the
	// process-scoped default registry.
	Registry *registry.Registry

	// KillGrace is the pause the default terminator allows between the polite
	// request and the forceful kill. Zero means proctree.DefaultGrace.
	KillGrace time.Duration

	// PollInterval bounds the watcher's timeout-detection latency. Zero means
	// 100ms. Exposed for tests.
	PollInterval time.Duration
}

var shellMetachars = []string{"&&", "||", "|", ";", ">", "<", "2>", "&"}

func (o *Options) validate() error {
	hasArgv := len(o.Command) > 0
	hasShellString := o.ShellCommand != ""
	switch {
	case !hasArgv && !hasShellString:
		return ErrEmptyCommand
	case hasArgv && hasShellString:
		return ErrAmbiguousCommand
	case hasShellString && !o.Shell:
		return ErrShellRequired
	}

	if hasArgv && !o.Shell {
		var found []string
		for _, arg := range o.Command {
			for _, meta := range shellMetachars {
				if arg == meta {
					found = append(found, arg)
					break
				}
			}
		}
		if len(found) > 0 {
			return &MetacharError{Tokens: found}
		}
	}
	return nil
}

// commandString renders the command for display and for shell invocation of
// the argv form.
func (o *Options) commandString() string {
	if o.ShellCommand != "" {
		return o.ShellCommand
	}
	return shellJoin(o.Command)
}

// shellJoin quotes arguments that would otherwise be split or interpreted by
// the shell.
func shellJoin(args []string) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if arg != "" && !strings.ContainsAny(arg, " \t\n\"'`$&|;<>()*?[]\\#~") {
			parts[i] = arg
			continue
		}
		parts[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
	}
	return strings.Join(parts, " ")
}

func (o *Options) pollInterval() time.Duration {
	if o.PollInterval > 0 {
		return o.PollInterval
	}
	return defaultPollInterval
}

func (o *Options) killGrace() time.Duration {
	if o.KillGrace > 0 {
		return o.KillGrace
	}
	return defaultKillGrace
}
