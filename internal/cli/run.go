package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/runproc/internal/proc"
)

func newRunCmd(ctx *context) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <job>",
		Short: "Run a job defined in the job file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := ctx.loadJobs()
			if err != nil {
				return err
			}
			name := args[0]
			job, ok := doc.Jobs[name]
			if !ok {
				return fmt.Errorf("job %q not defined in %s (available: %v)", name, *ctx.jobFile, doc.JobsSorted())
			}
			ctx.serveMetrics()

			opts := proc.Options{
				Dir:         job.ResolvedWorkdir,
				Env:         job.Env,
				Timeout:     job.Timeout.Duration,
				IdleTimeout: job.IdleTimeout.Duration,
				KillGrace:   job.KillGrace.Duration,
				Check:       job.CheckEnabled(),
				Formatter:   buildFormatter(job),
			}
			if job.Command.IsShell() {
				opts.Shell = true
				opts.ShellCommand = job.Command.Shell
			} else {
				opts.Command = job.Command.Argv
			}
			flags.apply(&opts)

			return supervise(cmd.Context(), cmd, opts, &flags)
		},
	}

	flags.register(cmd)
	return cmd
}
