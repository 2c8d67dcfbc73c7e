package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/runproc/internal/proc"
)

func newExecCmd(ctx *context) *cobra.Command {
	var flags runFlags
	var shell bool
	var env []string

	cmd := &cobra.Command{
		Use:   "exec [flags] -- command [args...]",
		Short: "Run an ad-hoc command under supervision",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.serveMetrics()

			opts := proc.Options{}
			if shell {
				opts.Shell = true
				if len(args) == 1 {
					opts.ShellCommand = args[0]
				} else {
					opts.Command = args
				}
			} else {
				opts.Command = args
			}

			if len(env) > 0 {
				opts.Env = make(map[string]string, len(env))
				for _, entry := range env {
					key, value, ok := strings.Cut(entry, "=")
					if !ok || key == "" {
						return fmt.Errorf("invalid --env entry %q (expected KEY=VALUE)", entry)
					}
					opts.Env[key] = value
				}
			}
			flags.apply(&opts)

			return supervise(cmd.Context(), cmd, opts, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&shell, "shell", "s", false, "Run the command through the system shell")
	cmd.Flags().StringArrayVarP(&env, "env", "e", nil, "Additional environment variables (KEY=VALUE)")
	return cmd
}
