package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newListCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs defined in the job file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := ctx.loadJobs()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCOMMAND\tTIMEOUT\tIDLE TIMEOUT")
			for _, name := range doc.JobsSorted() {
				job := doc.Jobs[name]
				command := job.Command.Shell
				if !job.Command.IsShell() {
					command = strings.Join(job.Command.Argv, " ")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					name, command, renderDuration(job.Timeout.Duration), renderDuration(job.IdleTimeout.Duration))
			}
			return w.Flush()
		},
	}
	return cmd
}

func renderDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.String()
}
