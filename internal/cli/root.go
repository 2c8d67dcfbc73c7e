package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/runproc/internal/config"
	"github.com/Paintersrp/runproc/internal/metrics"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var jobFile string
	var metricsAddr string

	root := &cobra.Command{
		Use:   "runproc",
		Short: "Supervised process runner",
		Long: "runproc spawns commands under supervision: combined output streaming,\n" +
			"global and per-line timeouts, and whole-tree termination.",
	}

	root.PersistentFlags().
		StringVarP(&jobFile, "file", "f", "jobs.yaml", "Path to job definitions")
	root.PersistentFlags().
		StringVar(&metricsAddr, "metrics-listen", os.Getenv("RUNPROC_METRICS_LISTEN"), "Address to serve Prometheus metrics on (empty disables)")

	ctx := &context{jobFile: &jobFile, metricsAddr: &metricsAddr}
	root.AddCommand(newExecCmd(ctx))
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newListCmd(ctx))
	root.AddCommand(newVersionCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint. The exit code of a supervised child
// becomes the exit code of runproc.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	jobFile     *string
	metricsAddr *string
}

func (c *context) loadJobs() (*config.File, error) {
	return config.Load(*c.jobFile)
}

// serveMetrics exposes the metrics registry when --metrics-listen is set. The
// server lives for the remainder of the process.
func (c *context) serveMetrics() {
	addr := *c.metricsAddr
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server exited: %v\n", err)
		}
	}()
}

// exitCodeError carries a supervised child's exit code to Execute without
// printing an extra message.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
