package proc

import (
	"context"
	"time"
)

// Result describes a finished one-shot run.
type Result struct {
	Command  string
	ExitCode int
	// Output is the combined stdout+stderr, newline joined.
	Output   string
	Duration time.Duration
}

// Run executes a command to completion under full supervision: drained
// output, merged streams, timeout protection and tree termination on
// cancellation. It is the one-shot convenience over New/Wait.
//
// The returned Result is non-nil whenever a process ran, including when err
// reports a timeout, kill or non-zero exit in check mode.
func Run(ctx context.Context, opts Options) (*Result, error) {
	opts.AutoStart = false
	p, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := p.Start(); err != nil {
		return nil, err
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

	code, waitErr := p.Wait()
	res := &Result{
		Command:  p.CommandString(),
		ExitCode: code,
		Output:   p.OutputString(),
		Duration: p.Duration(),
	}
	if waitErr != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, waitErr
	}
	return res, nil
}
