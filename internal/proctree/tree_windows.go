//go:build windows

package proctree

import (
	"context"
	"errors"
	"os"
	"time"
)

// Without job objects Windows offers no way to address a whole process tree,
// so the platform terminator degrades to root-only delivery.
func newPlatformTerminator(grace time.Duration) Terminator {
	return &rootOnlyTerminator{grace: grace}
}

type rootOnlyTerminator struct {
	grace time.Duration
}

func (t *rootOnlyTerminator) Terminate(ctx context.Context, pid int) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}

	_ = proc.Signal(os.Interrupt)

	select {
	case <-time.After(t.grace):
	case <-ctx.Done():
	}

	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
