//go:build !windows

package proctree

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

func newPlatformTerminator(grace time.Duration) Terminator {
	return &groupTerminator{grace: grace}
}

// groupTerminator signals the child's process group. It requires the process
// to have been started with Setpgid so that -pid addresses the whole tree.
type groupTerminator struct {
	grace time.Duration
}

func (t *groupTerminator) Terminate(ctx context.Context, pid int) error {
	if pid <= 0 {
		return nil
	}

	if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		// No dedicated group; fall back to signalling the root directly.
		if err := signalRoot(pid, unix.SIGTERM); err != nil {
			return err
		}
	}

	if waitGone(ctx, -pid, t.grace) {
		return nil
	}

	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return signalRoot(pid, unix.SIGKILL)
	}
	return nil
}

type rootOnlyTerminator struct {
	grace time.Duration
}

func (t *rootOnlyTerminator) Terminate(ctx context.Context, pid int) error {
	if pid <= 0 {
		return nil
	}
	if err := signalRoot(pid, unix.SIGTERM); err != nil {
		return err
	}
	if waitGone(ctx, pid, t.grace) {
		return nil
	}
	return signalRoot(pid, unix.SIGKILL)
}

func signalRoot(pid int, sig unix.Signal) error {
	if err := unix.Kill(pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}

// waitGone polls with signal 0 until the target no longer exists, the grace
// period elapses, or the context is cancelled. It reports whether the target
// disappeared. A zombie still counts as present; the caller's reaper is
// responsible for collecting it.
func waitGone(ctx context.Context, target int, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := unix.Kill(target, 0); errors.Is(err, unix.ESRCH) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
