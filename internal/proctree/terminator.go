// Package proctree terminates a process together with its descendants.
//
// Full process-tree termination is only guaranteed on platforms with kernel
// job-control semantics, where the supervisor places the child in its own
// process group and signals the whole group. On Windows the terminator offers
// best-effort semantics: signals reach the direct child only, and any
// grandchildren may remain running and must be cleaned up by the caller. The
// RootOnly terminator makes that degradation explicit and injectable.
package proctree

import (
	"context"
	"time"
)

// DefaultGrace is the pause between the polite termination request and the
// forceful kill of survivors.
const DefaultGrace = 2 * time.Second

// Terminator terminates the process identified by pid. Implementations must
// be idempotent: terminating an already-dead process is not an error.
type Terminator interface {
	Terminate(ctx context.Context, pid int) error
}

// New returns the platform default terminator: graceful-then-forceful
// delivery to the whole process group where the OS supports it, root-only
// otherwise. A non-positive grace selects DefaultGrace.
func New(grace time.Duration) Terminator {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return newPlatformTerminator(grace)
}

// NewRootOnly returns a terminator that signals only the root process,
// leaving descendants untouched. It exists as the documented degradation
// path for callers that cannot (or must not) signal a whole process group;
// children of the root may be orphaned.
func NewRootOnly(grace time.Duration) Terminator {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &rootOnlyTerminator{grace: grace}
}
