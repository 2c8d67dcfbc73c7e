// Package registry tracks supervised processes for introspection. It exists
// purely for diagnostics: nothing in process supervision depends on it, and a
// nil or missing registry never affects correctness.
package registry

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Process is the read-only view the registry keeps of a supervised process.
type Process interface {
	PID() int
	CommandString() string
	Running() bool
	StartTime() time.Time
	LastOutput() time.Time
}

// Handle identifies a registration.
type Handle = uuid.UUID

// Registry is a thread-safe collection of supervised processes. Construct
// with New; an explicit instance (rather than a package singleton) keeps
// tests isolated.
type Registry struct {
	mu      sync.RWMutex
	entries map[Handle]entry
}

type entry struct {
	proc       Process
	registered time.Time
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[Handle]entry)}
}

// Register adds a process and returns the handle used to unregister it.
func (r *Registry) Register(p Process) Handle {
	h := uuid.New()
	r.mu.Lock()
	r.entries[h] = entry{proc: p, registered: time.Now()}
	r.mu.Unlock()
	return h
}

// Unregister removes a registration. Unknown handles are ignored so that the
// multiple termination paths of a supervisor can all call it safely.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	delete(r.entries, h)
	r.mu.Unlock()
}

// List returns the processes that are still running, oldest first.
func (r *Registry) List() []Process {
	r.mu.RLock()
	active := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.proc.Running() {
			active = append(active, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		return active[i].registered.Before(active[j].registered)
	})
	procs := make([]Process, len(active))
	for i, e := range active {
		procs[i] = e.proc
	}
	return procs
}

// Len reports the number of registrations, finished or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CleanupFinished drops registrations whose process is no longer running and
// returns how many were removed.
func (r *Registry) CleanupFinished() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for h, e := range r.entries {
		if !e.proc.Running() {
			delete(r.entries, h)
			removed++
		}
	}
	return removed
}

// DumpStuck writes a diagnostic listing of every running process to w. It is
// intended for hang investigation: each line carries the pid, how long the
// process has run, and how long since it last produced output.
func (r *Registry) DumpStuck(w io.Writer) {
	procs := r.List()
	if len(procs) == 0 {
		fmt.Fprintln(w, "no active subprocesses detected")
		return
	}

	now := time.Now()
	fmt.Fprintln(w, "active subprocess commands:")
	for i, p := range procs {
		duration := "?"
		if start := p.StartTime(); !start.IsZero() {
			duration = now.Sub(start).Truncate(100 * time.Millisecond).String()
		}
		sinceOutput := "no-output"
		if last := p.LastOutput(); !last.IsZero() {
			sinceOutput = now.Sub(last).Truncate(100 * time.Millisecond).String()
		}
		fmt.Fprintf(w, "  %d. cmd=%s pid=%d duration=%s last_output=%s\n",
			i+1, p.CommandString(), p.PID(), duration, sinceOutput)
	}
}

var (
	defaultMu       sync.RWMutex
	defaultRegistry = New()
)

// Default returns the process-scoped registry used when a supervisor is not
// given an explicit one.
func Default() *Registry {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultRegistry
}

// SetDefault replaces the process-scoped registry and returns the previous
// instance, allowing tests to install an isolated registry and restore it.
func SetDefault(r *Registry) *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultRegistry
	if r != nil {
		defaultRegistry = r
	}
	return prev
}
