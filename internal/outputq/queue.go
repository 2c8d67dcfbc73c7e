// Package outputq provides the ordered line channel between a process output
// reader and its consumers. Producers never block; consumers can wait with a
// bounded timeout. Once the stream ends the end-of-stream condition is sticky:
// every consumer observes it after the final queued line, no matter how many
// consumers there are or in which order they arrive.
package outputq

import (
	"errors"
	"sync"
	"time"
)

// ErrEndOfStream is returned by Pop once the stream has been closed and all
// queued lines have been consumed. It signals normal exhaustion, not a failure.
var ErrEndOfStream = errors.New("output stream ended")

// ErrTimeout is returned by Pop when its timeout elapses before a line or the
// end of the stream becomes available.
var ErrTimeout = errors.New("timed out waiting for output line")

// NoTimeout makes Pop block until a line or the end of the stream arrives.
const NoTimeout = time.Duration(-1)

// Queue is an ordered, internally synchronized queue of output lines with a
// sticky end-of-stream marker. The zero value is not usable; construct with New.
type Queue struct {
	mu     sync.Mutex
	lines  []string
	closed bool
	wake   chan struct{}
}

// New constructs an empty, open queue.
func New() *Queue {
	return &Queue{wake: make(chan struct{})}
}

// Push appends a line. It never blocks and is a no-op after Close.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.lines = append(q.lines, line)
	q.broadcastLocked()
}

// Close marks the end of the stream. Lines pushed before Close remain
// consumable; Pop reports ErrEndOfStream only after they are drained.
// Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.broadcastLocked()
}

// broadcastLocked wakes every waiter by closing the current wake channel and
// installing a fresh one. Callers must hold q.mu.
func (q *Queue) broadcastLocked() {
	close(q.wake)
	q.wake = make(chan struct{})
}

// Pop removes and returns the oldest line. A timeout of zero makes Pop
// non-blocking, NoTimeout (or any negative value) makes it wait indefinitely.
// It returns ErrEndOfStream once the queue is closed and empty, or ErrTimeout
// when the timeout elapses first.
func (q *Queue) Pop(timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		q.mu.Lock()
		if len(q.lines) > 0 {
			line := q.lines[0]
			q.lines = q.lines[1:]
			q.mu.Unlock()
			return line, nil
		}
		if q.closed {
			q.mu.Unlock()
			return "", ErrEndOfStream
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-expired:
			// Prefer a line that raced in over reporting a timeout.
			q.mu.Lock()
			if len(q.lines) > 0 {
				line := q.lines[0]
				q.lines = q.lines[1:]
				q.mu.Unlock()
				return line, nil
			}
			if q.closed {
				q.mu.Unlock()
				return "", ErrEndOfStream
			}
			q.mu.Unlock()
			return "", ErrTimeout
		}
	}
}

// TryPop is the non-blocking variant of Pop. The boolean reports whether a
// line was returned; err is ErrEndOfStream once the stream is exhausted and
// nil when the queue is merely empty.
func (q *Queue) TryPop() (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) > 0 {
		line := q.lines[0]
		q.lines = q.lines[1:]
		return line, true, nil
	}
	if q.closed {
		return "", false, ErrEndOfStream
	}
	return "", false, nil
}

// Drain atomically removes and returns every currently queued line without
// blocking. The end-of-stream condition, if set, is preserved for other
// consumers.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	lines := q.lines
	q.lines = nil
	return lines
}

// Pending reports the number of lines currently queued.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Closed reports whether the end of the stream has been marked. Queued lines
// may still be pending consumption.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
