package proc

import (
	"errors"
	"time"

	"github.com/Paintersrp/runproc/internal/outputq"
)

// NoTimeout makes NextLine and Lines block indefinitely for each line.
const NoTimeout = outputq.NoTimeout

// NextLine returns the next output line in arrival order. A timeout of zero
// is non-blocking, NoTimeout blocks indefinitely. It returns ErrEndOfStream
// once the stream is exhausted (immediately, regardless of the timeout) and
// an *OpTimeoutError when the timeout elapses while the stream is still open.
func (p *Process) NextLine(timeout time.Duration) (string, error) {
	if p.State() == StateCreated {
		return "", ErrNotStarted
	}
	line, err := p.queue.Pop(timeout)
	switch {
	case err == nil:
		return line, nil
	case errors.Is(err, outputq.ErrEndOfStream):
		return "", ErrEndOfStream
	default:
		return "", &OpTimeoutError{Op: "next-line", After: timeout}
	}
}

// NextLineNonBlocking returns the next line without waiting. The boolean
// reports whether a line was returned; err is ErrEndOfStream once the stream
// is exhausted, nil when there is simply nothing queued yet.
func (p *Process) NextLineNonBlocking() (string, bool, error) {
	line, ok, err := p.queue.TryPop()
	if errors.Is(err, outputq.ErrEndOfStream) {
		return "", false, ErrEndOfStream
	}
	return line, ok, nil
}

// DrainOutput atomically removes and returns all currently queued lines
// without blocking. The end-of-stream condition stays observable for every
// other consumer.
func (p *Process) DrainOutput() []string {
	return p.queue.Drain()
}

// Lines returns a finite, non-restartable iterator over the output stream.
// Iteration stops at the end of the stream or when a per-line timeout
// elapses; the latter is reported by Err.
func (p *Process) Lines(timeout time.Duration) *LineIterator {
	return &LineIterator{proc: p, timeout: timeout}
}

// LineIterator walks the output stream line by line.
//
//	it := p.Lines(time.Second)
//	defer it.Close()
//	for line, ok := it.Next(); ok; line, ok = it.Next() {
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type LineIterator struct {
	proc    *Process
	timeout time.Duration
	err     error
	done    bool
}

// Next returns the next line. ok is false once the stream ends, the per-line
// timeout elapses, or the iterator has been closed.
func (it *LineIterator) Next() (string, bool) {
	if it.done {
		return "", false
	}
	line, err := it.proc.NextLine(it.timeout)
	if err != nil {
		it.done = true
		if !errors.Is(err, ErrEndOfStream) {
			it.err = err
		}
		return "", false
	}
	return line, true
}

// Err reports the error that cut iteration short, nil when iteration reached
// the end of the stream.
func (it *LineIterator) Err() error { return it.err }

// Close cancels iteration early. It is idempotent and safe to defer.
func (it *LineIterator) Close() { it.done = true }
