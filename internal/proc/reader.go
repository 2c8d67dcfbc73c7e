package proc

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/Paintersrp/runproc/internal/outfmt"
	"github.com/Paintersrp/runproc/internal/outputq"
)

// maxLineBytes bounds a single output line; longer lines are split by the
// scanner rather than aborting the stream.
const maxLineBytes = 1024 * 1024

// outputReader drains the combined output pipe on its own goroutine so the
// child can never block on a full pipe. It guarantees that the end marker is
// pushed after the final line and that the formatter's Begin/End bracket the
// read loop exactly once each, even when the run is cut short.
type outputReader struct {
	src       io.ReadCloser
	queue     *outputq.Queue
	formatter outfmt.Formatter
	logger    *slog.Logger
	shutdown  <-chan struct{}
	onLine    func(string)
	onEnd     func()
	done      chan struct{}
}

func (r *outputReader) run() {
	defer close(r.done)
	r.begin()
	defer r.finish()

	scanner := bufio.NewScanner(r.src)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		select {
		case <-r.shutdown:
			return
		default:
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if !utf8.ValidString(line) {
			// Tolerate decode errors by substitution; never abort the loop.
			line = strings.ToValidUTF8(line, "�")
		}
		r.onLine(r.transform(line))
	}

	if err := scanner.Err(); err != nil && !isClosedPipe(err) {
		r.logger.Warn("output reader error", "error", err)
	}
}

// finish runs unconditionally: the end marker first so no consumer blocks
// forever, then the end-of-life notification, then the formatter epilogue.
func (r *outputReader) finish() {
	r.queue.Close()
	r.onEnd()
	r.end()
	if err := r.src.Close(); err != nil && !isClosedPipe(err) {
		r.logger.Warn("closing output pipe failed", "error", err)
	}
}

func (r *outputReader) begin() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("output formatter Begin panicked", "panic", rec)
		}
	}()
	r.formatter.Begin()
}

func (r *outputReader) end() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("output formatter End panicked", "panic", rec)
		}
	}()
	r.formatter.End()
}

// transform applies the formatter, falling back to the raw line when the
// formatter panics.
func (r *outputReader) transform(line string) (out string) {
	out = line
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("output formatter Transform panicked", "panic", rec)
			out = line
		}
	}()
	return r.formatter.Transform(line)
}

func isClosedPipe(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, fs.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
