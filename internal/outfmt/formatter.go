// Package outfmt defines the output-formatter capability applied to process
// output lines. A formatter's Begin and End bracket one read loop exactly
// once each; Transform is applied to every non-empty line in arrival order.
package outfmt

import (
	"fmt"
	"time"
)

// Formatter transforms process output lines. Implementations must tolerate
// Transform being called from a goroutine other than the one that called
// Begin, but never concurrently.
type Formatter interface {
	// Begin is invoked once before the first line is read.
	Begin()

	// Transform maps a raw output line to the line delivered to consumers.
	Transform(line string) string

	// End is invoked once after the final line, including when the stream
	// is cut short by a kill or shutdown.
	End()
}

// Null is the identity formatter used when no formatter is configured.
type Null struct{}

func (Null) Begin()                       {}
func (Null) Transform(line string) string { return line }
func (Null) End()                         {}

// TimeDelta prefixes each line with the seconds elapsed since Begin, e.g.
// "[1.23] building". Useful for timing long build or test runs.
type TimeDelta struct {
	start time.Time

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// NewTimeDelta constructs a TimeDelta formatter using the wall clock.
func NewTimeDelta() *TimeDelta {
	return &TimeDelta{}
}

func (f *TimeDelta) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *TimeDelta) Begin() {
	f.start = f.now()
}

func (f *TimeDelta) Transform(line string) string {
	elapsed := f.now().Sub(f.start).Seconds()
	return fmt.Sprintf("[%.2f] %s", elapsed, line)
}

func (f *TimeDelta) End() {}

// Prefix prepends a fixed string to every line.
type Prefix struct {
	Text string
}

func (Prefix) Begin() {}

func (f Prefix) Transform(line string) string {
	return f.Text + line
}

func (Prefix) End() {}
