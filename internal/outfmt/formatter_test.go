package outfmt

import (
	"testing"
	"time"
)

func TestNullIsIdentity(t *testing.T) {
	var f Null
	f.Begin()
	if got := f.Transform("unchanged"); got != "unchanged" {
		t.Fatalf("got %q", got)
	}
	f.End()
}

func TestTimeDeltaPrefixesElapsedSeconds(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	f := NewTimeDelta()
	f.Now = func() time.Time { return now }

	f.Begin()

	now = base.Add(1230 * time.Millisecond)
	if got := f.Transform("compiling"); got != "[1.23] compiling" {
		t.Fatalf("got %q", got)
	}

	now = base.Add(10 * time.Second)
	if got := f.Transform("done"); got != "[10.00] done" {
		t.Fatalf("got %q", got)
	}
}

func TestPrefix(t *testing.T) {
	f := Prefix{Text: "worker-1 | "}
	if got := f.Transform("ready"); got != "worker-1 | ready" {
		t.Fatalf("got %q", got)
	}
}
