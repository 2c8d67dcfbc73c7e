package outputq

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPopPreservesProductionOrder(t *testing.T) {
	q := New()
	for i := 0; i < 50; i++ {
		q.Push(fmt.Sprintf("line-%d", i))
	}
	q.Close()

	for i := 0; i < 50; i++ {
		line, err := q.Pop(0)
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if want := fmt.Sprintf("line-%d", i); line != want {
			t.Fatalf("pop %d: got %q want %q", i, line, want)
		}
	}
	if _, err := q.Pop(0); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected end of stream, got %v", err)
	}
}

func TestEndOfStreamIsSticky(t *testing.T) {
	q := New()
	q.Push("only")
	q.Close()
	q.Close()

	if _, err := q.Pop(0); err != nil {
		t.Fatalf("pop queued line: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := q.Pop(time.Second); !errors.Is(err, ErrEndOfStream) {
			t.Fatalf("pop %d after close: got %v want ErrEndOfStream", i, err)
		}
	}
	if _, ok, err := q.TryPop(); ok || !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("TryPop after close: ok=%v err=%v", ok, err)
	}
}

func TestPushAfterCloseIsDropped(t *testing.T) {
	q := New()
	q.Close()
	q.Push("late")
	if _, err := q.Pop(0); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected end of stream, got %v", err)
	}
}

func TestPopTimeoutBounds(t *testing.T) {
	q := New()
	const timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := q.Pop(timeout)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed < timeout {
		t.Fatalf("pop returned after %v, before the %v timeout", elapsed, timeout)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Fatalf("pop took %v, far past the %v timeout", elapsed, timeout)
	}
}

func TestPopWakesOnPush(t *testing.T) {
	q := New()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push("delivered")
	}()

	line, err := q.Pop(2 * time.Second)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if line != "delivered" {
		t.Fatalf("got %q want %q", line, "delivered")
	}
}

func TestPopWakesOnClose(t *testing.T) {
	q := New()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Close()
	}()

	if _, err := q.Pop(2 * time.Second); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected end of stream, got %v", err)
	}
}

func TestDrainSnapshotsWithoutConsumingMarker(t *testing.T) {
	q := New()
	q.Push("a")
	q.Push("b")
	q.Close()

	lines := q.Drain()
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Fatalf("drain: got %v", lines)
	}
	if got := q.Drain(); len(got) != 0 {
		t.Fatalf("second drain: got %v", got)
	}
	if _, err := q.Pop(0); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("pop after drain: got %v want ErrEndOfStream", err)
	}
}

func TestTryPopEmptyOpenQueue(t *testing.T) {
	q := New()
	if _, ok, err := q.TryPop(); ok || err != nil {
		t.Fatalf("TryPop on empty open queue: ok=%v err=%v", ok, err)
	}
	if q.Pending() != 0 {
		t.Fatalf("pending: got %d", q.Pending())
	}
	if q.Closed() {
		t.Fatal("queue reported closed")
	}
}
