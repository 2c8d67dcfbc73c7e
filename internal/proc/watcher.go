package proc

import "time"

// timeoutWatcher enforces the global and per-line deadlines on its own
// goroutine, independent of what the caller thread is doing. Worst-case
// detection latency is one poll interval. It stops promptly once any terminal
// state commits.
type timeoutWatcher struct {
	proc     *Process
	interval time.Duration
}

func (w *timeoutWatcher) run() {
	if w.proc.opts.Timeout <= 0 && w.proc.opts.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.proc.done:
			return
		case <-w.proc.shutdown:
			return
		case <-ticker.C:
		}

		if breached, elapsed := w.breached(time.Now()); breached {
			w.proc.handleTimeout(elapsed)
			return
		}
	}
}

// breached evaluates both deadline flavors: the absolute deadline measured
// from spawn and the rolling deadline reset on every received line. The
// returned duration is the total elapsed run time at detection.
func (w *timeoutWatcher) breached(now time.Time) (bool, time.Duration) {
	start := w.proc.StartTime()
	if start.IsZero() {
		return false, 0
	}
	elapsed := now.Sub(start)

	if timeout := w.proc.opts.Timeout; timeout > 0 && elapsed > timeout {
		return true, elapsed
	}
	if idle := w.proc.opts.IdleTimeout; idle > 0 {
		last := w.proc.LastOutput()
		if last.IsZero() {
			last = start
		}
		if now.Sub(last) > idle {
			return true, elapsed
		}
	}
	return false, 0
}
