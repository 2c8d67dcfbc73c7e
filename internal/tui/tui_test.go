package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/runproc/internal/proc"
)

func TestHeaderText(t *testing.T) {
	info := proc.Info{
		PID:      4321,
		Command:  "make build",
		Duration: 1530 * time.Millisecond,
	}
	got := headerText(info, proc.StateRunning)

	for _, want := range []string{"make build", "pid 4321", "running", "1.5s"} {
		if !strings.Contains(got, want) {
			t.Fatalf("header %q missing %q", got, want)
		}
	}
}

func TestHeaderTextBeforeSpawn(t *testing.T) {
	got := headerText(proc.Info{Command: "sleep 1"}, proc.StateCreated)
	if !strings.Contains(got, "pid -") {
		t.Fatalf("header %q should render a placeholder pid", got)
	}
}
