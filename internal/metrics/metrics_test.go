package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paintersrp/runproc/internal/metrics"
)

func TestRegistryExposesMetrics(t *testing.T) {
	metrics.EmitBuildInfo()
	metrics.ProcessStarted()
	metrics.ProcessFinished("completed", 120*time.Millisecond)
	metrics.TimeoutTriggered()
	metrics.AddOutputLines(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status code from metrics handler: %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"runproc_processes_started_total",
		`runproc_processes_finished_total{state="completed"}`,
		"runproc_timeouts_total",
		"runproc_output_lines_total",
		"runproc_process_duration_seconds_bucket",
		"runproc_build_info{",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metric %q in body:\n%s", want, body)
		}
	}
	if !strings.Contains(body, "go_version=") {
		t.Fatalf("expected go_version label on build info metric:\n%s", body)
	}
}
