package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	processesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runproc",
		Name:      "processes_started_total",
		Help:      "Total number of supervised processes spawned.",
	})

	processesRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runproc",
		Name:      "processes_running",
		Help:      "Number of supervised processes currently running.",
	})

	processesFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runproc",
		Name:      "processes_finished_total",
		Help:      "Total number of supervised processes by terminal state.",
	}, []string{"state"})

	timeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runproc",
		Name:      "timeouts_total",
		Help:      "Total number of global or per-line timeouts triggered.",
	})

	kills = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runproc",
		Name:      "kills_total",
		Help:      "Total number of explicit kill or terminate requests.",
	})

	outputLines = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runproc",
		Name:      "output_lines_total",
		Help:      "Total number of output lines read from supervised processes.",
	})

	processDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runproc",
		Name:      "process_duration_seconds",
		Help:      "Wall-clock duration of supervised processes in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "runproc",
		Name:      "build_info",
		Help:      "Build metadata for the running runproc binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(processesStarted, processesRunning, processesFinished,
		timeouts, kills, outputLines, processDuration, buildInfo)
}

// Registry returns the Prometheus registry containing all runproc metrics.
func Registry() *prometheus.Registry {
	return registry
}

// ProcessStarted records a successful spawn.
func ProcessStarted() {
	processesStarted.Inc()
	processesRunning.Inc()
}

// ProcessFinished records a committed terminal state and the run duration.
func ProcessFinished(state string, d time.Duration) {
	processesRunning.Dec()
	processesFinished.WithLabelValues(state).Inc()
	if d > 0 {
		processDuration.Observe(d.Seconds())
	}
}

// TimeoutTriggered records a global or per-line timeout breach.
func TimeoutTriggered() {
	timeouts.Inc()
}

// KillRequested records an explicit kill or terminate request.
func KillRequested() {
	kills.Inc()
}

// AddOutputLines adds to the output line counter.
func AddOutputLines(n int) {
	if n <= 0 {
		return
	}
	outputLines.Add(float64(n))
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
