// Package metrics records Prometheus metrics about make invocations. dmake
// is a short-lived process, so metrics are exported by writing a
// node-exporter textfile rather than serving HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultSuccess = "success" // make exited 0
	ResultFailure = "failure" // make exited non-zero
	ResultError   = "error"   // make could not be run
)

// Recorder holds the metric collectors on a private registry.
type Recorder struct {
	registry   *prometheus.Registry
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rules      prometheus.Gauge
	exitCode   prometheus.Gauge
	lastRun    prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dmake_executions_total",
				Help: "Total number of make invocations",
			},
			[]string{"scheduler", "dry_run", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dmake_execution_duration_seconds",
				Help:    "Wall time of make invocations",
				Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
			},
			[]string{"scheduler"},
		),
		rules: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dmake_rules",
			Help: "Number of rules in the last serialized graph",
		}),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dmake_last_exit_code",
			Help: "Exit status of the last make invocation (-1 if it did not run)",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dmake_last_run_timestamp_seconds",
			Help: "Unix time the last make invocation finished",
		}),
	}
	r.registry.MustRegister(r.executions, r.duration, r.rules, r.exitCode, r.lastRun)
	return r
}

// Observation is one finished Execute call.
type Observation struct {
	Scheduler string
	DryRun    bool
	Rules     int
	ExitCode  int
	Err       error
	Duration  time.Duration
	Finished  time.Time
}

// Observe records one execution.
func (r *Recorder) Observe(o Observation) {
	result := ResultSuccess
	switch {
	case o.Err != nil:
		result = ResultError
	case o.ExitCode != 0:
		result = ResultFailure
	}

	r.executions.WithLabelValues(o.Scheduler, strconv.FormatBool(o.DryRun), result).Inc()
	r.duration.WithLabelValues(o.Scheduler).Observe(o.Duration.Seconds())
	r.rules.Set(float64(o.Rules))
	r.exitCode.Set(float64(o.ExitCode))
	if o.Finished.IsZero() {
		o.Finished = time.Now()
	}
	r.lastRun.Set(float64(o.Finished.Unix()))
}

// Gatherer exposes the private registry, e.g. for tests or an HTTP handler.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format to path,
// atomically, creating the parent directory when needed.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
