// Package metrics is a small, backend-agnostic layer for recording
// operational metrics from the marketing pipeline.
//
// It exposes a narrow Backend interface (counters plus duration
// observations) behind a global, pluggable backend that defaults to a no-op,
// so instrumentation calls are always safe even when no real backend is
// configured. Concrete metric systems (Prometheus Pushgateway, Datadog) live
// in subpackages and are selected at startup; the pipeline stages depend only
// on this package.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveDuration records a duration-style value in seconds.
	ObserveDuration(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)      {}
func (nopBackend) ObserveDuration(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                              { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage measures one pipeline stage: latency plus a success/failure
// counter. Stages are the pipeline phases, e.g. "load_ads", "load_analytics",
// "merge", "kpi", "write".
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter("pipeline_stage_total", 1, lbls)
	backend.ObserveDuration("pipeline_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given job and kind.
//
// Typical kinds:
//   - "ads_loaded"
//   - "analytics_loaded"
//   - "skipped"
//   - "merged"
//   - "written"
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_rows_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
