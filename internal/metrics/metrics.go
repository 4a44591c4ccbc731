// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the integration engine.
//
// It exposes a narrow Backend interface (counters and timing observations)
// behind a global, pluggable backend that defaults to a no-op, so metric
// calls are always safe even when nothing is configured. Concrete systems
// live in subpackages; the rest of the codebase depends only on this
// interface.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration/size style observation.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics if the backend needs it.
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStep measures one engine step: latency plus success/failure.
// Typical steps: "profile", "classify", "map", "generate", "persist",
// "load".
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	backend.IncCounter("integration_step_total", 1, lbls)
	backend.ObserveHistogram("integration_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a record-level counter for the given job.
//
// Typical kinds mirror the analysis report, e.g.:
//   - "scanned"
//   - "loaded"
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("integration_rows_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordFields counts mapped or omitted fields for the given job.
func RecordFields(job, kind string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("integration_fields_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
