// Package metrics exposes Prometheus instrumentation for the risk engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk",
		Name:      "events_ingested_total",
		Help:      "Behavioral events accepted for ingestion, by source.",
	}, []string{"source"})

	batchRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "risk",
		Name:      "batch_runs_total",
		Help:      "Completed batch recompute runs.",
	})

	employeesScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk",
		Name:      "employees_scored_total",
		Help:      "Per-employee scoring outcomes.",
	}, []string{"result"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "risk",
		Name:      "batch_duration_seconds",
		Help:      "Wall-clock duration of batch recompute runs.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// EventIngested records one accepted event.
func EventIngested(source string) {
	eventsIngested.WithLabelValues(source).Inc()
}

// EmployeeScored records one per-employee outcome.
func EmployeeScored(succeeded bool) {
	result := "succeeded"
	if !succeeded {
		result = "failed"
	}
	employeesScored.WithLabelValues(result).Inc()
}

// BatchFinished records a completed batch run.
func BatchFinished(duration time.Duration) {
	batchRuns.Inc()
	batchDuration.Observe(duration.Seconds())
}
