package usecase

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetrics bundles Prometheus collectors for the batch orchestrator.
type BatchMetrics struct {
	Registry     *prometheus.Registry
	LookupsTotal *prometheus.CounterVec
	RunsTotal    *prometheus.CounterVec
	RetriesTotal prometheus.Counter
	RunDuration  prometheus.Histogram
}

// NewBatchMetrics constructs and registers all metrics on a dedicated registry.
func NewBatchMetrics() *BatchMetrics {
	registry := prometheus.NewRegistry()

	lookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_store_lookups_total",
			Help: "Per (ingredient, store) lookup outcomes.",
		},
		[]string{"status"},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_runs_total",
			Help: "Batch orchestrator runs by outcome.",
		},
		[]string{"outcome"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batch_retried_ingredients_total",
			Help: "Ingredients re-run in the bounded retry pass.",
		},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_run_duration_seconds",
			Help:    "Wall-clock duration of batch runs.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(lookups, runs, retries, duration)

	return &BatchMetrics{
		Registry:     registry,
		LookupsTotal: lookups,
		RunsTotal:    runs,
		RetriesTotal: retries,
		RunDuration:  duration,
	}
}

// IncLookup increments the lookup counter for a status label.
func (m *BatchMetrics) IncLookup(status string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(status).Inc()
}

// IncRun increments the runs counter for an outcome label.
func (m *BatchMetrics) IncRun(outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// AddRetried adds to the retried-ingredients counter.
func (m *BatchMetrics) AddRetried(n int) {
	if m == nil {
		return
	}
	m.RetriesTotal.Add(float64(n))
}

// ObserveRun records a run duration.
func (m *BatchMetrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}
