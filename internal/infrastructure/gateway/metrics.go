package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetch gateway.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	DedupeJoinsTotal prometheus.Counter
	CacheHitsTotal   prometheus.Counter
	WaitDuration     prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total outbound requests executed by the gateway, by outcome.",
		},
		[]string{"outcome"},
	)
	dedupeJoins := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_dedupe_joins_total",
			Help: "Callers that attached to an already in-flight identical request.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_cache_hits_total",
			Help: "Requests served from the short-TTL success-response cache.",
		},
	)
	waitDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_rate_wait_seconds",
			Help:    "Time spent waiting for a rate-limit slot.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(requests, dedupeJoins, cacheHits, waitDuration)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		DedupeJoinsTotal: dedupeJoins,
		CacheHitsTotal:   cacheHits,
		WaitDuration:     waitDuration,
	}
}

// IncRequest increments the requests total counter for an outcome label.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// IncDedupeJoin increments the dedupe joins counter.
func (m *Metrics) IncDedupeJoin() {
	if m == nil {
		return
	}
	m.DedupeJoinsTotal.Inc()
}

// IncCacheHit increments the cache hits counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// ObserveWait records time spent waiting on the rate limiter.
func (m *Metrics) ObserveWait(d time.Duration) {
	if m == nil {
		return
	}
	m.WaitDuration.Observe(d.Seconds())
}
