// Package metrics provides the Prometheus metric set for the
// identification orchestrator: cache effectiveness, lock contention,
// breaker transitions, per-provider latency, and merge outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the orchestrator's Prometheus collectors. A nil *Metrics
// is valid and records nothing, so wiring stays optional.
type Metrics struct {
	registry *prometheus.Registry

	cacheRequestsTotal      *prometheus.CounterVec
	lockAcquisitionsTotal   *prometheus.CounterVec
	breakerTransitionsTotal *prometheus.CounterVec
	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec
	mergeResultsTotal       *prometheus.CounterVec
	identifyDuration        prometheus.Histogram
}

// New creates and registers the orchestrator metrics on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "florascan_cache_requests_total",
			Help: "Cache lookups by result",
		},
		[]string{"result"}, // result: hit, miss, degraded
	)

	m.lockAcquisitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "florascan_lock_acquisitions_total",
			Help: "Stampede-lock acquisition attempts by outcome",
		},
		[]string{"outcome"}, // outcome: acquired, contended, error
	)

	m.breakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "florascan_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"provider", "to"},
	)

	m.providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "florascan_provider_requests_total",
			Help: "Provider identification calls by status",
		},
		[]string{"provider", "status"}, // status: success, error, timeout, breaker_open, pool
	)

	m.providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "florascan_provider_request_duration_seconds",
			Help: "Time spent in provider identification calls",
			// 100ms to ~50s: fast cached CDN responses through slow
			// model inference and timeout scenarios
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider"},
	)

	m.mergeResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "florascan_merge_results_total",
			Help: "Merge outcomes per identification",
		},
		[]string{"outcome"}, // outcome: both, primary_only, secondary_only, unavailable
	)

	m.identifyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "florascan_identify_duration_seconds",
			Help:    "End-to-end IdentifyPlant latency, cache hits included",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.cacheRequestsTotal.Describe(ch)
	m.lockAcquisitionsTotal.Describe(ch)
	m.breakerTransitionsTotal.Describe(ch)
	m.providerRequestsTotal.Describe(ch)
	m.providerRequestDuration.Describe(ch)
	m.mergeResultsTotal.Describe(ch)
	m.identifyDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.cacheRequestsTotal.Collect(ch)
	m.lockAcquisitionsTotal.Collect(ch)
	m.breakerTransitionsTotal.Collect(ch)
	m.providerRequestsTotal.Collect(ch)
	m.providerRequestDuration.Collect(ch)
	m.mergeResultsTotal.Collect(ch)
	m.identifyDuration.Collect(ch)
}

// RecordCacheRequest counts a cache lookup. result: hit, miss, degraded.
func (m *Metrics) RecordCacheRequest(result string) {
	if m == nil {
		return
	}
	m.cacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordLockAcquisition counts a lock attempt. outcome: acquired, contended, error.
func (m *Metrics) RecordLockAcquisition(outcome string) {
	if m == nil {
		return
	}
	m.lockAcquisitionsTotal.WithLabelValues(outcome).Inc()
}

// RecordBreakerTransition counts a breaker state change.
func (m *Metrics) RecordBreakerTransition(provider, to string) {
	if m == nil {
		return
	}
	m.breakerTransitionsTotal.WithLabelValues(provider, to).Inc()
}

// RecordProviderRequest counts one provider call and its latency.
func (m *Metrics) RecordProviderRequest(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.providerRequestsTotal.WithLabelValues(provider, status).Inc()
	m.providerRequestDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordMerge counts a merge outcome.
func (m *Metrics) RecordMerge(outcome string) {
	if m == nil {
		return
	}
	m.mergeResultsTotal.WithLabelValues(outcome).Inc()
}

// RecordIdentifyDuration observes one end-to-end call.
func (m *Metrics) RecordIdentifyDuration(seconds float64) {
	if m == nil {
		return
	}
	m.identifyDuration.Observe(seconds)
}
