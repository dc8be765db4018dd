// Package metrics wraps a private Prometheus registry with the counters and
// histograms the primary exposes over internal/status's /metrics endpoint.
//
// Grounded on hemzaz-freightliner/pkg/metrics/registry.go's shape — a
// private prometheus.Registry (never the global DefaultRegisterer, so
// multiple primaries in one test binary don't collide), a struct of typed
// collectors built in NewRegistry, and thin Record*/Set* methods — cut down
// to the counters this cache actually emits.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric the primary records.
type Registry struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	replicationTotal *prometheus.CounterVec
	probeTotal       *prometheus.CounterVec
	redistributions  prometheus.Counter
	ringMembers      prometheus.Gauge
	catalogSize      prometheus.Gauge
}

// NewRegistry builds and registers every metric on a fresh private registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ringkv_requests_total",
				Help: "Total number of client requests handled, by action and status.",
			},
			[]string{"action", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ringkv_request_duration_seconds",
				Help:    "Request handling latency in seconds, by action.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		replicationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ringkv_replication_total",
				Help: "Total replication fan-out attempts to workers, by status.",
			},
			[]string{"status"},
		),
		probeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ringkv_probe_total",
				Help: "Total liveness probes issued by the monitor, by result.",
			},
			[]string{"result"},
		),
		redistributions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ringkv_redistributions_total",
				Help: "Total number of node-failure redistribution cycles run.",
			},
		),
		ringMembers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ringkv_ring_members",
				Help: "Current number of live nodes on the ring.",
			},
		),
		catalogSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ringkv_catalog_size",
				Help: "Current number of entries in the authoritative catalog.",
			},
		),
	}

	reg.MustRegister(
		r.requestsTotal,
		r.requestDuration,
		r.replicationTotal,
		r.probeTotal,
		r.redistributions,
		r.ringMembers,
		r.catalogSize,
	)
	return r
}

// Registerer exposes the underlying registry for internal/status to serve.
func (r *Registry) Registerer() *prometheus.Registry {
	return r.registry
}

// RecordRequest records one handled request's action, outcome status, and
// how long it took.
func (r *Registry) RecordRequest(action, status string, duration time.Duration) {
	r.requestsTotal.WithLabelValues(action, status).Inc()
	r.requestDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordReplication records one worker replication attempt's outcome.
func (r *Registry) RecordReplication(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.replicationTotal.WithLabelValues(status).Inc()
}

// RecordProbe records one liveness probe's outcome.
func (r *Registry) RecordProbe(alive bool) {
	result := "alive"
	if !alive {
		result = "dead"
	}
	r.probeTotal.WithLabelValues(result).Inc()
}

// RecordRedistribution increments the redistribution-cycle counter.
func (r *Registry) RecordRedistribution() {
	r.redistributions.Inc()
}

// SetRingMembers sets the current ring membership gauge.
func (r *Registry) SetRingMembers(n int) {
	r.ringMembers.Set(float64(n))
}

// SetCatalogSize sets the current catalog-size gauge.
func (r *Registry) SetCatalogSize(n int) {
	r.catalogSize.Set(float64(n))
}
