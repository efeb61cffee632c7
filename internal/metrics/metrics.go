// Package metrics exposes Prometheus instruments for the auth flows.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HashBuckets covers argon2id latencies from a few milliseconds to seconds.
var HashBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics groups the service's instruments. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	authRequests *prometheus.CounterVec
	hashDuration *prometheus.HistogramVec
}

// New creates Metrics registered on a dedicated registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_auth_requests_total",
				Help: "Register and login attempts by outcome",
			},
			[]string{"flow", "outcome"},
		),
		hashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authgate_hash_duration_seconds",
				Help:    "Password hash and verify duration",
				Buckets: HashBuckets,
			},
			[]string{"op"},
		),
	}

	m.registry.MustRegister(
		m.authRequests,
		m.hashDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAuth counts one register or login attempt.
func (m *Metrics) ObserveAuth(flow, outcome string) {
	if m == nil {
		return
	}
	m.authRequests.WithLabelValues(flow, outcome).Inc()
}

// ObserveHash records how long a hash ("hash") or verify ("verify") took.
func (m *Metrics) ObserveHash(op string, started time.Time) {
	if m == nil {
		return
	}
	m.hashDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
