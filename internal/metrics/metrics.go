// Package metrics exposes Prometheus instrumentation for ping-list syncs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one synchronizer instance.
//
// Each instance owns its registry so several synchronizers (or tests) can
// coexist in one process without duplicate registration panics.
type Metrics struct {
	registry     *prometheus.Registry
	syncs        *prometheus.CounterVec
	fetchLatency prometheus.Histogram
	listBytes    prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

// New creates and registers the sync collectors, plus the standard Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pingsync_syncs_total",
				Help: "Total ping-list synchronization runs by outcome",
			},
			[]string{"outcome"},
		),
		fetchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pingsync_fetch_duration_seconds",
				Help:    "Ping-list source fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		listBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pingsync_ping_list_bytes",
				Help: "Size of the last stored ping list",
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pingsync_last_success_timestamp_seconds",
				Help: "Unix time of the last run that updated the ping list",
			},
		),
	}

	m.registry.MustRegister(
		m.syncs,
		m.fetchLatency,
		m.listBytes,
		m.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSync records one run. fetched reports whether a fetch was attempted,
// so runs without a configured source do not skew the latency histogram.
func (m *Metrics) ObserveSync(outcome string, fetched bool, latency time.Duration, bytes int, at time.Time) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(outcome).Inc()
	if fetched {
		m.fetchLatency.Observe(latency.Seconds())
	}
	if outcome == "updated" {
		m.listBytes.Set(float64(bytes))
		m.lastSuccess.Set(float64(at.Unix()))
	}
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
