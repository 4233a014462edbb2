// Package metrics holds the Prometheus collectors for the port scanner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics used by the application.
type Metrics struct {
	ProbesTotal       *prometheus.CounterVec
	OpenPortsTotal    prometheus.Counter
	ScansTotal        *prometheus.CounterVec
	ScanDuration      prometheus.Histogram
	ResolverCacheHits *prometheus.CounterVec
}

// New initializes the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portscan_probes_total",
				Help: "Total number of TCP connect attempts by outcome.",
			},
			[]string{"result"},
		),
		OpenPortsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portscan_open_ports_total",
				Help: "Total number of open ports discovered.",
			},
		),
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portscan_scans_total",
				Help: "Total number of scans by final status.",
			},
			[]string{"status"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portscan_scan_duration_seconds",
				Help:    "Duration of complete scans in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		ResolverCacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portscan_resolver_cache_total",
				Help: "Hostname resolution cache lookups by result.",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.ProbesTotal,
			m.OpenPortsTotal,
			m.ScansTotal,
			m.ScanDuration,
			m.ResolverCacheHits,
		)
	}
	return m
}

// ObserveProbe records the outcome of one connect attempt.
func (m *Metrics) ObserveProbe(open bool) {
	if m == nil {
		return
	}
	if open {
		m.ProbesTotal.WithLabelValues("open").Inc()
		m.OpenPortsTotal.Inc()
		return
	}
	m.ProbesTotal.WithLabelValues("closed").Inc()
}

// ObserveScan records a finished scan.
func (m *Metrics) ObserveScan(status string, seconds float64) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(status).Inc()
	m.ScanDuration.Observe(seconds)
}

// ObserveCache records a resolver cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.ResolverCacheHits.WithLabelValues("hit").Inc()
		return
	}
	m.ResolverCacheHits.WithLabelValues("miss").Inc()
}
