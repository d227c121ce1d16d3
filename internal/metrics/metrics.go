// Package metrics exposes simulation gauges and counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on the global one.
type Metrics struct {
	reg *prometheus.Registry

	Alive          *prometheus.GaugeVec
	Capacity       *prometheus.GaugeVec
	Free           *prometheus.GaugeVec
	State          *prometheus.GaugeVec
	QuotaExhausted *prometheus.CounterVec
	TickSeconds    prometheus.Histogram
	Viewers        *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Alive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "particle3d_alive_particles",
			Help: "Active particles per system.",
		}, []string{"system"}),
		Capacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "particle3d_pool_capacity",
			Help: "Records owned by each system's pool.",
		}, []string{"system"}),
		Free: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "particle3d_pool_free",
			Help: "Free records per system.",
		}, []string{"system"}),
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "particle3d_system_state",
			Help: "Lifecycle state per system (0 stop, 1 running, 2 pause).",
		}, []string{"system"}),
		QuotaExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "particle3d_quota_exhausted_total",
			Help: "Times a system hit its particle quota.",
		}, []string{"system"}),
		TickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "particle3d_tick_seconds",
			Help:    "Wall time of one simulation tick.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		Viewers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "particle3d_viewers",
			Help: "Connected viewers by transport.",
		}, []string{"transport"}),
	}
	m.reg.MustRegister(
		m.Alive, m.Capacity, m.Free, m.State, m.QuotaExhausted, m.TickSeconds, m.Viewers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveTick records one tick's duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	m.TickSeconds.Observe(d.Seconds())
}

// Forget drops every series of a removed system.
func (m *Metrics) Forget(system string) {
	m.Alive.DeleteLabelValues(system)
	m.Capacity.DeleteLabelValues(system)
	m.Free.DeleteLabelValues(system)
	m.State.DeleteLabelValues(system)
	m.QuotaExhausted.DeleteLabelValues(system)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
