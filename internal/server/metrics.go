package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors shared by both hubs and the registry they
// are exposed through.
type Metrics struct {
	Registry        *prometheus.Registry
	connections     *prometheus.GaugeVec
	broadcasts      *prometheus.CounterVec
	protocolErrors  *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
}

// NewMetrics registers the gocollab collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gocollab",
			Name:      "connections",
			Help:      "Live websocket connections per hub.",
		}, []string{"hub"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gocollab",
			Name:      "broadcasts_total",
			Help:      "Frames fanned out to a hub's connections.",
		}, []string{"hub"}),
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gocollab",
			Name:      "protocol_errors_total",
			Help:      "Inbound frames dropped because they could not be decoded.",
		}, []string{"hub"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gocollab",
			Name:      "persist_failures_total",
			Help:      "Storage writes that failed.",
		}, []string{"hub"}),
	}

	m.Registry.MustRegister(
		m.connections,
		m.broadcasts,
		m.protocolErrors,
		m.persistFailures,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// hubMetrics are one hub's curried collectors.
type hubMetrics struct {
	connections     prometheus.Gauge
	broadcasts      prometheus.Counter
	protocolErrors  prometheus.Counter
	persistFailures prometheus.Counter
}

func (m *Metrics) forHub(name string) hubMetrics {
	return hubMetrics{
		connections:     m.connections.WithLabelValues(name),
		broadcasts:      m.broadcasts.WithLabelValues(name),
		protocolErrors:  m.protocolErrors.WithLabelValues(name),
		persistFailures: m.persistFailures.WithLabelValues(name),
	}
}
