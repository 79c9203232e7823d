// Package metrics holds the Prometheus collectors the bot reports through.
//
// All methods are safe on a nil [*Metrics], which records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mixtape"

type Metrics struct {
	registry        *prometheus.Registry
	events          *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	reauths         *prometheus.CounterVec
	reconnects      prometheus.Counter
	backfilled      *prometheus.CounterVec
}

// New creates collectors on a private registry alongside the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Chat events received, by classification.",
		}, []string{"kind"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Playlist reconciliation steps, by service and outcome.",
		}, []string{"service", "outcome"}),
		reauths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reauthentications_total",
			Help:      "Service re-authentications after an expired session.",
		}, []string{"service"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Chat transport reconnect attempts.",
		}),
		backfilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_tracks_total",
			Help:      "Tracks processed by catch-up backfills, by destination and outcome.",
		}, []string{"service", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.events, m.reconciliations, m.reauths, m.reconnects, m.backfilled,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Event(kind string) {
	if m != nil {
		m.events.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Reconciliation(service, outcome string) {
	if m != nil {
		m.reconciliations.WithLabelValues(service, outcome).Inc()
	}
}

func (m *Metrics) Reauth(service string) {
	if m != nil {
		m.reauths.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) Reconnect() {
	if m != nil {
		m.reconnects.Inc()
	}
}

func (m *Metrics) Backfilled(service, outcome string) {
	if m != nil {
		m.backfilled.WithLabelValues(service, outcome).Inc()
	}
}
