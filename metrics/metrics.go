// Package metrics exposes Prometheus instrumentation for the assistant.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the counters the assistant maintains.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal       *prometheus.CounterVec
	TurnDuration     *prometheus.HistogramVec
	HandoffsTotal    *prometheus.CounterVec
	ToolCallsTotal   *prometheus.CounterVec
	BookingsTotal    *prometheus.CounterVec
	ActiveStreams    prometheus.Gauge
	SessionSaveFails prometheus.Counter
}

// New creates a Metrics set on a fresh registry, pre-registered with the
// standard Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicdesk_turns_total",
			Help: "Completed conversational turns by final agent and outcome.",
		}, []string{"agent", "status"}),
		TurnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinicdesk_turn_duration_seconds",
			Help:    "Wall time of a conversational turn.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"agent"}),
		HandoffsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicdesk_handoffs_total",
			Help: "Agent handoffs by source and target.",
		}, []string{"from", "to"}),
		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicdesk_tool_calls_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "status"}),
		BookingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicdesk_bookings_total",
			Help: "Appointment booking reconciliations by outcome.",
		}, []string{"status"}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clinicdesk_active_streams",
			Help: "Chat streams currently open.",
		}),
		SessionSaveFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinicdesk_session_save_failures_total",
			Help: "Failed conversation state writes.",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
