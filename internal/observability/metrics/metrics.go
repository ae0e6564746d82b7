// Package metrics exposes the engine's operational counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics covers the per-turn pipeline and the reporting path. A nil
// *Metrics is safe to call — components treat metrics as optional.
type Metrics struct {
	turnsTotal       prometheus.Counter
	scamsConfirmed   prometheus.Counter
	personaFallbacks prometheus.Counter
	reportsTotal     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trapline",
			Subsystem: "engine",
			Name:      "turns_total",
			Help:      "Total counterparty turns processed",
		}),
		scamsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trapline",
			Subsystem: "engine",
			Name:      "scams_confirmed_total",
			Help:      "Sessions confirmed as scams",
		}),
		personaFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trapline",
			Subsystem: "persona",
			Name:      "fallback_replies_total",
			Help:      "Turns answered from the fallback reply pool",
		}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trapline",
			Subsystem: "report",
			Name:      "dispatched_total",
			Help:      "Final reports dispatched to the collector",
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trapline",
			Subsystem: "engine",
			Name:      "active_sessions",
			Help:      "Live conversation sessions",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.scamsConfirmed, m.personaFallbacks, m.reportsTotal, m.activeSessions)
	return m
}

func (m *Metrics) ObserveTurn() {
	if m == nil {
		return
	}
	m.turnsTotal.Inc()
}

func (m *Metrics) ObserveScamConfirmed() {
	if m == nil {
		return
	}
	m.scamsConfirmed.Inc()
}

func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.personaFallbacks.Inc()
}

func (m *Metrics) ObserveReport(delivered bool) {
	if m == nil {
		return
	}
	outcome := "delivered"
	if !delivered {
		outcome = "failed"
	}
	m.reportsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
