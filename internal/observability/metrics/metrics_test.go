package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTurn()
	m.ObserveScamConfirmed()
	m.ObserveFallback()
	m.ObserveReport(true)
	m.SetActiveSessions(3)
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTurn()
	m.ObserveTurn()
	m.ObserveScamConfirmed()
	m.ObserveReport(true)
	m.ObserveReport(false)
	m.SetActiveSessions(5)

	if got := testutil.ToFloat64(m.turnsTotal); got != 2 {
		t.Errorf("turnsTotal = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.scamsConfirmed); got != 1 {
		t.Errorf("scamsConfirmed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.reportsTotal.WithLabelValues("delivered")); got != 1 {
		t.Errorf("reportsTotal{delivered} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.reportsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("reportsTotal{failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.activeSessions); got != 5 {
		t.Errorf("activeSessions = %v, want 5", got)
	}
}
