package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveProbe(t *testing.T) {
	m := New(nil)
	m.ObserveProbe(true)
	m.ObserveProbe(false)
	m.ObserveProbe(false)

	if got := testutil.ToFloat64(m.ProbesTotal.WithLabelValues("open")); got != 1 {
		t.Fatalf("expected 1 open probe, got %v", got)
	}
	if got := testutil.ToFloat64(m.ProbesTotal.WithLabelValues("closed")); got != 2 {
		t.Fatalf("expected 2 closed probes, got %v", got)
	}
	if got := testutil.ToFloat64(m.OpenPortsTotal); got != 1 {
		t.Fatalf("expected 1 open port, got %v", got)
	}
}

func TestRegisterAndNilSafety(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveScan("completed", 1.5)
	m.ObserveCache(true)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveProbe(true)
	nilMetrics.ObserveScan("failed", 0)
	nilMetrics.ObserveCache(false)
}
