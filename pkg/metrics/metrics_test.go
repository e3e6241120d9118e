package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRunOutcomes(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())

	r.ObserveRun(time.Millisecond, nil)
	r.ObserveRun(time.Millisecond, nil)
	r.ObserveRun(time.Millisecond, errors.New("empty order set"))

	if got := testutil.ToFloat64(r.Runs.WithLabelValues("success")); got != 2 {
		t.Errorf("success runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.Runs.WithLabelValues("failure")); got != 1 {
		t.Errorf("failure runs = %v, want 1", got)
	}
}

func TestExposedMetricNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)
	r.ObserveRun(time.Millisecond, nil)
	r.ObserveStage("select rule", time.Millisecond, nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"wareflow_engine_runs_total", "wareflow_engine_run_duration_seconds"} {
		if !names[want] {
			t.Errorf("metric %s not exposed; have %v", want, names)
		}
	}
}

func TestObserveRuleActiveGauge(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	candidates := []string{"priority", "path optimization", "conflict avoidance"}

	r.ObserveRule("priority", candidates, false)
	r.ObserveRule("conflict avoidance", candidates, true)

	tests := []struct {
		rule string
		want float64
	}{
		{"priority", 0},
		{"path optimization", 0},
		{"conflict avoidance", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(r.ActiveRule.WithLabelValues(tt.rule)); got != tt.want {
			t.Errorf("active_rule{%s} = %v, want %v", tt.rule, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(r.RuleSwitches); got != 1 {
		t.Errorf("switches = %v, want 1", got)
	}
}

func TestObserveStageAndDeviation(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())

	r.ObserveStage("assign", time.Millisecond, nil)
	r.ObserveStage("assign", time.Millisecond, errors.New("no available equipment"))
	r.ObserveFeedback(200)
	r.ObserveFeedback(202)
	r.ObserveFeedback(200)
	r.ObserveDeviation(7.2, true)
	r.ObserveDeviation(1.1, false)
	r.ObserveFallback("agv")

	if got := testutil.ToFloat64(r.StageErrors.WithLabelValues("assign")); got != 1 {
		t.Errorf("stage errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.CommandsSent.WithLabelValues("200")); got != 2 {
		t.Errorf("commands{200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.OverThreshold); got != 1 {
		t.Errorf("over threshold = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.Fallbacks.WithLabelValues("agv")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveRun(time.Second, nil)
	r.ObserveStage("decompose", time.Second, nil)
	r.ObserveRule("priority", nil, true)
	r.ObserveDecomposition(1, 6)
	r.ObserveFallback("agv")
	r.ObserveFeedback(200)
	r.ObserveDeviation(1, false)
}

func TestNewUsesConfigRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(Config{Enabled: true, Registry: reg})
	r.ObserveDecomposition(1, 6)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "wareflow_scheduling_operations_total" {
			found = true
		}
	}
	if !found {
		t.Error("operations counter not registered on the configured registry")
	}
}
