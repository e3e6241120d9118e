// Package metrics provides Prometheus instrumentation for wareflow runs.
//
// A Registry is created against a prometheus.Registerer and handed to the
// engine, which records each run through the Observe methods. A nil
// *Registry is valid and records nothing.
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistry(reg)
//	eng, err := engine.New(cfg, engine.WithMetrics(m))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Available Metrics
//
// ## Engine
//
//   - wareflow_engine_runs_total{outcome}: runs by "success" or "failure"
//   - wareflow_engine_run_duration_seconds: complete run time
//   - wareflow_engine_stage_duration_seconds{stage}: time per stage
//   - wareflow_engine_stage_errors_total{stage}: stage failures
//
// ## Scheduling
//
//   - wareflow_scheduling_orders_total: orders decomposed
//   - wareflow_scheduling_operations_total: operations produced
//   - wareflow_scheduling_rule_selected_total{rule}: runs per rule
//   - wareflow_scheduling_rule_switches_total: active rule changes
//   - wareflow_scheduling_active_rule{rule}: 1 for the active rule
//   - wareflow_scheduling_assignment_fallbacks_total{category}: reused units
//
// ## Execution and correction
//
//   - wareflow_execution_commands_total{status_code}: command feedback codes
//   - wareflow_correction_deviation_score: deviation score distribution
//   - wareflow_correction_over_threshold_total: deviations over threshold
package metrics
