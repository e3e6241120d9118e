package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wareflow"

// Registry holds the metric instances recorded by a scheduling engine.
type Registry struct {
	// Runs
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec

	// Scheduling
	Orders        prometheus.Counter
	Operations    prometheus.Counter
	RuleSelected  *prometheus.CounterVec
	RuleSwitches  prometheus.Counter
	ActiveRule    *prometheus.GaugeVec
	Fallbacks     *prometheus.CounterVec
	CommandsSent  *prometheus.CounterVec
	DeviationHist prometheus.Histogram
	OverThreshold prometheus.Counter
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "runs_total",
				Help:      "Total number of pipeline runs by outcome",
			},
			[]string{"outcome"},
		),

		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "run_duration_seconds",
				Help:      "Time spent on a complete pipeline run",
				Buckets:   prometheus.DefBuckets,
			},
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"stage"},
		),

		StageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "stage_errors_total",
				Help:      "Total number of stage failures",
			},
			[]string{"stage"},
		),

		Orders: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduling",
				Name:      "orders_total",
				Help:      "Total number of orders decomposed",
			},
		),

		Operations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduling",
				Name:      "operations_total",
				Help:      "Total number of operations produced by decomposition",
			},
		),

		RuleSelected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduling",
				Name:      "rule_selected_total",
				Help:      "Total number of runs that used each scheduling rule",
			},
			[]string{"rule"},
		),

		RuleSwitches: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduling",
				Name:      "rule_switches_total",
				Help:      "Total number of active rule changes",
			},
		),

		ActiveRule: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduling",
				Name:      "active_rule",
				Help:      "1 for the currently active scheduling rule, 0 otherwise",
			},
			[]string{"rule"},
		),

		Fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduling",
				Name:      "assignment_fallbacks_total",
				Help:      "Total number of assignments that reused a non-running unit",
			},
			[]string{"category"},
		),

		CommandsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "execution",
				Name:      "commands_total",
				Help:      "Total number of commands by feedback status code",
			},
			[]string{"status_code"},
		),

		DeviationHist: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "correction",
				Name:      "deviation_score",
				Help:      "Distribution of deviation scores",
				Buckets:   prometheus.LinearBuckets(0, 1, 11),
			},
		),

		OverThreshold: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "correction",
				Name:      "over_threshold_total",
				Help:      "Total number of deviations above the correction threshold",
			},
		),
	}
}

// ObserveRun records a finished run.
func (r *Registry) ObserveRun(d time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.Runs.WithLabelValues(outcome).Inc()
	r.RunDuration.Observe(d.Seconds())
}

// ObserveStage records a finished stage.
func (r *Registry) ObserveStage(stage string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		r.StageErrors.WithLabelValues(stage).Inc()
	}
}

// ObserveRule records the rule used by a run and marks it active.
func (r *Registry) ObserveRule(rule string, candidates []string, switched bool) {
	if r == nil {
		return
	}
	r.RuleSelected.WithLabelValues(rule).Inc()
	if switched {
		r.RuleSwitches.Inc()
	}
	for _, c := range candidates {
		v := 0.0
		if c == rule {
			v = 1
		}
		r.ActiveRule.WithLabelValues(c).Set(v)
	}
}

// ObserveDecomposition records decomposed orders and operations.
func (r *Registry) ObserveDecomposition(orders, operations int) {
	if r == nil {
		return
	}
	r.Orders.Add(float64(orders))
	r.Operations.Add(float64(operations))
}

// ObserveFallback records an assignment that reused a unit.
func (r *Registry) ObserveFallback(category string) {
	if r == nil {
		return
	}
	r.Fallbacks.WithLabelValues(category).Inc()
}

// ObserveFeedback records a command outcome by status code.
func (r *Registry) ObserveFeedback(statusCode int) {
	if r == nil {
		return
	}
	r.CommandsSent.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// ObserveDeviation records a deviation score.
func (r *Registry) ObserveDeviation(score float64, overThreshold bool) {
	if r == nil {
		return
	}
	r.DeviationHist.Observe(score)
	if overThreshold {
		r.OverThreshold.Inc()
	}
}
