package engine

import (
	"errors"
	"time"

	"github.com/vnykmshr/wareflow/pkg/common/validation"
	"github.com/vnykmshr/wareflow/pkg/correction"
	"github.com/vnykmshr/wareflow/pkg/progress"
	"github.com/vnykmshr/wareflow/pkg/scheduling/assign"
	"github.com/vnykmshr/wareflow/pkg/scheduling/rules"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// Config controls a scheduling engine.
type Config struct {
	Layout warehouse.Layout

	// Orders is the number of synthetic orders generated per run.
	Orders int

	// Seed makes synthetic runs reproducible. Run n uses Seed+n.
	Seed uint64

	BacklogCapacity int
	Sensitivity     float64

	Fallback assign.Policy
	Interval time.Duration

	Correction correction.Config

	// Dispatch settings. Rate <= 0 disables throttling.
	Workers     int
	TaskTimeout time.Duration
	Rate        float64
	Burst       int

	ProgressTotal int

	// Timeout bounds a whole run. Zero means no limit.
	Timeout time.Duration
}

// DefaultConfig returns the demonstration warehouse with stock settings.
func DefaultConfig() Config {
	return Config{
		Layout:          warehouse.DefaultLayout(),
		Orders:          5,
		Seed:            42,
		BacklogCapacity: rules.DefaultBacklogCapacity,
		Sensitivity:     rules.DefaultSensitivity,
		Fallback:        assign.PolicyReuse,
		Interval:        assign.DefaultInterval,
		Correction:      correction.DefaultConfig(),
		Workers:         4,
		ProgressTotal:   progress.DefaultTotal,
	}
}

// Validate checks the config and returns every problem found.
func (c Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(c.Layout.Partitions) == 0 {
		add(validation.ValidatePositive("engine", "layout.partitions", 0))
	}
	add(validation.ValidatePositive("engine", "orders", c.Orders))
	add(validation.ValidatePositive("engine", "backlog_capacity", c.BacklogCapacity))
	add(validation.ValidateRange("engine", "sensitivity", c.Sensitivity, 0, 1))
	add(validation.ValidateOneOf("engine", "fallback", string(c.Fallback),
		string(assign.PolicyReuse), string(assign.PolicyFail)))
	add(validation.ValidateRange("engine", "correction.threshold", c.Correction.Threshold, 0.1, 10))
	add(validation.ValidateRange("engine", "correction.predicted_progress", float64(c.Correction.PredictedProgress), 1, 100))
	add(validation.ValidateOneOf("engine", "correction.compare", string(c.Correction.Compare),
		string(correction.CompareStatus), string(correction.ComparePosition)))
	add(validation.ValidatePositive("engine", "workers", c.Workers))
	add(validation.ValidateNonNegative("engine", "rate", c.Rate))
	if c.Rate > 0 {
		add(validation.ValidatePositive("engine", "burst", c.Burst))
	}
	add(validation.ValidatePositive("engine", "progress_total", c.ProgressTotal))

	return errors.Join(errs...)
}
