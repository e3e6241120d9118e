package config

import (
	"errors"
	"fmt"
	"strings"

	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
	"github.com/vnykmshr/wareflow/pkg/common/validation"
	"github.com/vnykmshr/wareflow/pkg/correction"
	"github.com/vnykmshr/wareflow/pkg/scheduling/assign"
	"github.com/vnykmshr/wareflow/pkg/scheduling/rules"
	"github.com/vnykmshr/wareflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/wareflow/pkg/store"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

const module = "config"

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*wferrors.ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, err := range e {
		out[i] = err
	}
	return out
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log encodings
func ValidLogFormats() []string {
	return []string{"console", "json"}
}

// ValidCategories returns the equipment categories the assigner dispatches to.
func ValidCategories() []string {
	return []string{warehouse.CategoryAGV, warehouse.CategoryStacker, warehouse.CategorySorter}
}

type collector struct {
	errs ValidationErrors
}

func (c *collector) check(err error) {
	if err == nil {
		return
	}
	var verr *wferrors.ValidationError
	if errors.As(err, &verr) {
		c.errs = append(c.errs, verr)
		return
	}
	c.errs = append(c.errs, wferrors.NewValidationError(module, "?", nil, err.Error()))
}

func (c *collector) fail(field string, value interface{}, reason string) {
	c.errs = append(c.errs, wferrors.NewValidationError(module, field, value, reason))
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() ValidationErrors {
	var v collector

	c.validateWarehouse(&v)
	c.validateRules(&v)

	v.check(validation.ValidateRange(module, "scheduler.sensitivity", c.Scheduler.Sensitivity, 0, 1))
	v.check(validation.ValidatePositive(module, "scheduler.backlog_capacity", c.Scheduler.BacklogCapacity))
	v.check(validation.ValidateNonNegative(module, "scheduler.run_timeout", c.Scheduler.RunTimeout.Seconds()))

	v.check(validation.ValidatePositiveFloat(module, "assignment.interval", c.Assignment.Interval.Seconds()))
	v.check(validation.ValidateOneOf(module, "assignment.fallback", c.Assignment.Fallback,
		string(assign.PolicyReuse), string(assign.PolicyFail)))

	v.check(validation.ValidateRange(module, "correction.threshold", c.Correction.Threshold, 0.1, 10))
	v.check(validation.ValidateRange(module, "correction.predicted_progress", float64(c.Correction.PredictedProgress), 1, 100))
	v.check(validation.ValidateOneOf(module, "correction.compare", c.Correction.Compare,
		string(correction.CompareStatus), string(correction.ComparePosition)))

	v.check(validation.ValidatePositive(module, "dispatch.workers", c.Dispatch.Workers))
	v.check(validation.ValidateNonNegative(module, "dispatch.rate", c.Dispatch.Rate))
	if c.Dispatch.Rate > 0 {
		v.check(validation.ValidatePositive(module, "dispatch.burst", c.Dispatch.Burst))
	}
	v.check(validation.ValidateNonNegative(module, "dispatch.timeout", c.Dispatch.Timeout.Seconds()))

	v.check(validation.ValidatePositive(module, "synth.orders", c.Synth.Orders))
	v.check(validation.ValidatePositive(module, "progress.total", c.Progress.Total))

	c.validateStore(&v)

	if err := scheduler.ValidateCron(c.Serve.Cron); err != nil {
		v.fail("serve.cron", c.Serve.Cron, err.Error())
	}
	v.check(validation.ValidateNotEmpty(module, "serve.metrics_addr", c.Serve.MetricsAddr))

	v.check(validation.ValidateOneOf(module, "logging.level", c.Logging.Level, ValidLogLevels()...))
	v.check(validation.ValidateOneOf(module, "logging.format", c.Logging.Format, ValidLogFormats()...))

	return v.errs
}

func (c *Config) validateWarehouse(v *collector) {
	w := c.Warehouse
	if len(w.Partitions) == 0 {
		v.fail("warehouse.partitions", w.Partitions, "at least one partition is required")
		return
	}

	known := make(map[string]bool, len(w.Partitions))
	for _, p := range w.Partitions {
		if known[p] {
			v.fail("warehouse.partitions", p, "duplicate partition")
		}
		known[p] = true
	}
	if !known[warehouse.BufferZone] {
		v.fail("warehouse.partitions", w.Partitions, "the "+warehouse.BufferZone+" partition is required for routing")
	}

	for _, link := range w.Links {
		if !known[link.From] {
			v.fail("warehouse.links.from", link.From, "unknown partition")
		}
		for _, to := range link.To {
			if !known[to] {
				v.fail("warehouse.links.to", to, "unknown partition")
			}
		}
	}

	seen := make(map[string]bool)
	for _, fleet := range w.Fleets {
		v.check(validation.ValidateOneOf(module, "warehouse.fleets.category", fleet.Category, ValidCategories()...))
		if len(fleet.IDs) == 0 {
			v.fail("warehouse.fleets.ids", fleet.Category, "fleet has no units")
		}
		for _, id := range fleet.IDs {
			if seen[id] {
				v.fail("warehouse.fleets.ids", id, "duplicate unit ID")
			}
			seen[id] = true
		}
	}

	if len(w.Materials) == 0 {
		v.fail("warehouse.materials", w.Materials, "at least one material is required")
	}
	if len(w.StoragePartitions()) == 0 {
		v.fail("warehouse.partitions", w.Partitions, "no storage partitions besides the buffer zone and work station")
	}
}

func (c *Config) validateRules(v *collector) {
	for _, d := range c.Rules {
		if !rules.Known(d.Name) {
			v.fail("rules.name", d.Name, "unknown scheduling rule")
		}
	}
}

func (c *Config) validateStore(v *collector) {
	v.check(validation.ValidateOneOf(module, "store.backend", c.Store.Backend, store.Backends...))
	switch c.Store.Backend {
	case store.BackendSQLite:
		v.check(validation.ValidateNotEmpty(module, "store.path", c.Store.Path))
	case store.BackendRedis:
		v.check(validation.ValidateNotEmpty(module, "store.redis.addr", c.Store.Redis.Addr))
		v.check(validation.ValidatePositive(module, "store.redis.keep", c.Store.Redis.Keep))
		v.check(validation.ValidateNonNegative(module, "store.redis.ttl", c.Store.Redis.TTL.Seconds()))
	}
}
