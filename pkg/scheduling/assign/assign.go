// Package assign binds atomic operations to equipment units and start times.
package assign

import (
	"fmt"
	"time"

	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
	"github.com/vnykmshr/wareflow/pkg/scheduling/decompose"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// Policy decides what happens when no unit of the required category is
// running.
type Policy string

const (
	// PolicyReuse assigns the first registered unit and flags the entry.
	PolicyReuse Policy = "reuse"
	// PolicyFail reports ErrNoAvailableEquipment.
	PolicyFail Policy = "fail"
)

// DefaultInterval spaces consecutive operations of an order.
const DefaultInterval = 2 * time.Minute

// Clock supplies the planning time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config controls the assigner.
type Config struct {
	Policy   Policy
	Interval time.Duration
	Clock    Clock
}

// Category returns the equipment category that performs op.
func Category(op string) string {
	switch op {
	case decompose.OpMaterialLocation, decompose.OpInventoryUpdate:
		return warehouse.CategoryStacker
	case decompose.OpPathPlanning, decompose.OpMaterialHandling:
		return warehouse.CategoryAGV
	default:
		return warehouse.CategorySorter
	}
}

// Assigner produces resource plan entries.
type Assigner struct {
	policy   Policy
	interval time.Duration
	clock    Clock
}

// New creates an Assigner. Zero fields take their defaults.
func New(cfg Config) *Assigner {
	a := &Assigner{policy: cfg.Policy, interval: cfg.Interval, clock: cfg.Clock}
	if a.policy == "" {
		a.policy = PolicyReuse
	}
	if a.interval <= 0 {
		a.interval = DefaultInterval
	}
	if a.clock == nil {
		a.clock = systemClock{}
	}
	return a
}

// Assign emits one plan entry per operation, in input order. The planning
// time is read once, so entries of one call share the same base.
func (a *Assigner) Assign(s *warehouse.WorldState, ops []warehouse.Operation) ([]warehouse.PlanEntry, error) {
	now := a.clock.Now()
	plan := make([]warehouse.PlanEntry, 0, len(ops))
	for _, op := range ops {
		unit, fallback, err := a.Match(s, Category(op.Name))
		if err != nil {
			return nil, fmt.Errorf("assign %s %q: %w", op.ID, op.Name, err)
		}
		plan = append(plan, warehouse.PlanEntry{
			Operation:        op,
			EquipmentID:      unit.ID,
			Category:         unit.Category,
			CurrentPartition: unit.Partition,
			ExecuteAt:        now.Add(time.Duration(op.Sequence) * a.interval),
			Status:           warehouse.PlanStatusAssigned,
			Fallback:         fallback,
		})
	}
	return plan, nil
}

// Match picks the first running unit of category in registration order.
// When none is running the policy decides between the first registered unit
// (fallback=true) and ErrNoAvailableEquipment.
func (a *Assigner) Match(s *warehouse.WorldState, category string) (warehouse.Unit, bool, error) {
	units := s.Units(category)
	if len(units) == 0 {
		return warehouse.Unit{}, false, fmt.Errorf("category %q: %w", category, wferrors.ErrUnknownEquipmentCategory)
	}
	for _, u := range units {
		if u.Status == warehouse.StatusRunning {
			return u, false, nil
		}
	}
	if a.policy == PolicyFail {
		return warehouse.Unit{}, false, wferrors.NewOperationError("assign", "Match", wferrors.ErrNoAvailableEquipment).
			WithContext("category " + category)
	}
	return units[0], true, nil
}
