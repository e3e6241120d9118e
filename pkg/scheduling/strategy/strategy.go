// Package strategy turns a resource plan into control commands for the
// execution terminals.
package strategy

import (
	"fmt"
	"math/rand/v2"

	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

const firstCommandNumber = 2025001

// TimeLayout formats timestamps inside timing constraints.
const TimeLayout = "2006-01-02 15:04:05"

// Priority returns the dispatch priority of an order type; lower runs first.
func Priority(t warehouse.OrderType) int {
	switch t {
	case warehouse.OrderOverdue:
		return 1
	case warehouse.OrderUrgent:
		return 2
	default:
		return 3
	}
}

// Path selects the route from source to target.
//
// A unit already at the target stays put. Otherwise the route is direct when
// any edge leaves the source or enters the target, and goes through the
// buffer zone when neither exists.
func Path(t warehouse.Topology, source, target string) []string {
	if source == target {
		return []string{source}
	}
	if t.ConnectsFrom(source) || t.ConnectsInto(target) {
		return []string{source, target}
	}
	return []string{source, warehouse.BufferZone, target}
}

// Executor builds command sequences. The maximum duration in each timing
// constraint is drawn from a seeded source.
type Executor struct {
	topology warehouse.Topology
	rng      *rand.Rand
}

// NewExecutor creates an Executor over topology.
func NewExecutor(topology warehouse.Topology, seed uint64) *Executor {
	return &Executor{
		topology: topology,
		rng:      rand.New(rand.NewPCG(seed, seed+1)),
	}
}

// Commands emits one command per plan entry, numbered from CMD2025001.
func (e *Executor) Commands(plan []warehouse.PlanEntry) []warehouse.Command {
	cmds := make([]warehouse.Command, 0, len(plan))
	for i, entry := range plan {
		maxMinutes := 3 + e.rng.IntN(7)
		cmds = append(cmds, warehouse.Command{
			ID:          fmt.Sprintf("CMD%d", firstCommandNumber+i),
			TaskID:      entry.ID,
			Operation:   entry.Name,
			EquipmentID: entry.EquipmentID,
			ExecuteAt:   entry.ExecuteAt,
			Params: warehouse.CommandParams{
				Target:   entry.Target,
				Path:     Path(e.topology, entry.CurrentPartition, entry.Target),
				Priority: Priority(entry.Type),
			},
			Timing: fmt.Sprintf("must start before %s, duration no more than %d minutes",
				entry.ExecuteAt.Format(TimeLayout), maxMinutes),
		})
	}
	return cmds
}
