// Package decompose expands orders into their fixed chain of atomic
// operations.
package decompose

import (
	"fmt"
	"strings"

	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// Atomic operation names, in execution order.
const (
	OpMaterialLocation  = "material location"
	OpPathPlanning      = "path planning"
	OpEquipmentDispatch = "equipment dispatch"
	OpMaterialHandling  = "material handling"
	OpInventoryUpdate   = "inventory update"
	OpTaskConfirmation  = "task confirmation"
)

// Operations is the fixed chain every order is decomposed into.
var Operations = []string{
	OpMaterialLocation,
	OpPathPlanning,
	OpEquipmentDispatch,
	OpMaterialHandling,
	OpInventoryUpdate,
	OpTaskConfirmation,
}

// Decompose emits len(Operations) records per order, preserving order input
// order. Each record lists the partitions the order touches: those holding
// the material plus the target, in topology registration order.
func Decompose(s *warehouse.WorldState, orders []warehouse.Order) ([]warehouse.Operation, error) {
	if len(orders) == 0 {
		return nil, wferrors.ErrEmptyOrderSet
	}

	out := make([]warehouse.Operation, 0, len(orders)*len(Operations))
	for _, o := range orders {
		touched := strings.Join(TouchedPartitions(s, o), ",")
		for i, name := range Operations {
			pred := warehouse.NoPredecessor
			if i > 0 {
				pred = Operations[i-1]
			}
			out = append(out, warehouse.Operation{
				Order:       o,
				Name:        name,
				Sequence:    i + 1,
				Partitions:  touched,
				Predecessor: pred,
			})
		}
	}
	return out, nil
}

// TouchedPartitions returns the deduplicated set of partitions holding the
// order's material plus its target. Registered partitions come first in
// registration order; a target outside the topology is appended last.
func TouchedPartitions(s *warehouse.WorldState, o warehouse.Order) []string {
	set := make(map[string]bool)
	for _, p := range s.PartitionsHolding(o.Material) {
		set[p] = true
	}
	set[o.Target] = true

	out := make([]string, 0, len(set))
	for _, p := range s.Topology.Partitions {
		if set[p] {
			out = append(out, p)
			delete(set, p)
		}
	}
	if set[o.Target] {
		out = append(out, o.Target)
	}
	return out
}

// Validate checks the chain invariants of a decomposition: every order has
// exactly len(Operations) records with sequence 1..n and matching
// predecessors.
func Validate(ops []warehouse.Operation) error {
	if len(ops)%len(Operations) != 0 {
		return fmt.Errorf("decompose: %d records is not a multiple of %d", len(ops), len(Operations))
	}
	for i, op := range ops {
		k := i % len(Operations)
		if op.Sequence != k+1 || op.Name != Operations[k] {
			return fmt.Errorf("decompose: record %d of %s is %q#%d", i, op.ID, op.Name, op.Sequence)
		}
		want := warehouse.NoPredecessor
		if k > 0 {
			want = Operations[k-1]
			if ops[i-1].ID != op.ID {
				return fmt.Errorf("decompose: order %s chain broken at %q", op.ID, op.Name)
			}
		}
		if op.Predecessor != want {
			return fmt.Errorf("decompose: %s %q has predecessor %q, want %q", op.ID, op.Name, op.Predecessor, want)
		}
	}
	return nil
}
