package warehouse

import (
	"fmt"
	"sort"

	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
)

// Roster maps a category to its unit IDs in registration order.
type Roster map[string][]string

// WorldState is the single mutable model of the warehouse during a run.
type WorldState struct {
	Topology   Topology                   `json:"topology"`
	Partitions map[string]PartitionStatus `json:"partitions"`
	Equipment  map[string]Unit            `json:"equipment"`
	Roster     Roster                     `json:"roster"`
	Mapping    []Mapping                  `json:"mapping"`
	Inventory  map[string]Inventory       `json:"inventory"`
	Orders     []Order                    `json:"orders"`
}

// Build validates the topology and registers every unit in order.
func Build(topology Topology, units []Unit) (*WorldState, error) {
	if err := topology.Validate(); err != nil {
		return nil, err
	}

	s := &WorldState{
		Topology:   topology,
		Partitions: make(map[string]PartitionStatus, len(topology.Partitions)),
		Equipment:  make(map[string]Unit, len(units)),
		Roster:     make(Roster),
		Mapping:    make([]Mapping, 0, len(units)),
		Inventory:  make(map[string]Inventory),
	}
	for _, p := range topology.Partitions {
		s.Partitions[p] = PartitionNormal
	}

	for _, u := range units {
		if u.ID == "" || u.Category == "" {
			return nil, fmt.Errorf("warehouse: unit %q has no id or category", u.ID)
		}
		if _, dup := s.Equipment[u.ID]; dup {
			return nil, fmt.Errorf("warehouse: duplicate unit %q", u.ID)
		}
		if !topology.Has(u.Partition) {
			return nil, fmt.Errorf("unit %s placed in unknown partition %q: %w",
				u.ID, u.Partition, wferrors.ErrInvalidTopology)
		}
		s.Equipment[u.ID] = u
		s.Roster[u.Category] = append(s.Roster[u.Category], u.ID)
		s.Mapping = append(s.Mapping, Mapping{
			EquipmentID: u.ID,
			Category:    u.Category,
			Partition:   u.Partition,
			Code:        fmt.Sprintf("%s_%s_%s", u.Category, u.ID, u.Partition),
		})
	}

	return s, nil
}

// Inject replaces inventory and orders with a fresh snapshot.
func (s *WorldState) Inject(inventory map[string]Inventory, orders []Order) error {
	for p := range inventory {
		if !s.Topology.Has(p) {
			return fmt.Errorf("inventory for unknown partition %q: %w", p, wferrors.ErrInvalidTopology)
		}
	}
	s.Inventory = make(map[string]Inventory, len(inventory))
	for p, inv := range inventory {
		cp := make(Inventory, len(inv))
		for m, q := range inv {
			cp[m] = q
		}
		s.Inventory[p] = cp
	}
	s.Orders = append([]Order(nil), orders...)
	return nil
}

// PartitionState returns the status of p, or PartitionUnknown.
func (s *WorldState) PartitionState(p string) PartitionStatus {
	if st, ok := s.Partitions[p]; ok {
		return st
	}
	return PartitionUnknown
}

// Status returns the recorded status of a unit, or StatusUnknown.
func (s *WorldState) Status(id string) EquipmentStatus {
	if u, ok := s.Equipment[id]; ok {
		return u.Status
	}
	return StatusUnknown
}

// SetStatus overwrites the status of a registered unit. Unknown IDs are
// ignored and reported as false.
func (s *WorldState) SetStatus(id string, status EquipmentStatus) bool {
	u, ok := s.Equipment[id]
	if !ok {
		return false
	}
	u.Status = status
	s.Equipment[id] = u
	return true
}

// Position returns the recorded partition of a unit, or "unknown".
func (s *WorldState) Position(id string) string {
	if u, ok := s.Equipment[id]; ok {
		return u.Partition
	}
	return string(StatusUnknown)
}

// Units returns the units of category in registration order.
func (s *WorldState) Units(category string) []Unit {
	ids := s.Roster[category]
	out := make([]Unit, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Equipment[id])
	}
	return out
}

// PartitionsHolding returns, in registration order, the partitions whose
// inventory of material is positive.
func (s *WorldState) PartitionsHolding(material string) []string {
	var out []string
	for _, p := range s.Topology.Partitions {
		if s.Inventory[p][material] > 0 {
			out = append(out, p)
		}
	}
	return out
}

// StatusCounts tallies units by status, for reporting and metrics.
func (s *WorldState) StatusCounts() map[EquipmentStatus]int {
	counts := make(map[EquipmentStatus]int)
	for _, u := range s.Equipment {
		counts[u.Status]++
	}
	return counts
}

// EquipmentIDs returns all unit IDs sorted.
func (s *WorldState) EquipmentIDs() []string {
	ids := make([]string, 0, len(s.Equipment))
	for id := range s.Equipment {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
