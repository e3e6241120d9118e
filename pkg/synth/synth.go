// Package synth generates seeded synthetic warehouse data: topology edge
// metrics, equipment, inventory and orders.
package synth

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

const firstOrderNumber = 2025001

var (
	orderTypes   = []warehouse.OrderType{warehouse.OrderUrgent, warehouse.OrderNormal, warehouse.OrderOverdue}
	orderWeights = []float64{0.2, 0.6, 0.2}

	unitStatuses = []warehouse.EquipmentStatus{
		warehouse.StatusRunning, warehouse.StatusBusy, warehouse.StatusMinorFault,
	}
	unitWeights = []float64{0.6, 0.3, 0.1}
)

// Snapshot is one complete set of generated inputs.
type Snapshot struct {
	Topology  warehouse.Topology
	Units     []warehouse.Unit
	Inventory map[string]warehouse.Inventory
	Orders    []warehouse.Order
}

// Generator produces reproducible data for a layout. Not safe for concurrent
// use.
type Generator struct {
	layout warehouse.Layout
	rng    *rand.Rand
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source used for order and maintenance stamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New returns a generator seeded with seed.
func New(layout warehouse.Layout, seed uint64, opts ...Option) *Generator {
	g := &Generator{
		layout: layout,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Snapshot generates topology, equipment, inventory and count orders.
func (g *Generator) Snapshot(count int) Snapshot {
	return Snapshot{
		Topology:  g.Topology(),
		Units:     g.Equipment(),
		Inventory: g.Inventory(),
		Orders:    g.Orders(count),
	}
}

// Topology expands the layout's adjacency into edges with length 10..49 and
// efficiency 70..97 percent.
func (g *Generator) Topology() warehouse.Topology {
	t := warehouse.Topology{Partitions: append([]string(nil), g.layout.Partitions...)}
	for _, link := range g.layout.Links {
		for _, to := range link.To {
			t.Edges = append(t.Edges, warehouse.Edge{
				Source:     link.From,
				Target:     to,
				Length:     g.between(10, 50),
				Efficiency: float64(g.between(70, 98)),
			})
		}
	}
	return t
}

// Equipment generates one unit per fleet entry, placed on a random partition.
func (g *Generator) Equipment() []warehouse.Unit {
	now := g.now()
	var units []warehouse.Unit
	for _, fleet := range g.layout.Fleets {
		for _, id := range fleet.IDs {
			units = append(units, warehouse.Unit{
				ID:              id,
				Category:        fleet.Category,
				Status:          unitStatuses[g.weighted(unitWeights)],
				Partition:       g.layout.Partitions[g.rng.IntN(len(g.layout.Partitions))],
				Load:            float64(g.between(30, 95)),
				RuntimeHours:    g.between(100, 5000),
				LastMaintenance: now.Add(-time.Duration(g.between(1, 30)) * 24 * time.Hour),
			})
		}
	}
	return units
}

// Inventory stocks every material in every storage partition with 50..499
// units.
func (g *Generator) Inventory() map[string]warehouse.Inventory {
	inv := make(map[string]warehouse.Inventory)
	for _, p := range g.layout.StoragePartitions() {
		stock := make(warehouse.Inventory, len(g.layout.Materials))
		for _, m := range g.layout.Materials {
			stock[m] = g.between(50, 500)
		}
		inv[p] = stock
	}
	return inv
}

// Orders generates count orders targeting storage partitions. Types are drawn
// urgent/normal/overdue with weights 0.2/0.6/0.2.
func (g *Generator) Orders(count int) []warehouse.Order {
	targets := g.layout.StoragePartitions()
	if count <= 0 || len(targets) == 0 || len(g.layout.Materials) == 0 {
		return nil
	}
	now := g.now()
	orders := make([]warehouse.Order, 0, count)
	for i := 0; i < count; i++ {
		orders = append(orders, warehouse.Order{
			ID:          fmt.Sprintf("ORD%d", firstOrderNumber+i),
			Material:    g.layout.Materials[g.rng.IntN(len(g.layout.Materials))],
			Target:      targets[g.rng.IntN(len(targets))],
			Type:        orderTypes[g.weighted(orderWeights)],
			RequestedBy: now.Add(time.Duration(g.between(10, 60)) * time.Minute),
			CreatedAt:   now.Add(-time.Duration(g.between(0, 30)) * time.Minute),
		})
	}
	return orders
}

// between returns an int in [lo, hi).
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo)
}

func (g *Generator) weighted(weights []float64) int {
	return Weighted(g.rng, weights)
}

// Weighted draws an index with probability proportional to weights.
func Weighted(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}
