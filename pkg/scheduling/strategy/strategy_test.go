package strategy

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vnykmshr/wareflow/internal/testutil"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

func TestPriority(t *testing.T) {
	testutil.AssertEqual(t, Priority(warehouse.OrderOverdue), 1)
	testutil.AssertEqual(t, Priority(warehouse.OrderUrgent), 2)
	testutil.AssertEqual(t, Priority(warehouse.OrderNormal), 3)
	testutil.AssertEqual(t, Priority("backorder"), 3)
}

func TestPath(t *testing.T) {
	topo := warehouse.Topology{
		Partitions: []string{"A1", "A2", "A3", warehouse.BufferZone},
		Edges: []warehouse.Edge{
			{Source: "A1", Target: "A2"},
			{Source: warehouse.BufferZone, Target: "A1"},
		},
	}

	tests := []struct {
		name           string
		source, target string
		want           []string
	}{
		{"same partition", "A2", "A2", []string{"A2"}},
		{"edge leaves source", "A1", "A3", []string{"A1", "A3"}},
		{"edge enters target", "A3", "A2", []string{"A3", "A2"}},
		{"via buffer", "A2", "A3", []string{"A2", warehouse.BufferZone, "A3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Path(topo, tt.source, tt.target)); diff != "" {
				t.Errorf("path mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 2, 0, 0, time.UTC)
	plan := []warehouse.PlanEntry{
		{
			Operation: warehouse.Operation{
				Order: warehouse.Order{ID: "ORD2025001", Target: "A2", Type: warehouse.OrderOverdue},
				Name:  "material location", Sequence: 1,
			},
			EquipmentID: "STACKER1", CurrentPartition: "A1", ExecuteAt: at,
		},
		{
			Operation: warehouse.Operation{
				Order: warehouse.Order{ID: "ORD2025001", Target: "A2", Type: warehouse.OrderOverdue},
				Name:  "path planning", Sequence: 2,
			},
			EquipmentID: "AGV1", CurrentPartition: "A2", ExecuteAt: at.Add(2 * time.Minute),
		},
	}
	topo := warehouse.Topology{
		Partitions: []string{"A1", "A2"},
		Edges:      []warehouse.Edge{{Source: "A1", Target: "A2"}},
	}

	cmds := NewExecutor(topo, 1).Commands(plan)
	testutil.AssertEqual(t, len(cmds), 2)
	testutil.AssertEqual(t, cmds[0].ID, "CMD2025001")
	testutil.AssertEqual(t, cmds[1].ID, "CMD2025002")
	testutil.AssertEqual(t, cmds[0].TaskID, "ORD2025001")
	testutil.AssertEqual(t, cmds[0].EquipmentID, "STACKER1")
	testutil.AssertEqual(t, cmds[0].Params.Priority, 1)
	testutil.AssertEqual(t, strings.Join(cmds[0].Params.Path, ">"), "A1>A2")
	testutil.AssertEqual(t, strings.Join(cmds[1].Params.Path, ">"), "A2")

	re := regexp.MustCompile(`^must start before 2025-03-01 08:02:00, duration no more than [3-9] minutes$`)
	if !re.MatchString(cmds[0].Timing) {
		t.Errorf("unexpected timing constraint %q", cmds[0].Timing)
	}
}

func TestCommandsReproducible(t *testing.T) {
	plan := make([]warehouse.PlanEntry, 20)
	a := NewExecutor(warehouse.Topology{}, 5).Commands(plan)
	b := NewExecutor(warehouse.Topology{}, 5).Commands(plan)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different commands (-a +b):\n%s", diff)
	}
}
