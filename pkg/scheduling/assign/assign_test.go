package assign

import (
	"errors"
	"testing"
	"time"

	"github.com/vnykmshr/wareflow/internal/testutil"
	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
	"github.com/vnykmshr/wareflow/pkg/scheduling/decompose"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

var planStart = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newState(t *testing.T, units []warehouse.Unit) *warehouse.WorldState {
	t.Helper()
	topo := warehouse.Topology{Partitions: []string{"A1", "A2", warehouse.BufferZone}}
	s, err := warehouse.Build(topo, units)
	testutil.AssertNoError(t, err)
	return s
}

func fleet() []warehouse.Unit {
	return []warehouse.Unit{
		{ID: "AGV1", Category: warehouse.CategoryAGV, Status: warehouse.StatusBusy, Partition: "A1"},
		{ID: "AGV2", Category: warehouse.CategoryAGV, Status: warehouse.StatusRunning, Partition: "A2"},
		{ID: "STACKER1", Category: warehouse.CategoryStacker, Status: warehouse.StatusMinorFault, Partition: "A1"},
		{ID: "STACKER2", Category: warehouse.CategoryStacker, Status: warehouse.StatusBusy, Partition: "A2"},
		{ID: "SORTER1", Category: warehouse.CategorySorter, Status: warehouse.StatusRunning, Partition: warehouse.BufferZone},
	}
}

func TestCategory(t *testing.T) {
	tests := map[string]string{
		decompose.OpMaterialLocation:  warehouse.CategoryStacker,
		decompose.OpInventoryUpdate:   warehouse.CategoryStacker,
		decompose.OpPathPlanning:      warehouse.CategoryAGV,
		decompose.OpMaterialHandling:  warehouse.CategoryAGV,
		decompose.OpEquipmentDispatch: warehouse.CategorySorter,
		decompose.OpTaskConfirmation:  warehouse.CategorySorter,
		"anything else":               warehouse.CategorySorter,
	}
	for op, want := range tests {
		testutil.AssertEqual(t, Category(op), want)
	}
}

func TestAssignReuseFallback(t *testing.T) {
	s := newState(t, fleet())
	ops, err := decompose.Decompose(s, []warehouse.Order{{ID: "ORD2025001", Target: "A1"}})
	testutil.AssertNoError(t, err)

	a := New(Config{Clock: testutil.NewMockClock(planStart)})
	plan, err := a.Assign(s, ops)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(plan), 6)

	want := []struct {
		id       string
		fallback bool
	}{
		{"STACKER1", true},
		{"AGV2", false},
		{"SORTER1", false},
		{"AGV2", false},
		{"STACKER1", true},
		{"SORTER1", false},
	}
	for i, e := range plan {
		testutil.AssertEqual(t, e.EquipmentID, want[i].id)
		testutil.AssertEqual(t, e.Fallback, want[i].fallback)
		testutil.AssertEqual(t, e.Status, warehouse.PlanStatusAssigned)
		testutil.AssertEqual(t, e.ExecuteAt, planStart.Add(time.Duration(i+1)*2*time.Minute))
	}
	testutil.AssertEqual(t, plan[1].CurrentPartition, "A2")
	testutil.AssertEqual(t, plan[0].Category, warehouse.CategoryStacker)
}

func TestAssignFailPolicy(t *testing.T) {
	s := newState(t, fleet())
	ops, err := decompose.Decompose(s, []warehouse.Order{{ID: "ORD2025001", Target: "A1"}})
	testutil.AssertNoError(t, err)

	_, err = New(Config{Policy: PolicyFail}).Assign(s, ops)
	if !errors.Is(err, wferrors.ErrNoAvailableEquipment) {
		t.Fatalf("expected ErrNoAvailableEquipment, got %v", err)
	}
}

func TestAssignUnknownCategory(t *testing.T) {
	units := fleet()[:4] // no sorters
	s := newState(t, units)
	ops, err := decompose.Decompose(s, []warehouse.Order{{ID: "ORD2025001", Target: "A1"}})
	testutil.AssertNoError(t, err)

	_, err = New(Config{}).Assign(s, ops)
	if !errors.Is(err, wferrors.ErrUnknownEquipmentCategory) {
		t.Fatalf("expected ErrUnknownEquipmentCategory, got %v", err)
	}
}

func TestAssignStaysInsideRoster(t *testing.T) {
	s := newState(t, fleet())
	a := New(Config{Interval: time.Minute})
	for _, category := range []string{warehouse.CategoryAGV, warehouse.CategoryStacker, warehouse.CategorySorter} {
		unit, _, err := a.Match(s, category)
		testutil.AssertNoError(t, err)

		found := false
		for _, id := range s.Roster[category] {
			if id == unit.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("unit %s not in %s roster %v", unit.ID, category, s.Roster[category])
		}
	}
}
