package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/wareflow/internal/testutil"
	"github.com/vnykmshr/wareflow/pkg/scheduling/rules"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

func fixtureRun() *Run {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	order := warehouse.Order{ID: "ORD2025001", Material: "mechanical parts", Target: "A2", Type: warehouse.OrderUrgent}

	return &Run{
		ID:         "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Decision: rules.Decision{
			Rule:     rules.PathOptimization,
			Previous: rules.Priority,
			Switched: true,
		},
		Orders: []warehouse.Order{order},
		Operations: []warehouse.Operation{
			{Order: order, Name: "material location", Sequence: 1, Partitions: "A1,A2", Predecessor: warehouse.NoPredecessor},
			{Order: order, Name: "path planning", Sequence: 2, Partitions: "A1,A2", Predecessor: "material location"},
		},
		Plan: []warehouse.PlanEntry{
			{EquipmentID: "AGV1", Category: "agv", Status: warehouse.PlanStatusAssigned},
			{EquipmentID: "AGV2", Category: "agv", Status: warehouse.PlanStatusAssigned, Fallback: true},
		},
		Commands: []warehouse.Command{
			{ID: "CMD2025001", TaskID: "ORD2025001", EquipmentID: "AGV1",
				Params: warehouse.CommandParams{Target: "A2", Path: []string{"A1", "A2"}, Priority: 2}},
		},
		Feedback: []warehouse.Feedback{
			{CommandID: "CMD2025001", TaskID: "ORD2025001", EquipmentID: "AGV1", StatusCode: 200, Position: "A2", Progress: 80},
		},
		Deviations: []warehouse.Deviation{
			{EquipmentID: "AGV1", CommandID: "CMD2025001", Position: 1, Progress: 0.05, Score: 3.35},
			{EquipmentID: "AGV2", CommandID: "CMD2025002", Position: 1, Progress: 0.9, Score: 9.3, OverThreshold: true},
		},
		Calibrated: 1,
		Stages:     []StageTiming{{Stage: "decompose", Duration: time.Millisecond}},
	}
}

func TestSummary(t *testing.T) {
	s := fixtureRun().Summary()

	testutil.AssertEqual(t, s.ID, "run-1")
	testutil.AssertEqual(t, s.Rule, rules.PathOptimization)
	testutil.AssertEqual(t, s.Switched, true)
	testutil.AssertEqual(t, s.Orders, 1)
	testutil.AssertEqual(t, s.Operations, 2)
	testutil.AssertEqual(t, s.Commands, 1)
	testutil.AssertEqual(t, s.Fallbacks, 1)
	testutil.AssertEqual(t, s.OverThreshold, 1)
	testutil.AssertEqual(t, s.Calibrated, 1)
	testutil.AssertEqual(t, s.Duration, 1500*time.Millisecond)
}

func TestWriteTable(t *testing.T) {
	r := fixtureRun()

	tests := []struct {
		table  string
		rows   int
		header string
	}{
		{TableDecomposition, 2, "order_id"},
		{TablePlan, 2, "order_id"},
		{TableCommands, 1, "command_id"},
		{TableFeedback, 1, "command_id"},
		{TableDeviations, 2, "equipment_id"},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			var buf bytes.Buffer
			testutil.AssertNoError(t, WriteTable(&buf, r, tt.table))

			records, err := csv.NewReader(&buf).ReadAll()
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, len(records), tt.rows+1)
			testutil.AssertEqual(t, records[0][0], tt.header)
		})
	}
}

func TestWriteTableCommandPath(t *testing.T) {
	var buf bytes.Buffer
	testutil.AssertNoError(t, WriteTable(&buf, fixtureRun(), TableCommands))
	if !strings.Contains(buf.String(), "A1->A2") {
		t.Errorf("expected joined path in output, got %q", buf.String())
	}
}

func TestWriteTableWriterFailure(t *testing.T) {
	w := testutil.NewMockWriter()
	w.SetAlwaysError(errors.New("disk full"))

	err := WriteTable(w, fixtureRun(), TablePlan)
	testutil.AssertError(t, err)
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected the writer error, got %v", err)
	}
}

func TestWriteTableUnknown(t *testing.T) {
	err := WriteTable(&bytes.Buffer{}, fixtureRun(), "inventory")
	testutil.AssertError(t, err)
	if !strings.Contains(err.Error(), "unknown table") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := Export(dir, fixtureRun())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(paths), len(Tables))

	for _, p := range paths {
		info, err := os.Stat(p)
		testutil.AssertNoError(t, err)
		if info.Size() == 0 {
			t.Errorf("%s is empty", p)
		}
	}
	testutil.AssertEqual(t, filepath.Base(paths[0]), "run-1_decomposition.csv")
}

func TestRender(t *testing.T) {
	out := Render(fixtureRun())

	for _, want := range []string{"run-1", "path optimization", "switched from priority", "over threshold", "decompose"} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderList(t *testing.T) {
	testutil.AssertEqual(t, strings.Contains(RenderList(nil), "no runs recorded"), true)

	out := RenderList([]Summary{fixtureRun().Summary()})
	if !strings.Contains(out, "run-1") {
		t.Errorf("list output missing run ID:\n%s", out)
	}
}
