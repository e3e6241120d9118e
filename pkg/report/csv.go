package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Table names accepted by WriteTable.
const (
	TableDecomposition = "decomposition"
	TablePlan          = "plan"
	TableCommands      = "commands"
	TableFeedback      = "feedback"
	TableDeviations    = "deviations"
)

// Tables lists every exportable table in pipeline order.
var Tables = []string{TableDecomposition, TablePlan, TableCommands, TableFeedback, TableDeviations}

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// WriteTable writes one table of r as CSV with a header row.
func WriteTable(w io.Writer, r *Run, table string) error {
	header, rows, err := tableRows(r, table)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func tableRows(r *Run, table string) ([]string, [][]string, error) {
	var rows [][]string

	switch table {
	case TableDecomposition:
		for _, op := range r.Operations {
			rows = append(rows, []string{
				op.ID, op.Name, strconv.Itoa(op.Sequence), op.Material,
				op.Partitions, op.Predecessor, string(op.Type), formatTime(op.RequestedBy),
			})
		}
		return []string{"order_id", "operation", "sequence", "material", "partitions", "predecessor", "type", "requested_by"}, rows, nil

	case TablePlan:
		for _, p := range r.Plan {
			rows = append(rows, []string{
				p.ID, p.Name, p.EquipmentID, p.Category, p.CurrentPartition,
				formatTime(p.ExecuteAt), p.Status, strconv.FormatBool(p.Fallback),
			})
		}
		return []string{"order_id", "operation", "equipment_id", "category", "current_partition", "execute_at", "status", "fallback"}, rows, nil

	case TableCommands:
		for _, c := range r.Commands {
			rows = append(rows, []string{
				c.ID, c.TaskID, c.Operation, c.EquipmentID, formatTime(c.ExecuteAt),
				c.Params.Target, strings.Join(c.Params.Path, "->"), strconv.Itoa(c.Params.Priority),
				c.Timing, c.IssueStatus, formatTime(c.IssuedAt),
			})
		}
		return []string{"command_id", "task_id", "operation", "equipment_id", "execute_at", "target", "path", "priority", "timing", "issue_status", "issued_at"}, rows, nil

	case TableFeedback:
		for _, f := range r.Feedback {
			rows = append(rows, []string{
				f.CommandID, f.TaskID, f.EquipmentID, strconv.Itoa(f.StatusCode),
				f.Position, strconv.Itoa(f.Progress), formatTime(f.ReportedAt), f.Anomaly,
			})
		}
		return []string{"command_id", "task_id", "equipment_id", "status_code", "position", "progress", "reported_at", "anomaly"}, rows, nil

	case TableDeviations:
		for _, d := range r.Deviations {
			rows = append(rows, []string{
				d.EquipmentID, d.CommandID, strconv.Itoa(d.Position),
				formatFloat(d.Progress), formatFloat(d.Score), strconv.FormatBool(d.OverThreshold),
			})
		}
		return []string{"equipment_id", "command_id", "position_deviation", "progress_deviation", "score", "over_threshold"}, rows, nil
	}

	return nil, nil, fmt.Errorf("unknown table %q (supported: %s)", table, strings.Join(Tables, ", "))
}

// Export writes every table of r to dir as <run id>_<table>.csv and returns
// the written paths.
func Export(dir string, r *Run) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	paths := make([]string, 0, len(Tables))
	for _, table := range Tables {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", r.ID, table))
		if err := writeFile(path, r, table); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, r *Run, table string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteTable(file, r, table)
}
