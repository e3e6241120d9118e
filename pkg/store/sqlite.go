package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vnykmshr/wareflow/pkg/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	started_at   INTEGER NOT NULL,
	rule         TEXT NOT NULL,
	summary_json TEXT NOT NULL,
	run_json     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS calibrations (
	run_id       TEXT NOT NULL,
	equipment_id TEXT NOT NULL,
	command_id   TEXT NOT NULL,
	score        REAL NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_calibrations_equipment ON calibrations(equipment_id);
`

// SQLite stores runs in a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and runs migrations.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, r *report.Run) error {
	if err := checkRun(r); err != nil {
		return err
	}

	runJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	summaryJSON, err := json.Marshal(r.Summary())
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, rule, summary_json, run_json)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   started_at = excluded.started_at,
		   rule = excluded.rule,
		   summary_json = excluded.summary_json,
		   run_json = excluded.run_json`,
		r.ID, r.StartedAt.UnixNano(), string(r.Decision.Rule), string(summaryJSON), string(runJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM calibrations WHERE run_id = ?`, r.ID); err != nil {
		return fmt.Errorf("clear calibrations: %w", err)
	}
	for _, d := range r.Deviations {
		if !d.OverThreshold {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO calibrations (run_id, equipment_id, command_id, score) VALUES (?, ?, ?, ?)`,
			r.ID, d.EquipmentID, d.CommandID, d.Score,
		)
		if err != nil {
			return fmt.Errorf("insert calibration: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) scanRun(row *sql.Row) (*report.Run, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query run: %w", err)
	}
	var r report.Run
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &r, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*report.Run, error) {
	return s.scanRun(s.db.QueryRowContext(ctx, `SELECT run_json FROM runs WHERE id = ?`, id))
}

func (s *SQLite) Latest(ctx context.Context) (*report.Run, error) {
	return s.scanRun(s.db.QueryRowContext(ctx,
		`SELECT run_json FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`))
}

func (s *SQLite) List(ctx context.Context, limit int) ([]report.Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary_json FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []report.Summary
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		var sum report.Summary
		if err := json.Unmarshal([]byte(raw), &sum); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Calibrations returns how many times each unit was flagged for
// calibration across all stored runs.
func (s *SQLite) Calibrations(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT equipment_id, COUNT(*) FROM calibrations GROUP BY equipment_id`)
	if err != nil {
		return nil, fmt.Errorf("query calibrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan calibration: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
