/*
Package sqlite provides a SQLite-backed population.RunStore.

PURPOSE:
  Persists population runs so reports survive a server restart. Only
  population-level results are stored: the fitness rows and one snapshot
  (moments or histogram bins) per bundle field. Per-life samples never
  reach the database.

KEY TABLES:
  runs:             One row per run (request JSON, status, fitness total)
  fitness_rows:     The composition table of a succeeded run, in order
  metric_snapshots: generic.Snapshot JSON per bundle field, in order

NaN HANDLING:
  Empty statistics are NaN. SQLite has no NaN, so NaN is written as NULL
  and read back as NaN.

CONCURRENCY:
  Uses sync.RWMutex around the handle. ":memory:" databases are pinned to
  a single connection so every query sees the same schema.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging): readers do
  not block the writer finishing a run.

USAGE:
  store, err := sqlite.New("./data/lifesim.db")
  if err != nil {
      return err
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - population/store.go: Interface definition
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/lifetime-engine/population"
)

// timeLayout sorts lexicographically in time order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements population.RunStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ population.RunStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		request_json TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		fitness REAL,
		created_at TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at
		ON runs(created_at DESC);

	CREATE TABLE IF NOT EXISTS fitness_rows (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		value REAL,
		stderr REAL,
		has_stderr INTEGER NOT NULL,
		weight REAL NOT NULL,
		contribution REAL,
		PRIMARY KEY (run_id, position)
	);

	CREATE TABLE IF NOT EXISTS metric_snapshots (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		snapshot_json TEXT NOT NULL,
		PRIMARY KEY (run_id, name)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUNS
// =============================================================================

// SaveRun inserts or replaces a run record.
func (s *Store) SaveRun(ctx context.Context, run population.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	requestJSON, err := json.Marshal(run.Request)
	if err != nil {
		return fmt.Errorf("failed to encode run request: %w", err)
	}

	query := `
		INSERT INTO runs (id, status, request_json, error, fitness, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			request_json = excluded.request_json,
			error = excluded.error,
			fitness = excluded.fitness,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`
	_, err = s.db.ExecContext(ctx, query,
		run.ID.String(), string(run.Status), string(requestJSON), run.Error,
		nullFloat(run.Fitness), formatTime(run.CreatedAt),
		formatTimePtr(run.StartedAt), formatTimePtr(run.FinishedAt),
	)
	return err
}

// UpdateStatus moves a run to status.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status population.RunStatus, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE runs SET status = ?, error = ? WHERE id = ?`
	args := []any{string(status), errMsg, id.String()}
	switch {
	case status == population.StatusRunning:
		query = `UPDATE runs SET status = ?, error = ?, started_at = ? WHERE id = ?`
		args = []any{string(status), errMsg, formatTime(at), id.String()}
	case status.Terminal():
		query = `UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`
		args = []any{string(status), errMsg, formatTime(at), id.String()}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return population.ErrRunNotFound
	}
	return nil
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*population.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, runColumns+` WHERE id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, population.ErrRunNotFound
	}
	run, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]population.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, runColumns+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []population.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

const runColumns = `
	SELECT id, status, request_json, error, fitness, created_at, started_at, finished_at
	FROM runs`

func scanRun(rows *sql.Rows) (population.RunRecord, error) {
	var (
		run                              population.RunRecord
		id, status, requestJSON          string
		fitness                          sql.NullFloat64
		createdAt, startedAt, finishedAt sql.NullString
	)
	if err := rows.Scan(&id, &status, &requestJSON, &run.Error, &fitness, &createdAt, &startedAt, &finishedAt); err != nil {
		return run, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return run, fmt.Errorf("corrupt run id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(requestJSON), &run.Request); err != nil {
		return run, fmt.Errorf("corrupt request of run %s: %w", id, err)
	}

	run.ID = parsed
	run.Status = population.RunStatus(status)
	run.Fitness = floatOrNaN(fitness)
	run.CreatedAt = parseTime(createdAt)
	run.StartedAt = parseTimePtr(startedAt)
	run.FinishedAt = parseTimePtr(finishedAt)
	return run, nil
}

// =============================================================================
// RESULTS
// =============================================================================

// SaveResult replaces the rows and snapshots of a run and records its
// fitness total, in one transaction.
func (s *Store) SaveResult(ctx context.Context, id uuid.UUID, rows population.Composition, metrics []population.MetricSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE runs SET fitness = ? WHERE id = ?`, nullFloat(rows.Fitness()), id.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return population.ErrRunNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM fitness_rows WHERE run_id = ?`, id.String()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM metric_snapshots WHERE run_id = ?`, id.String()); err != nil {
		return err
	}

	for i, r := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fitness_rows (run_id, position, name, value, stderr, has_stderr, weight, contribution)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id.String(), i, r.Name, nullFloat(r.Value), nullFloat(r.StdErr), r.HasStdErr, r.Weight, nullFloat(r.Contribution),
		)
		if err != nil {
			return fmt.Errorf("failed to save fitness row %s: %w", r.Name, err)
		}
	}

	for i, m := range metrics {
		snapshotJSON, err := json.Marshal(m.Snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot %s: %w", m.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO metric_snapshots (run_id, position, name, kind, snapshot_json)
			VALUES (?, ?, ?, ?, ?)`,
			id.String(), i, m.Name, string(m.Snapshot.Kind), string(snapshotJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to save snapshot %s: %w", m.Name, err)
		}
	}

	return tx.Commit()
}

// GetFitness returns the composition rows of a run in table order.
func (s *Store) GetFitness(ctx context.Context, id uuid.UUID) (population.Composition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value, stderr, has_stderr, weight, contribution
		FROM fitness_rows WHERE run_id = ? ORDER BY position`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out population.Composition
	for rows.Next() {
		var (
			r                           population.Row
			value, stderr, contribution sql.NullFloat64
		)
		if err := rows.Scan(&r.Name, &value, &stderr, &r.HasStdErr, &r.Weight, &contribution); err != nil {
			return nil, err
		}
		r.Value = floatOrNaN(value)
		r.StdErr = floatOrNaN(stderr)
		r.Contribution = floatOrNaN(contribution)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetMetrics returns the metric snapshots of a run in bundle order.
func (s *Store) GetMetrics(ctx context.Context, id uuid.UUID) ([]population.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, snapshot_json FROM metric_snapshots
		WHERE run_id = ? ORDER BY position`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []population.MetricSnapshot
	for rows.Next() {
		var (
			m   population.MetricSnapshot
			raw string
		)
		if err := rows.Scan(&m.Name, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &m.Snapshot); err != nil {
			return nil, fmt.Errorf("corrupt snapshot %s: %w", m.Name, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Reset deletes all runs and results.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"metric_snapshots", "fitness_rows", "runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) requireRun(ctx context.Context, id uuid.UUID) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return population.ErrRunNotFound
	}
	return err
}

// Helper functions

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s sql.NullString) time.Time {
	t, _ := time.Parse(timeLayout, s.String)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s)
	return &t
}
