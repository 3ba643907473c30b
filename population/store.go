/*
store.go - Run storage contract

PURPOSE:
  Defines how finished and in-flight population runs are persisted.
  Implementations live in store/memory and store/sqlite.

WHAT IS STORED:
  RunRecord:      The request, its lifecycle status and the fitness total
  Composition:    The fitness rows of a succeeded run
  MetricSnapshot: One population-level field snapshot per bundle field

  Only population summaries are stored (moments and histogram bins).
  Per-life samples never leave the worker that produced them.

STATUS LIFECYCLE:
  queued -> running -> succeeded
                    -> failed

SEE ALSO:
  - store/memory/memory.go: In-memory implementation
  - store/sqlite/sqlite.go: SQLite implementation
  - api/queue.go: Drives the status lifecycle
*/
package population

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/warp/lifetime-engine/generic"
	"github.com/warp/lifetime-engine/lifetime"
)

var (
	ErrRunNotFound    = errors.New("run not found")
	ErrInvalidRequest = errors.New("invalid run request")
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Terminal reports whether no further transition can happen.
func (s RunStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// RunRecord is the persisted form of one run.
type RunRecord struct {
	ID         uuid.UUID  `json:"id"`
	Status     RunStatus  `json:"status"`
	Request    RunRequest `json:"request"`
	Error      string     `json:"error,omitempty"`
	Fitness    float64    `json:"fitness"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// MetricSnapshot is one bundle field of a finished run.
type MetricSnapshot struct {
	Name     string           `json:"name"`
	Snapshot generic.Snapshot `json:"snapshot"`
}

// Snapshots lists a bundle's fields in registry order.
func Snapshots(b *lifetime.Bundle) []MetricSnapshot {
	all := b.Snapshot()
	out := make([]MetricSnapshot, 0, len(all))
	for _, f := range b.Specs() {
		out = append(out, MetricSnapshot{Name: f.Name, Snapshot: all[f.Name]})
	}
	return out
}

// RunStore persists runs and their results.
type RunStore interface {
	// SaveRun inserts or replaces a run record.
	SaveRun(ctx context.Context, run RunRecord) error

	// UpdateStatus moves a run to status. errMsg is kept for failed runs.
	// Returns ErrRunNotFound for unknown ids.
	UpdateStatus(ctx context.Context, id uuid.UUID, status RunStatus, errMsg string, at time.Time) error

	// SaveResult stores the fitness rows and metric snapshots of a run and
	// records the fitness total on the run.
	SaveResult(ctx context.Context, id uuid.UUID, rows Composition, metrics []MetricSnapshot) error

	GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error)

	// ListRuns returns every run, newest first.
	ListRuns(ctx context.Context) ([]RunRecord, error)

	GetFitness(ctx context.Context, id uuid.UUID) (Composition, error)
	GetMetrics(ctx context.Context, id uuid.UUID) ([]MetricSnapshot, error)
}
