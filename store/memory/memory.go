// Package memory provides an in-memory population.RunStore.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/lifetime-engine/population"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	runs    map[uuid.UUID]population.RunRecord
	fitness map[uuid.UUID]population.Composition
	metrics map[uuid.UUID][]population.MetricSnapshot
}

var _ population.RunStore = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		runs:    make(map[uuid.UUID]population.RunRecord),
		fitness: make(map[uuid.UUID]population.Composition),
		metrics: make(map[uuid.UUID][]population.MetricSnapshot),
	}
}

// SaveRun inserts or replaces a run.
func (m *Memory) SaveRun(_ context.Context, run population.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) UpdateStatus(_ context.Context, id uuid.UUID, status population.RunStatus, errMsg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return population.ErrRunNotFound
	}
	run.Status = status
	run.Error = errMsg
	switch {
	case status == population.StatusRunning:
		run.StartedAt = &at
	case status.Terminal():
		run.FinishedAt = &at
	}
	m.runs[id] = run
	return nil
}

// SaveResult stores the rows and snapshots and sets the run's fitness.
func (m *Memory) SaveResult(_ context.Context, id uuid.UUID, rows population.Composition, metrics []population.MetricSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return population.ErrRunNotFound
	}
	run.Fitness = rows.Fitness()
	m.runs[id] = run

	m.fitness[id] = append(population.Composition(nil), rows...)
	m.metrics[id] = append([]population.MetricSnapshot(nil), metrics...)
	return nil
}

func (m *Memory) GetRun(_ context.Context, id uuid.UUID) (*population.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, population.ErrRunNotFound
	}
	return &run, nil
}

// ListRuns returns every run, newest first.
func (m *Memory) ListRuns(_ context.Context) ([]population.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]population.RunRecord, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, run)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// GetFitness returns the rows of a run. A run without a result yet has
// no rows.
func (m *Memory) GetFitness(_ context.Context, id uuid.UUID) (population.Composition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.runs[id]; !ok {
		return nil, population.ErrRunNotFound
	}
	return append(population.Composition(nil), m.fitness[id]...), nil
}

func (m *Memory) GetMetrics(_ context.Context, id uuid.UUID) ([]population.MetricSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.runs[id]; !ok {
		return nil, population.ErrRunNotFound
	}
	return append([]population.MetricSnapshot(nil), m.metrics[id]...), nil
}

// Reset drops every run.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = make(map[uuid.UUID]population.RunRecord)
	m.fitness = make(map[uuid.UUID]population.Composition)
	m.metrics = make(map[uuid.UUID][]population.MetricSnapshot)
}
