// Package storetest holds the behaviour every population.RunStore must
// share. Implementations run it from their own tests.
package storetest

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/warp/lifetime-engine/generic"
	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/population"
)

// RunStoreSuite exercises a RunStore. NewStore is called before each test.
type RunStoreSuite struct {
	suite.Suite
	NewStore func() population.RunStore

	store population.RunStore
	ctx   context.Context
}

func (s *RunStoreSuite) SetupTest() {
	s.store = s.NewStore()
	s.ctx = context.Background()
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func (s *RunStoreSuite) newRun(minute int) population.RunRecord {
	return population.RunRecord{
		ID:     uuid.New(),
		Status: population.StatusQueued,
		Request: population.RunRequest{
			Strategy: lifetime.ConservativeSaver(),
			Gender:   lifetime.Male,
			Lives:    100,
			Workers:  2,
			Mode:     lifetime.ModeBasic,
			Seed:     7,
			Weights:  population.Weights{"ConsumptionAvgLifetime": 1},
		},
		CreatedAt: epoch.Add(time.Duration(minute) * time.Minute),
	}
}

// TestRunLifecycle verifies saving, status transitions and lookups.
func (s *RunStoreSuite) TestRunLifecycle() {
	s.Run("saves and finds a run", func() {
		run := s.newRun(0)
		s.Require().NoError(s.store.SaveRun(s.ctx, run))

		found, err := s.store.GetRun(s.ctx, run.ID)
		s.Require().NoError(err)
		s.Equal(run.ID, found.ID)
		s.Equal(population.StatusQueued, found.Status)
		s.Equal(run.Request, found.Request)
		s.True(run.CreatedAt.Equal(found.CreatedAt))
		s.Nil(found.StartedAt)
	})

	s.Run("moves through running to failed", func() {
		run := s.newRun(1)
		s.Require().NoError(s.store.SaveRun(s.ctx, run))

		started := epoch.Add(time.Hour)
		finished := started.Add(time.Minute)
		s.Require().NoError(s.store.UpdateStatus(s.ctx, run.ID, population.StatusRunning, "", started))
		s.Require().NoError(s.store.UpdateStatus(s.ctx, run.ID, population.StatusFailed, "worker 1: boom", finished))

		found, err := s.store.GetRun(s.ctx, run.ID)
		s.Require().NoError(err)
		s.Equal(population.StatusFailed, found.Status)
		s.Equal("worker 1: boom", found.Error)
		s.Require().NotNil(found.StartedAt)
		s.Require().NotNil(found.FinishedAt)
		s.True(started.Equal(*found.StartedAt))
		s.True(finished.Equal(*found.FinishedAt))
	})

	s.Run("returns ErrRunNotFound for unknown ids", func() {
		_, err := s.store.GetRun(s.ctx, uuid.New())
		s.ErrorIs(err, population.ErrRunNotFound)

		err = s.store.UpdateStatus(s.ctx, uuid.New(), population.StatusRunning, "", epoch)
		s.ErrorIs(err, population.ErrRunNotFound)

		err = s.store.SaveResult(s.ctx, uuid.New(), nil, nil)
		s.ErrorIs(err, population.ErrRunNotFound)

		_, err = s.store.GetFitness(s.ctx, uuid.New())
		s.ErrorIs(err, population.ErrRunNotFound)

		_, err = s.store.GetMetrics(s.ctx, uuid.New())
		s.ErrorIs(err, population.ErrRunNotFound)
	})
}

// TestListRuns verifies newest-first ordering.
func (s *RunStoreSuite) TestListRuns() {
	older := s.newRun(0)
	newer := s.newRun(10)
	s.Require().NoError(s.store.SaveRun(s.ctx, older))
	s.Require().NoError(s.store.SaveRun(s.ctx, newer))

	runs, err := s.store.ListRuns(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(runs, 2)
	s.Equal(newer.ID, runs[0].ID)
	s.Equal(older.ID, runs[1].ID)
}

// TestResults verifies fitness rows and snapshots round trip in order.
func (s *RunStoreSuite) TestResults() {
	run := s.newRun(0)
	s.Require().NoError(s.store.SaveRun(s.ctx, run))

	rows := population.Composition{
		{Name: "ConsumptionAvgLifetime", Value: 30000, StdErr: 120, HasStdErr: true, Weight: 1, Contribution: 30000},
		{Name: "ConsumptionMedianRetired", Value: math.NaN(), StdErr: math.NaN(), Weight: 0, Contribution: 0},
	}
	hist := generic.NewQuantile(4)
	for _, v := range []float64{5, 22, 9} {
		hist.Update(v)
	}
	stats := generic.NewSummaryStats()
	stats.Update(2)
	stats.Update(4)
	metrics := []population.MetricSnapshot{
		{Name: lifetime.LifetimeConsumptionSummary, Snapshot: stats.Snapshot()},
		{Name: lifetime.LifetimeConsumptionHist, Snapshot: hist.Snapshot()},
	}

	s.Require().NoError(s.store.SaveResult(s.ctx, run.ID, rows, metrics))

	found, err := s.store.GetRun(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Equal(30000.0, found.Fitness)

	gotRows, err := s.store.GetFitness(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().Len(gotRows, 2)
	s.Equal(rows[0], gotRows[0])
	s.Equal("ConsumptionMedianRetired", gotRows[1].Name)
	s.True(math.IsNaN(gotRows[1].Value))
	s.False(gotRows[1].HasStdErr)

	gotMetrics, err := s.store.GetMetrics(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Equal(metrics, gotMetrics)

	s.Run("saving again replaces the result", func() {
		s.Require().NoError(s.store.SaveResult(s.ctx, run.ID, rows[:1], metrics[:1]))

		gotRows, err := s.store.GetFitness(s.ctx, run.ID)
		s.Require().NoError(err)
		s.Len(gotRows, 1)

		gotMetrics, err := s.store.GetMetrics(s.ctx, run.ID)
		s.Require().NoError(err)
		s.Len(gotMetrics, 1)
	})
}

// TestRunWithoutResult verifies a queued run has no rows yet.
func (s *RunStoreSuite) TestRunWithoutResult() {
	run := s.newRun(0)
	s.Require().NoError(s.store.SaveRun(s.ctx, run))

	rows, err := s.store.GetFitness(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Empty(rows)

	metrics, err := s.store.GetMetrics(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Empty(metrics)
}
