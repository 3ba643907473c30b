package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/population"
	"github.com/warp/lifetime-engine/store/sqlite"
	"github.com/warp/lifetime-engine/store/storetest"
)

func TestSQLiteRunStore(t *testing.T) {
	suite.Run(t, &storetest.RunStoreSuite{
		NewStore: func() population.RunStore {
			s, err := sqlite.New(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	})
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	// GIVEN: a run saved to a database file
	// WHEN: the file is reopened
	// THEN: the run and its fitness total are still there

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lifesim.db")

	s, err := sqlite.New(path)
	require.NoError(t, err)
	run := population.RunRecord{
		ID:     uuid.New(),
		Status: population.StatusSucceeded,
		Request: population.RunRequest{
			Strategy: lifetime.DefaultStrategy(),
			Gender:   lifetime.Female,
			Lives:    10,
			Mode:     lifetime.ModeBasic,
		},
		Fitness:   1234.5,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC),
	}
	require.NoError(t, s.SaveRun(ctx, run))
	require.NoError(t, s.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	found, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, found.Fitness)
	assert.True(t, run.CreatedAt.Equal(found.CreatedAt))
}

func TestSQLite_Reset(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveRun(ctx, population.RunRecord{ID: uuid.New(), Status: population.StatusQueued, CreatedAt: time.Now()}))
	require.NoError(t, s.Reset(ctx))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
