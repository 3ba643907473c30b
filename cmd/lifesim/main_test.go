package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lifetime-engine/generic"
	"github.com/warp/lifetime-engine/population"
	"github.com/warp/lifetime-engine/store/memory"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// =============================================================================
// RUN
// =============================================================================

func TestRun_PrintsFitnessTable(t *testing.T) {
	out, errOut, err := execute(t, "",
		"run", "--lives", "4", "--workers", "2", "--seed", "9", "--consumption_avg_lifetime", "1")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(population.Components())+1)
	assert.Equal(t, "ConsumptionAvgLifetime", records[1][0])
	assert.Equal(t, "1", records[1][3])

	assert.Contains(t, errOut, "default: 4 lives on 2 workers")
	assert.Contains(t, errOut, "seed 9")
}

func TestRun_ConfigFile(t *testing.T) {
	// GIVEN: a config choosing a preset and a small population
	path := filepath.Join(t.TempDir(), "lifesim.toml")
	doc := `
[simulation]
preset = "no-savings"
lives = 3
workers = 1
seed = 5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	// WHEN: run without flags
	_, errOut, err := execute(t, "", "--config", path, "run")

	// THEN: the file's run is simulated
	require.NoError(t, err)
	assert.Contains(t, errOut, "no-savings: 3 lives on 1 workers")
}

func TestRun_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"mode", []string{"run", "--mode", "verbose"}},
		{"gender", []string{"run", "--gender", "x"}},
		{"preset", []string{"run", "--preset", "yolo"}},
		{"lives", []string{"run", "--lives", "0"}},
		{"config", []string{"--config", "/does/not/exist.toml", "run"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	// GIVEN: a config with its own preset and population size
	path := filepath.Join(t.TempDir(), "lifesim.toml")
	doc := `
[simulation]
preset = "no-savings"
lives = 100

[weights]
consumption_avg_lifetime = 1.0
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	// WHEN: flags replace the preset, the size and add a weight
	out, errOut, err := execute(t, "", "--config", path,
		"run", "--lives", "2", "--workers", "1", "--preset", "early-retiree", "--fraction_persons_ruined", "-1000")

	// THEN: flags win and configured weights are kept
	require.NoError(t, err)
	assert.Contains(t, errOut, "early-retiree: 2 lives on 1 workers")

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	weights := map[string]string{}
	for _, r := range records[1:] {
		weights[r[0]] = r[3]
	}
	assert.Equal(t, "1", weights["ConsumptionAvgLifetime"])
	assert.Equal(t, "-1000", weights["FractionPersonsRuined"])
	assert.Equal(t, "0", weights["ConsumptionAvgWorking"])
}

// =============================================================================
// ACCUMULATE
// =============================================================================

func TestAccumulate_Summary(t *testing.T) {
	out, _, err := execute(t, "1 2\n3 4\n", "accumulate")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "count=4 mean=2.5 "), out)
}

func TestAccumulate_Histogram(t *testing.T) {
	out, _, err := execute(t, "1 2 3", "accumulate", "--descriptor", `{"kind":"quantile","max_bins":10}`, "--q", "0,0.5,1")
	require.NoError(t, err)
	assert.Equal(t, "count=3 q0=1 q0.5=2 q1=3\n", out)
}

func TestAccumulate_Keyed(t *testing.T) {
	var out bytes.Buffer
	err := accumulate(strings.NewReader("b 5\na 1\n\na 3\n"), &out, generic.Summary(), true, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "a count=2 mean=2 "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "b count=1 mean=5 "), lines[1])
}

func TestAccumulate_Errors(t *testing.T) {
	_, _, err := execute(t, "1 two", "accumulate")
	assert.ErrorContains(t, err, "not a number")

	_, _, err = execute(t, "1", "accumulate", "--descriptor", `{"kind":"tdigest"}`)
	assert.ErrorIs(t, err, generic.ErrUnknownKind)

	_, _, err = execute(t, "a 1 2", "accumulate", "--keyed")
	assert.ErrorContains(t, err, "line 1")
}

// =============================================================================
// SERVE
// =============================================================================

func TestFailInterruptedRuns(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	queued := population.RunRecord{ID: uuid.New(), Status: population.StatusQueued, CreatedAt: now}
	done := population.RunRecord{ID: uuid.New(), Status: population.StatusSucceeded, CreatedAt: now}
	require.NoError(t, store.SaveRun(ctx, queued))
	require.NoError(t, store.SaveRun(ctx, done))

	require.NoError(t, failInterruptedRuns(ctx, store, now.Add(time.Hour)))

	got, err := store.GetRun(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, population.StatusFailed, got.Status)
	assert.Equal(t, "interrupted by server restart", got.Error)

	got, err = store.GetRun(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, population.StatusSucceeded, got.Status)
}
