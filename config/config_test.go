package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lifetime-engine/config"
	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/population"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "", cfg.Server.DBPath)
	assert.Equal(t, lifetime.DefaultStrategy(), cfg.Strategy)
	assert.Equal(t, 120, cfg.World.MaxAge)
}

func TestParse_Overrides(t *testing.T) {
	// GIVEN: a file naming a preset and overriding one key per section
	// WHEN: it is parsed
	// THEN: overrides land on top of the preset and defaults

	doc := `
[server]
addr = ":9090"
db_path = "runs.db"

[simulation]
preset = "early-retiree"
lives = 500
mode = "full"

[strategy]
savings_rate = 0.25

[weights]
consumption_avg_lifetime = 1.0
FractionPersonsRuined = -1000.0

[world]
mortality_multiplier = 0.5
`
	cfg, err := config.Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "runs.db", cfg.Server.DBPath)
	assert.Equal(t, 16, cfg.Server.QueueSize)

	assert.Equal(t, 60, cfg.Strategy.PlannedRetirementAge)
	assert.Equal(t, 0.25, cfg.Strategy.SavingsRate)
	assert.Equal(t, 0.5, cfg.World.MortalityMultiplier)
	assert.Equal(t, 0.03, cfg.World.DiscountRate)
	assert.Greater(t, cfg.World.FemaleMortality.At(80), 0.0, "tables survive the decode")

	req, err := cfg.RunRequest()
	require.NoError(t, err)
	assert.Equal(t, 500, req.Lives)
	assert.Equal(t, lifetime.ModeFull, req.Mode)
	assert.Equal(t, population.Weights{
		"ConsumptionAvgLifetime": 1,
		"FractionPersonsRuined":  -1000,
	}, req.Weights)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"syntax", "[server\n", "failed to parse"},
		{"unknown key", "[server]\nport = 1\n", "server.port"},
		{"unknown preset", "[simulation]\npreset = \"yolo\"\n", "yolo"},
		{"bad fraction", "[strategy]\nsavings_rate = 3.0\n", "savings_rate"},
		{"bad weight", "[weights]\nhappiness = 1.0\n", "happiness"},
		{"bad world", "[world]\nmortality_multiplier = -1.0\n", "mortality_multiplier"},
		{"bad server", "[server]\nrunners = 0\n", "server.runners"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Parse(tc.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = ""
	cfg.Server.QueueSize = 0
	cfg.Simulation.Lives = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.addr")
	assert.Contains(t, err.Error(), "server.queue_size")
	assert.Contains(t, err.Error(), "lives")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifesim.toml")
	require.NoError(t, os.WriteFile(path, []byte("[simulation]\nlives = 42\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Simulation.Lives)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
