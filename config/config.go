/*
Package config loads the lifesim configuration file.

PURPOSE:
  One TOML file configures both the CLI and the HTTP server. Every key is
  optional; Default() supplies the baseline and the file overrides it.

FILE LAYOUT:
  [server]
  addr            = ":8080"
  db_path         = "lifesim.db"   # empty keeps runs in memory
  queue_size      = 16
  runners         = 1
  allowed_origins = ["http://localhost:5173"]

  [simulation]
  preset  = "default"              # strategy preset [strategy] starts from
  lives   = 10000
  workers = 0                      # 0 uses GOMAXPROCS
  mode    = "basic"
  gender  = "f"
  seed    = 0                      # 0 draws a fresh seed per run

  [strategy]                       # overrides on top of the preset
  savings_rate = 0.12

  [weights]                        # component or flag names
  consumption_avg_lifetime = 1.0

  [world]                          # scalar rule overrides
  mortality_multiplier = 0.9

  Unknown keys are an error, so typos do not silently fall back to
  defaults.

SEE ALSO:
  - world/rules.go: [world] keys
  - lifetime/strategy.go: [strategy] keys
  - population/fitness.go: [weights] names
*/
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/warp/lifetime-engine/factory"
	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/population"
	"github.com/warp/lifetime-engine/world"
)

// Config is the whole configuration file.
type Config struct {
	Server     ServerConfig       `toml:"server"`
	Simulation SimulationConfig   `toml:"simulation"`
	Strategy   lifetime.Strategy  `toml:"strategy"`
	Weights    map[string]float64 `toml:"weights"`
	World      world.Rules        `toml:"world"`
}

// ServerConfig configures `lifesim serve`.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	DBPath         string   `toml:"db_path"`
	QueueSize      int      `toml:"queue_size"`
	Runners        int      `toml:"runners"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// SimulationConfig holds run defaults.
type SimulationConfig struct {
	Preset  string `toml:"preset"`
	Lives   int    `toml:"lives"`
	Workers int    `toml:"workers"`
	Mode    string `toml:"mode"`
	Gender  string `toml:"gender"`
	Seed    uint64 `toml:"seed"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			QueueSize:      16,
			Runners:        1,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Simulation: SimulationConfig{
			Preset: lifetime.DefaultStrategy().Name,
			Lives:  10000,
			Mode:   string(lifetime.ModeBasic),
			Gender: string(lifetime.Female),
		},
		Strategy: lifetime.DefaultStrategy(),
		Weights:  map[string]float64{},
		World:    world.Default(),
	}
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a TOML document on top of Default and validates it.
func Parse(doc string) (Config, error) {
	// The preset must be known before [strategy] overrides are applied
	var probe struct {
		Simulation struct {
			Preset string `toml:"preset"`
		} `toml:"simulation"`
	}
	if _, err := toml.Decode(doc, &probe); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := Default()
	if name := probe.Simulation.Preset; name != "" {
		preset, ok := lifetime.Presets()[name]
		if !ok {
			return Config{}, fmt.Errorf("unknown strategy preset %q", name)
		}
		cfg.Strategy = preset
	}

	md, err := toml.Decode(doc, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	if c.Server.Addr == "" {
		err = multierr.Append(err, fmt.Errorf("server.addr must not be empty"))
	}
	if c.Server.QueueSize < 1 {
		err = multierr.Append(err, fmt.Errorf("server.queue_size must be at least 1, got %d", c.Server.QueueSize))
	}
	if c.Server.Runners < 1 {
		err = multierr.Append(err, fmt.Errorf("server.runners must be at least 1, got %d", c.Server.Runners))
	}
	if _, rerr := c.RunRequest(); rerr != nil {
		err = multierr.Append(err, rerr)
	}
	if werr := c.World.Validate(); werr != nil {
		err = multierr.Append(err, fmt.Errorf("world: %w", werr))
	}
	return err
}

// RunRequest builds the default run request described by the file.
func (c Config) RunRequest() (population.RunRequest, error) {
	weights, err := factory.NormalizeWeights(c.Weights)
	if err != nil {
		return population.RunRequest{}, fmt.Errorf("%w: weights: %w", population.ErrInvalidRequest, err)
	}
	req := population.RunRequest{
		Strategy: c.Strategy,
		Gender:   lifetime.Gender(c.Simulation.Gender),
		Lives:    c.Simulation.Lives,
		Workers:  c.Simulation.Workers,
		Mode:     lifetime.Mode(c.Simulation.Mode),
		Seed:     c.Simulation.Seed,
		Weights:  weights,
	}
	if err := req.Validate(); err != nil {
		return population.RunRequest{}, err
	}
	return req, nil
}
