/*
Package factory provides JSON to Go conversion for simulation inputs.

PURPOSE:
  Converts JSON documents into strategies, fitness weights, accumulator
  descriptors and complete run requests. This lets a run be configured
  without code changes: the HTTP API, the CLI and stored runs all go
  through the same parsing.

JSON SCHEMA (run request):
  {
    "preset": "conservative-saver",
    "strategy": {"savings_rate": 0.15},
    "gender": "f",
    "lives": 10000,
    "workers": 8,
    "mode": "basic",
    "seed": 42,
    "weights": {
      "ConsumptionAvgLifetime": 1,
      "fraction_persons_ruined": -50000
    }
  }

KEY FEATURES:
  - Strategies start from a named preset and override only the keys given
  - Weights accept component names or snake_case flag names
  - Unknown keys are rejected
  - Missing fields get defaults (default preset, basic mode, gender f)

USAGE:
  f := factory.New()
  req, err := f.ParseRunRequest(body)
  res, err := driver.Run(ctx, req)

SEE ALSO:
  - strategy.go: Strategy documents
  - weights.go: Weight documents and flag names
  - descriptor.go: Accumulator descriptor documents
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/population"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RunRequestJSON is the JSON representation of a run request.
type RunRequestJSON struct {
	Preset   string          `json:"preset,omitempty"`
	Strategy json.RawMessage `json:"strategy,omitempty"`
	Gender   string          `json:"gender,omitempty"`
	Lives    int             `json:"lives"`
	Workers  int             `json:"workers,omitempty"`
	Mode     string          `json:"mode,omitempty"`
	Seed     uint64          `json:"seed,omitempty"`
	Weights  json.RawMessage `json:"weights,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON documents to simulation inputs.
type Factory struct {
	presets map[string]lifetime.Strategy
}

// New creates a factory that knows the built-in strategy presets.
func New() *Factory {
	return &Factory{presets: lifetime.Presets()}
}

// ParseRunRequest parses and validates a run request.
func (f *Factory) ParseRunRequest(data []byte) (population.RunRequest, error) {
	var rj RunRequestJSON
	if err := decodeStrict(data, &rj); err != nil {
		return population.RunRequest{}, fmt.Errorf("%w: failed to parse run request JSON: %w", population.ErrInvalidRequest, err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts a RunRequestJSON into a validated RunRequest.
func (f *Factory) FromJSON(rj RunRequestJSON) (population.RunRequest, error) {
	strategy, err := f.strategy(rj.Preset, rj.Strategy)
	if err != nil {
		return population.RunRequest{}, fmt.Errorf("%w: %w", population.ErrInvalidRequest, err)
	}

	var weights population.Weights
	if len(rj.Weights) > 0 {
		weights, err = ParseWeights(rj.Weights)
		if err != nil {
			return population.RunRequest{}, fmt.Errorf("%w: %w", population.ErrInvalidRequest, err)
		}
	}

	gender := lifetime.Female
	if rj.Gender != "" {
		gender = lifetime.Gender(rj.Gender)
	}
	mode := lifetime.ModeBasic
	if rj.Mode != "" {
		mode = lifetime.Mode(rj.Mode)
	}

	req := population.RunRequest{
		Strategy: strategy,
		Gender:   gender,
		Lives:    rj.Lives,
		Workers:  rj.Workers,
		Mode:     mode,
		Seed:     rj.Seed,
		Weights:  weights,
	}
	if err := req.Validate(); err != nil {
		return population.RunRequest{}, err
	}
	return req, nil
}

// ToJSON converts a RunRequest back to its JSON representation.
func (f *Factory) ToJSON(req population.RunRequest) (RunRequestJSON, error) {
	strategy, err := json.Marshal(req.Strategy)
	if err != nil {
		return RunRequestJSON{}, err
	}
	rj := RunRequestJSON{
		Strategy: strategy,
		Gender:   string(req.Gender),
		Lives:    req.Lives,
		Workers:  req.Workers,
		Mode:     string(req.Mode),
		Seed:     req.Seed,
	}
	if len(req.Weights) > 0 {
		if rj.Weights, err = json.Marshal(req.Weights); err != nil {
			return RunRequestJSON{}, err
		}
	}
	return rj, nil
}

// decodeStrict decodes data into v and rejects unknown keys.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
