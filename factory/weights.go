package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/lifetime-engine/population"
)

// WeightName resolves a component name or a snake_case flag name to the
// component name.
func WeightName(key string) (string, bool) {
	for _, c := range population.Components() {
		if key == c.Name || key == c.Flag {
			return c.Name, true
		}
	}
	return "", false
}

// NormalizeWeights rewrites flag-name keys to component names. Setting
// the same component twice is an error.
func NormalizeWeights(in map[string]float64) (population.Weights, error) {
	out := make(population.Weights, len(in))
	for key, v := range in {
		name, ok := WeightName(key)
		if !ok {
			return nil, fmt.Errorf("unknown fitness component %q", key)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("fitness component %s is set twice", name)
		}
		out[name] = v
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseWeights parses a JSON object of weights.
func ParseWeights(data []byte) (population.Weights, error) {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse weights JSON: %w", err)
	}
	return NormalizeWeights(raw)
}
