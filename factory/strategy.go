package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/lifetime-engine/lifetime"
)

// strategyJSON is a strategy document: an optional preset name plus any
// strategy keys to override.
type strategyJSON struct {
	Preset string `json:"preset,omitempty"`
	*lifetime.Strategy
}

// Preset returns a copy of the named preset.
func (f *Factory) Preset(name string) (lifetime.Strategy, error) {
	s, ok := f.presets[name]
	if !ok {
		return lifetime.Strategy{}, fmt.Errorf("unknown strategy preset %q", name)
	}
	return s, nil
}

// ParseStrategy parses a strategy document. Keys absent from the document
// keep the preset's values; the default preset is used when none is named.
func (f *Factory) ParseStrategy(data []byte) (lifetime.Strategy, error) {
	return f.strategy("", data)
}

func (f *Factory) strategy(preset string, data json.RawMessage) (lifetime.Strategy, error) {
	// A preset named inside the document wins over the outer one
	if len(data) > 0 {
		var probe struct {
			Preset string `json:"preset"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return lifetime.Strategy{}, fmt.Errorf("failed to parse strategy JSON: %w", err)
		}
		if probe.Preset != "" {
			preset = probe.Preset
		}
	}
	if preset == "" {
		preset = lifetime.DefaultStrategy().Name
	}

	base, err := f.Preset(preset)
	if err != nil {
		return lifetime.Strategy{}, err
	}
	if len(data) == 0 {
		return base, nil
	}

	overridden := base
	doc := strategyJSON{Strategy: &overridden}
	if err := decodeStrict(data, &doc); err != nil {
		return lifetime.Strategy{}, fmt.Errorf("failed to parse strategy JSON: %w", err)
	}
	if overridden.Name == base.Name && overridden != base {
		overridden.Name = base.Name + "+custom"
	}
	if err := overridden.Validate(); err != nil {
		return lifetime.Strategy{}, err
	}
	return overridden, nil
}
