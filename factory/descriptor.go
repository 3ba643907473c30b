package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/lifetime-engine/generic"
)

// ParseDescriptor parses an accumulator descriptor such as
// {"kind": "quantile", "max_bins": 50}. The kind must be registered.
func ParseDescriptor(data []byte) (generic.Descriptor, error) {
	var d generic.Descriptor
	if err := decodeStrict(data, &d); err != nil {
		return generic.Descriptor{}, fmt.Errorf("%w: failed to parse descriptor JSON: %w", generic.ErrInvalidDescriptor, err)
	}
	if err := d.Validate(); err != nil {
		return generic.Descriptor{}, err
	}
	return d, nil
}

// DescriptorJSON renders a descriptor as JSON.
func DescriptorJSON(d generic.Descriptor) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
