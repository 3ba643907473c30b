package generic

import "fmt"

// =============================================================================
// SNAPSHOT - Frozen accumulator state
// =============================================================================

// Snapshot is the serializable state of any accumulator.
// Used for:
//   - Persisting finished runs
//   - Shipping partial results between processes
//   - API responses
type Snapshot struct {
	Kind Kind `json:"kind"`

	// Summary
	Moments *Moments `json:"moments,omitempty"`

	// Quantile
	MaxBins int   `json:"max_bins,omitempty"`
	Bins    []Bin `json:"bins,omitempty"`

	// Keyed
	Leaf *Descriptor         `json:"leaf,omitempty"`
	Keys map[string]Snapshot `json:"keys,omitempty"`
}

// Restore rebuilds a leaf accumulator from its snapshot.
func Restore(s Snapshot) (Leaf, error) {
	switch s.Kind {
	case KindSummary:
		if s.Moments == nil {
			return NewSummaryStats(), nil
		}
		return NewSummaryStatsFromMoments(*s.Moments), nil
	case KindQuantile:
		return NewQuantileFromBins(s.MaxBins, s.Bins), nil
	case KindKeyed:
		return nil, fmt.Errorf("%w: use RestoreKeyed for keyed snapshots", ErrInvalidDescriptor)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
}

// RestoreKeyed rebuilds a keyed snapshot. Keys come back as strings.
func RestoreKeyed(s Snapshot) (*Keyed[string], error) {
	if s.Kind != KindKeyed || s.Leaf == nil {
		return nil, &KindMismatchError{Want: KindKeyed, Got: s.Kind}
	}
	k, err := NewKeyed[string](*s.Leaf)
	if err != nil {
		return nil, err
	}
	for key, sub := range s.Keys {
		leaf, err := Restore(sub)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
		k.entries[key] = leaf
	}
	return k, nil
}

// Mean returns the mean of a summary snapshot, or 0 for other kinds.
func (s Snapshot) Mean() float64 {
	if s.Moments == nil {
		return 0
	}
	return s.Moments.Mean
}
