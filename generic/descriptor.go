/*
descriptor.go - Serializable accumulator recipes and the kind registry

PURPOSE:
  A Descriptor says how to build a fresh leaf accumulator. Keyed groups
  and bundle fields hold a Descriptor instead of a constructor closure, so
  the recipe can be stored next to a snapshot, shipped to another worker,
  or written in a config file.

HOW IT WORKS:
  1. Each leaf kind registers a LeafFactory under its Kind
  2. Descriptor.New looks the kind up and calls the factory
  3. Other packages may register extra kinds from init()

USAGE:
  d := generic.Descriptor{Kind: generic.KindQuantile, MaxBins: 50}
  leaf, err := d.New()

  // Custom kinds
  func init() {
      generic.RegisterKind("clamped", newClamped)
  }

SEE ALSO:
  - keyed.go: Builds entries from a Descriptor
  - snapshot.go: Stores the Descriptor of keyed entries
  - factory/descriptor.go: JSON parsing of descriptors
*/
package generic

import (
	"fmt"
	"sort"
	"sync"
)

// Leaf is an accumulator that observes scalar values directly.
type Leaf interface {
	Accumulator
	Update(value float64)
}

// Descriptor is a serializable recipe for a leaf accumulator.
type Descriptor struct {
	Kind    Kind `json:"kind"`
	MaxBins int  `json:"max_bins,omitempty"`
}

// Summary returns the descriptor of a SummaryStats.
func Summary() Descriptor {
	return Descriptor{Kind: KindSummary}
}

// Histogram returns the descriptor of a Quantile with maxBins bins.
func Histogram(maxBins int) Descriptor {
	return Descriptor{Kind: KindQuantile, MaxBins: maxBins}
}

// Validate checks that the descriptor names a registered leaf kind.
func (d Descriptor) Validate() error {
	if d.Kind == KindKeyed {
		return fmt.Errorf("%w: keyed accumulators cannot be nested", ErrInvalidDescriptor)
	}
	if LookupKind(d.Kind) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
	}
	if d.MaxBins < 0 {
		return fmt.Errorf("%w: max_bins must not be negative, got %d", ErrInvalidDescriptor, d.MaxBins)
	}
	return nil
}

// New builds an empty accumulator from the descriptor.
func (d Descriptor) New() (Leaf, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return LookupKind(d.Kind)(d)
}

// MustNew is New for descriptors known to be valid. It panics otherwise.
func (d Descriptor) MustNew() Leaf {
	leaf, err := d.New()
	if err != nil {
		panic(err)
	}
	return leaf
}

func (d Descriptor) String() string {
	if d.Kind == KindQuantile {
		return fmt.Sprintf("%s(%d)", d.Kind, d.effectiveBins())
	}
	return string(d.Kind)
}

func (d Descriptor) effectiveBins() int {
	if d.MaxBins < 1 {
		return DefaultMaxBins
	}
	return d.MaxBins
}

// =============================================================================
// KIND REGISTRY
// =============================================================================

// LeafFactory builds an empty leaf accumulator for a validated descriptor.
type LeafFactory func(d Descriptor) (Leaf, error)

var (
	kindRegistry = make(map[Kind]LeafFactory)
	registryMu   sync.RWMutex
)

func init() {
	RegisterKind(KindSummary, func(Descriptor) (Leaf, error) {
		return NewSummaryStats(), nil
	})
	RegisterKind(KindQuantile, func(d Descriptor) (Leaf, error) {
		return NewQuantile(d.effectiveBins()), nil
	})
}

// RegisterKind adds a leaf kind to the global registry.
func RegisterKind(kind Kind, factory LeafFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	kindRegistry[kind] = factory
}

// LookupKind returns the factory for kind, or nil if none is registered.
func LookupKind(kind Kind) LeafFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return kindRegistry[kind]
}

// ListKinds returns every registered leaf kind in name order.
func ListKinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Kind, 0, len(kindRegistry))
	for k := range kindRegistry {
		result = append(result, k)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
