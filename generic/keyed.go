/*
keyed.go - Accumulators grouped by key

PURPOSE:
  Keyed holds one leaf accumulator per key, created lazily from a
  Descriptor the first time the key is observed. Typical keys are an age,
  a retirement period name, or a (period, age) pair.

BEHAVIOUR:
  - Update(key, v) creates the entry if needed, then forwards v to it
  - Merge folds every entry of other into the matching entry, creating
    missing keys from the receiver's descriptor
  - Query(keys...) returns a NEW accumulator merging the listed keys.
    Keys that were never observed contribute nothing and are not created.

EXAMPLE:
  byAge := generic.MustKeyed[int](generic.Summary())
  byAge.Update(65, 12000)
  byAge.Update(66, 11000)
  total, _ := byAge.Query(65, 66)   // SummaryStats with n=2

SEE ALSO:
  - descriptor.go: Leaf recipes
*/
package generic

import (
	"fmt"
	"sort"
)

// Keyed maps keys to lazily created leaf accumulators.
type Keyed[K comparable] struct {
	leaf    Descriptor
	entries map[K]Leaf
}

// NewKeyed creates an empty group whose entries are built from leaf.
func NewKeyed[K comparable](leaf Descriptor) (*Keyed[K], error) {
	if err := leaf.Validate(); err != nil {
		return nil, err
	}
	return &Keyed[K]{leaf: leaf, entries: make(map[K]Leaf)}, nil
}

// MustKeyed is NewKeyed for descriptors known to be valid.
func MustKeyed[K comparable](leaf Descriptor) *Keyed[K] {
	k, err := NewKeyed[K](leaf)
	if err != nil {
		panic(err)
	}
	return k
}

func (k *Keyed[K]) Descriptor() Descriptor { return k.leaf }
func (k *Keyed[K]) Len() int               { return len(k.entries) }

// Update records value under key.
func (k *Keyed[K]) Update(key K, value float64) {
	k.entry(key).Update(value)
}

func (k *Keyed[K]) entry(key K) Leaf {
	e, ok := k.entries[key]
	if !ok {
		e = k.leaf.MustNew()
		k.entries[key] = e
	}
	return e
}

// Get returns the accumulator stored under key.
func (k *Keyed[K]) Get(key K) (Leaf, bool) {
	e, ok := k.entries[key]
	return e, ok
}

// Keys returns the observed keys, ordered by their formatted value.
func (k *Keyed[K]) Keys() []K {
	keys := make([]K, 0, len(k.entries))
	for key := range k.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})
	return keys
}

// Merge folds every entry of other into k.
func (k *Keyed[K]) Merge(other *Keyed[K]) error {
	if other == nil {
		return nil
	}
	for key, e := range other.entries {
		if err := k.entry(key).MergeAccumulator(e); err != nil {
			return fmt.Errorf("key %v: %w", key, err)
		}
	}
	return nil
}

// Query returns a new accumulator that merges the entries under keys.
// Unobserved keys are skipped, repeated keys count once and the group is
// not modified.
func (k *Keyed[K]) Query(keys ...K) (Leaf, error) {
	result, err := k.leaf.New()
	if err != nil {
		return nil, err
	}
	seen := make(map[K]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		e, ok := k.entries[key]
		if !ok {
			continue
		}
		if err := result.MergeAccumulator(e); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// =============================================================================
// ACCUMULATOR INTERFACE
// =============================================================================

func (k *Keyed[K]) Kind() Kind { return KindKeyed }

func (k *Keyed[K]) Count() int64 {
	var n int64
	for _, e := range k.entries {
		n += e.Count()
	}
	return n
}

func (k *Keyed[K]) MergeAccumulator(other Accumulator) error {
	o, ok := other.(*Keyed[K])
	if !ok {
		return mismatch(KindKeyed, other)
	}
	return k.Merge(o)
}

// Snapshot formats keys with fmt.Sprint.
func (k *Keyed[K]) Snapshot() Snapshot {
	leaf := k.leaf
	s := Snapshot{Kind: KindKeyed, Leaf: &leaf, Keys: make(map[string]Snapshot, len(k.entries))}
	for key, e := range k.entries {
		s.Keys[fmt.Sprint(key)] = e.Snapshot()
	}
	return s
}

func lessKey[K comparable](a, b K) bool {
	switch x := any(a).(type) {
	case int:
		return x < any(b).(int)
	case int64:
		return x < any(b).(int64)
	case float64:
		return x < any(b).(float64)
	case string:
		return x < any(b).(string)
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
