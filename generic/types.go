/*
Package generic provides the mergeable statistics engine.

PURPOSE:
  This package contains domain-agnostic accumulators used to summarize
  millions of simulated observations without keeping the raw samples.
  Every accumulator can absorb single values and can absorb another
  accumulator of the same kind, so independent workers can each build a
  partial result and the partial results can be folded together later.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: Which accumulator family an object belongs to
  - Accumulator: The common surface every family implements
  - Bin: One weighted centroid of the streaming histogram

ACCUMULATOR FAMILIES:
  SummaryStats: Exact count/mean/variance (Chan et al. generalization of Welford)
  Quantile:     Approximate streaming histogram (Ben-Haim & Yom-Tov)
  Keyed:        Lazily created sub-accumulators grouped by key

DESIGN PRINCIPLES:
  1. Mergeable: merge(a, b) equals feeding both sample sets into one accumulator
  2. Descriptive factories: sub-accumulators are built from a Descriptor value,
     never from a closure, so the recipe can be serialized and shipped
  3. Absence is not failure: empty accumulators report NaN, not errors

USAGE:
  stats := generic.NewSummaryStats()
  for _, v := range values {
      stats.Update(v)
  }
  fmt.Println(stats.Mean(), stats.StdErr())

  hist := generic.NewQuantile(100)
  hist.Update(42)
  median, _ := hist.Quantile(0.5)

SEE ALSO:
  - summary.go: SummaryStats
  - quantile.go: Quantile histogram
  - keyed.go: Keyed grouping
  - descriptor.go: Descriptor and kind registry
*/
package generic

// =============================================================================
// KIND - Accumulator family tag
// =============================================================================

// Kind identifies an accumulator family.
type Kind string

const (
	KindSummary  Kind = "summary"
	KindQuantile Kind = "quantile"
	KindKeyed    Kind = "keyed"
)

// =============================================================================
// ACCUMULATOR - Common surface
// =============================================================================

// Accumulator is implemented by every mergeable statistic.
//
// MergeAccumulator folds other into the receiver. other must be of the same
// Kind (and, for Keyed, the same key type); a mismatch is reported as a
// *KindMismatchError and leaves the receiver untouched.
type Accumulator interface {
	// Kind returns the accumulator family.
	Kind() Kind

	// Count returns the number of observations incorporated so far.
	Count() int64

	// MergeAccumulator folds other into the receiver.
	MergeAccumulator(other Accumulator) error

	// Snapshot returns a serializable copy of the accumulated state.
	Snapshot() Snapshot
}

// =============================================================================
// BIN - Histogram centroid
// =============================================================================

// Bin is one weighted cluster of observations in a Quantile histogram.
type Bin struct {
	Centroid float64 `json:"centroid"`
	Weight   int64   `json:"weight"`
}
