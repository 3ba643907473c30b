/*
quantile.go - Streaming histogram with quantile interpolation

PURPOSE:
  Quantile approximates a distribution with at most MaxBins weighted
  centroids, following the streaming parallel histogram of Ben-Haim and
  Yom-Tov:

    http://jmlr.org/papers/volume11/ben-haim10a/ben-haim10a.pdf

  Updates and merges are one pass; merging two histograms is an
  approximation, not guaranteed identical to a single-pass build.

REBALANCE:
  After every insert or merge:
  1. Adjacent bins with exactly equal centroids are combined (lossless)
  2. While len(bins) > MaxBins, the adjacent pair with the smallest centroid
     gap is replaced by its weight-weighted average. Only the gaps next to
     the merged bin are recomputed.

QUANTILE:
  Each bin's weight is split half to each neighbouring gap, giving a
  cumulative curve whose points sit at the bin centroids. The target mass
  q*total is located on that curve and the centroid position is linearly
  interpolated. Targets before the first centroid or at/after the last
  return that centroid exactly.

INVARIANTS:
  - len(bins) <= MaxBins after every operation
  - sum of weights == observations ever incorporated

SEE ALSO:
  - summary.go: Exact moments for the same samples
*/
package generic

import (
	"math"
	"sort"
)

// DefaultMaxBins is used when a descriptor does not specify a bin budget.
const DefaultMaxBins = 100

// Quantile is an adaptive streaming histogram.
type Quantile struct {
	maxBins int
	bins    []Bin
}

// NewQuantile creates an empty histogram. maxBins < 1 falls back to DefaultMaxBins.
func NewQuantile(maxBins int) *Quantile {
	if maxBins < 1 {
		maxBins = DefaultMaxBins
	}
	return &Quantile{maxBins: maxBins}
}

// NewQuantileFromBins rebuilds a histogram from persisted bins.
func NewQuantileFromBins(maxBins int, bins []Bin) *Quantile {
	q := NewQuantile(maxBins)
	q.MergeBins(bins)
	return q
}

func (q *Quantile) MaxBins() int { return q.maxBins }

// Bins returns a copy of the current bins in centroid order.
func (q *Quantile) Bins() []Bin {
	out := make([]Bin, len(q.bins))
	copy(out, q.bins)
	return out
}

// Update inserts one observation.
func (q *Quantile) Update(value float64) {
	i := sort.Search(len(q.bins), func(i int) bool {
		return q.bins[i].Centroid > value
	})
	q.bins = append(q.bins, Bin{})
	copy(q.bins[i+1:], q.bins[i:])
	q.bins[i] = Bin{Centroid: value, Weight: 1}
	q.rebalance()
}

// MergeBins concatenates bins into the histogram, re-sorts and rebalances.
func (q *Quantile) MergeBins(bins []Bin) {
	if len(bins) == 0 {
		return
	}
	q.bins = append(q.bins, bins...)
	sort.SliceStable(q.bins, func(i, j int) bool {
		return q.bins[i].Centroid < q.bins[j].Centroid
	})
	q.rebalance()
}

// Merge incorporates another histogram.
func (q *Quantile) Merge(other *Quantile) {
	if other == nil {
		return
	}
	q.MergeBins(other.bins)
}

func (q *Quantile) rebalance() {
	q.collapseDuplicates()
	if len(q.bins) <= q.maxBins {
		return
	}

	gaps := make([]float64, len(q.bins)-1)
	for i := range gaps {
		gaps[i] = q.bins[i+1].Centroid - q.bins[i].Centroid
	}

	for len(q.bins) > q.maxBins {
		// Lowest index wins ties.
		i := 0
		for j := 1; j < len(gaps); j++ {
			if gaps[j] < gaps[i] {
				i = j
			}
		}

		a, b := q.bins[i], q.bins[i+1]
		w := a.Weight + b.Weight
		q.bins[i] = Bin{
			Centroid: (a.Centroid*float64(a.Weight) + b.Centroid*float64(b.Weight)) / float64(w),
			Weight:   w,
		}
		q.bins = append(q.bins[:i+1], q.bins[i+2:]...)
		gaps = append(gaps[:i], gaps[i+1:]...)

		if i > 0 {
			gaps[i-1] = q.bins[i].Centroid - q.bins[i-1].Centroid
		}
		if i < len(gaps) {
			gaps[i] = q.bins[i+1].Centroid - q.bins[i].Centroid
		}
	}
}

func (q *Quantile) collapseDuplicates() {
	if len(q.bins) < 2 {
		return
	}
	out := q.bins[:1]
	for _, b := range q.bins[1:] {
		last := &out[len(out)-1]
		if b.Centroid == last.Centroid {
			last.Weight += b.Weight
			continue
		}
		out = append(out, b)
	}
	q.bins = out
}

// Quantile returns the approximate q-th quantile.
// It returns NaN when no observations have been recorded.
func (q *Quantile) Quantile(p float64) (float64, error) {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return math.NaN(), &QuantileRangeError{Q: p}
	}
	if len(q.bins) == 0 {
		return math.NaN(), nil
	}

	// cumsums[k] is the mass up to the k-th point of [0, bins..., 0].
	cumsums := make([]float64, len(q.bins)+2)
	prev := 0.0
	for k := 1; k < len(cumsums); k++ {
		cur := 0.0
		if k <= len(q.bins) {
			cur = float64(q.bins[k-1].Weight)
		}
		cumsums[k] = cumsums[k-1] + (cur+prev)/2
		prev = cur
	}

	target := p * cumsums[len(cumsums)-1]
	i := sort.Search(len(cumsums), func(k int) bool {
		return cumsums[k] > target
	}) - 1

	switch {
	case i <= 0:
		return q.bins[0].Centroid, nil
	case i >= len(q.bins):
		return q.bins[len(q.bins)-1].Centroid, nil
	}

	frac := (target - cumsums[i]) / (cumsums[i+1] - cumsums[i])
	lo, hi := q.bins[i-1].Centroid, q.bins[i].Centroid
	return lo + frac*(hi-lo), nil
}

// =============================================================================
// ACCUMULATOR INTERFACE
// =============================================================================

func (q *Quantile) Kind() Kind { return KindQuantile }

func (q *Quantile) Count() int64 {
	var n int64
	for _, b := range q.bins {
		n += b.Weight
	}
	return n
}

func (q *Quantile) MergeAccumulator(other Accumulator) error {
	o, ok := other.(*Quantile)
	if !ok {
		return mismatch(KindQuantile, other)
	}
	q.Merge(o)
	return nil
}

func (q *Quantile) Snapshot() Snapshot {
	return Snapshot{Kind: KindQuantile, MaxBins: q.maxBins, Bins: q.Bins()}
}
