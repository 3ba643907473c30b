/*
summary.go - Exact online mean and variance

PURPOSE:
  SummaryStats keeps (n, mean, M2) and derives variance, standard deviation,
  standard error and coefficient of variation from them. It can absorb
  single observations or whole subsamples, using the pairwise update of
  Chan, Golub and LeVeque:

    http://i.stanford.edu/pub/cstr/reports/cs/tr/79/773/CS-TR-79-773.pdf

INVARIANT:
  Merging any partition of a multiset of observations gives the same
  (n, mean, M2) as updating one accumulator with all of them, in any order,
  up to floating-point rounding.

UNDEFINED VALUES:
  Variance, StdDev, StdErr and CV are NaN while n < 2.

EXAMPLE:
  a, b := generic.NewSummaryStats(), generic.NewSummaryStats()
  a.Update(2); a.Update(4)
  b.Update(6)
  a.Merge(b)   // n=3, mean=4, M2=8

SEE ALSO:
  - quantile.go: Approximate distribution of the same samples
*/
package generic

import "math"

// SummaryStats accumulates count, mean and sum of squared deviations.
type SummaryStats struct {
	n    int64
	mean float64
	m2   float64
}

// Moments is the raw state of a SummaryStats.
type Moments struct {
	N    int64   `json:"n"`
	Mean float64 `json:"mean"`
	M2   float64 `json:"m2"`
}

func NewSummaryStats() *SummaryStats {
	return &SummaryStats{}
}

// NewSummaryStatsFromMoments rebuilds an accumulator from persisted moments.
func NewSummaryStatsFromMoments(m Moments) *SummaryStats {
	return &SummaryStats{n: m.N, mean: m.Mean, m2: m.M2}
}

// Update incorporates one observation.
func (s *SummaryStats) Update(value float64) {
	s.n++
	delta := value - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (value - s.mean)
}

// MergeMoments incorporates a subsample summarized by (n, mean, m2).
func (s *SummaryStats) MergeMoments(n int64, mean, m2 float64) {
	if s.n == 0 && n == 0 {
		return
	}
	total := float64(s.n + n)
	delta := mean - s.mean
	s.mean = (s.mean*float64(s.n) + mean*float64(n)) / total
	s.m2 += m2 + delta*delta*float64(s.n)*float64(n)/total
	s.n += n
}

// Merge incorporates every observation summarized by other.
func (s *SummaryStats) Merge(other *SummaryStats) {
	if other == nil {
		return
	}
	s.MergeMoments(other.n, other.mean, other.m2)
}

func (s *SummaryStats) N() int64      { return s.n }
func (s *SummaryStats) Mean() float64 { return s.mean }
func (s *SummaryStats) M2() float64   { return s.m2 }
func (s *SummaryStats) Total() float64 {
	return float64(s.n) * s.mean
}

// Variance returns the sample variance, or NaN if fewer than 2 updates.
func (s *SummaryStats) Variance() float64 {
	if s.n < 2 {
		return math.NaN()
	}
	return s.m2 / float64(s.n-1)
}

// StdDev returns the sample standard deviation, or NaN if fewer than 2 updates.
func (s *SummaryStats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdErr returns the standard error of the mean, or NaN if undefined.
func (s *SummaryStats) StdErr() float64 {
	if s.n == 0 {
		return math.NaN()
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

// CV returns the coefficient of variation (stddev / mean).
func (s *SummaryStats) CV() float64 {
	if s.mean == 0 {
		return math.NaN()
	}
	return s.StdDev() / s.mean
}

func (s *SummaryStats) Moments() Moments {
	return Moments{N: s.n, Mean: s.mean, M2: s.m2}
}

// =============================================================================
// ACCUMULATOR INTERFACE
// =============================================================================

func (s *SummaryStats) Kind() Kind   { return KindSummary }
func (s *SummaryStats) Count() int64 { return s.n }

func (s *SummaryStats) MergeAccumulator(other Accumulator) error {
	o, ok := other.(*SummaryStats)
	if !ok {
		return mismatch(KindSummary, other)
	}
	s.Merge(o)
	return nil
}

func (s *SummaryStats) Snapshot() Snapshot {
	m := s.Moments()
	return Snapshot{Kind: KindSummary, Moments: &m}
}
