package generic_test

import (
	"errors"
	"math"
	"testing"

	"github.com/warp/lifetime-engine/generic"
)

func histOf(maxBins int, values ...float64) *generic.Quantile {
	q := generic.NewQuantile(maxBins)
	for _, v := range values {
		q.Update(v)
	}
	return q
}

func assertBins(t *testing.T, got []generic.Bin, want []generic.Bin) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d bins %v, got %d bins %v", len(want), want, len(got), got)
	}
	for i := range want {
		if math.Abs(got[i].Centroid-want[i].Centroid) > 1e-3 || got[i].Weight != want[i].Weight {
			t.Errorf("bin %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

// =============================================================================
// HISTOGRAM CONSTRUCTION TESTS
// =============================================================================

func TestQuantile_KeepsAllWhenUnderBudget(t *testing.T) {
	// GIVEN: 3 bins available
	// WHEN: 5, 22, 9 inserted
	// THEN: every value keeps its own bin, sorted

	q := histOf(3, 5, 22, 9)
	assertBins(t, q.Bins(), []generic.Bin{{5, 1}, {9, 1}, {22, 1}})
}

func TestQuantile_MergesClosestPair(t *testing.T) {
	// GIVEN: 2 bins available
	// WHEN: 5, 22, 9 inserted
	// THEN: 5 and 9 (closest) collapse to 7

	q := histOf(2, 5, 22, 9)
	assertBins(t, q.Bins(), []generic.Bin{{7, 2}, {22, 1}})
}

func TestQuantile_CollapsesDuplicates(t *testing.T) {
	q := histOf(2, 5, 5, 5)
	assertBins(t, q.Bins(), []generic.Bin{{5, 3}})

	mixed := generic.NewQuantileFromBins(5, []generic.Bin{{2, 1}, {2, 1}, {2, 1}, {2, 1}, {2, 1}})
	mixed.MergeBins([]generic.Bin{{1, 1}, {1, 1}, {1, 1}})
	assertBins(t, mixed.Bins(), []generic.Bin{{1, 3}, {2, 5}})
}

func TestQuantile_PaperExample(t *testing.T) {
	// GIVEN: the worked example from Ben-Haim & Yom-Tov, 5 bins
	// WHEN: three more points are merged in
	// THEN: the published centroids come out

	q := generic.NewQuantileFromBins(5, []generic.Bin{{2, 1}, {9.5, 2}, {17.5, 2}, {23, 1}, {36, 1}})
	q.MergeBins([]generic.Bin{{32, 1}, {30, 1}, {45, 1}})
	assertBins(t, q.Bins(), []generic.Bin{
		{2, 1}, {9.5, 2}, {19.333, 3}, {32.667, 3}, {45, 1},
	})
}

func TestQuantile_MergeUnderBudget(t *testing.T) {
	// The receiver's budget applies
	a := histOf(4, 5, 22)
	b := histOf(2, 9, 19)
	a.Merge(b)
	assertBins(t, a.Bins(), []generic.Bin{{5, 1}, {9, 1}, {19, 1}, {22, 1}})
}

func TestQuantile_Merge(t *testing.T) {
	// GIVEN: [5, 22] and [9, 19], 2 bins each
	// WHEN: merged
	// THEN: the two closest pairs collapse

	a := histOf(2, 5, 22)
	b := histOf(2, 9, 19)
	a.Merge(b)
	assertBins(t, a.Bins(), []generic.Bin{{7, 2}, {20.5, 2}})
}

func TestQuantile_MergeWithDuplicates(t *testing.T) {
	a := histOf(5, 9, 22)
	b := histOf(5, 9, 19)
	a.Merge(b)
	assertBins(t, a.Bins(), []generic.Bin{{9, 2}, {19, 1}, {22, 1}})
}

func TestQuantile_NeverExceedsBudget(t *testing.T) {
	q := generic.NewQuantile(7)
	for i := 0; i < 500; i++ {
		q.Update(float64((i * 7919) % 1013))
		if n := len(q.Bins()); n > 7 {
			t.Fatalf("after %d updates: %d bins", i+1, n)
		}
	}
	if q.Count() != 500 {
		t.Errorf("expected total weight 500, got %d", q.Count())
	}
}

func TestQuantile_SingleBin(t *testing.T) {
	// GIVEN: two histograms limited to one bin
	// WHEN: updating each and merging them
	// THEN: a single bin holds the weighted mean of everything seen

	a := histOf(1, 2, 4, 6)
	assertBins(t, a.Bins(), []generic.Bin{{4, 3}})

	b := histOf(1, 10, 20)
	a.Merge(b)
	assertBins(t, a.Bins(), []generic.Bin{{8.4, 5}})

	got, err := a.Quantile(0.5)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-8.4) > 1e-9 {
		t.Errorf("expected median 8.4, got %v", got)
	}
}

// =============================================================================
// QUANTILE QUERY TESTS
// =============================================================================

func TestQuantile_UniformRange(t *testing.T) {
	// GIVEN: 0, 0.1, ..., 1000 in 100 bins
	// THEN: quantiles land within one unit of the exact answer

	q := generic.NewQuantile(100)
	for i := 0; i <= 10000; i++ {
		q.Update(float64(i) / 10)
	}

	for _, tc := range []struct{ q, want float64 }{
		{0.5, 500}, {0.2, 200}, {0.1, 100},
	} {
		got, err := q.Quantile(tc.q)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-tc.want) > 1 {
			t.Errorf("q=%v: expected ~%v, got %v", tc.q, tc.want, got)
		}
	}
}

func TestQuantile_Interpolation(t *testing.T) {
	// GIVEN: bins (1,10), (2,5), (3,10)
	// THEN: ends clamp to the outer centroids, the middle interpolates

	q := generic.NewQuantileFromBins(100, []generic.Bin{{1, 10}, {2, 5}, {3, 10}})

	for _, tc := range []struct{ q, want float64 }{
		{0, 1}, {0.1, 1},
		{0.4, 1.6666667}, {0.5, 2}, {0.6, 2.3333333},
		{0.9, 3}, {1, 3},
	} {
		got, err := q.Quantile(tc.q)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-tc.want) > 1e-6 {
			t.Errorf("q=%v: expected %v, got %v", tc.q, tc.want, got)
		}
	}
}

func TestQuantile_OutOfRange(t *testing.T) {
	q := histOf(10, 1, 2, 3)
	for _, bad := range []float64{-0.01, 1.01, math.NaN()} {
		_, err := q.Quantile(bad)
		if !errors.Is(err, generic.ErrInvalidQuantile) {
			t.Errorf("q=%v: expected ErrInvalidQuantile, got %v", bad, err)
		}
		if !generic.IsClientError(err) {
			t.Errorf("q=%v: expected client error", bad)
		}
	}
}

func TestQuantile_Empty(t *testing.T) {
	got, err := generic.NewQuantile(10).Quantile(0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got) {
		t.Errorf("expected NaN, got %v", got)
	}
}

func TestQuantile_SnapshotRoundTrip(t *testing.T) {
	q := histOf(5, 23, 19, 10, 16, 36, 2, 9, 32, 30, 45)

	restored, err := generic.Restore(q.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	r := restored.(*generic.Quantile)
	if r.MaxBins() != 5 {
		t.Errorf("expected 5 max bins, got %d", r.MaxBins())
	}
	assertBins(t, r.Bins(), q.Bins())
}
