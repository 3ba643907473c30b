/*
schedule.go - Keyed rate tables

PURPOSE:
  A Schedule maps a numeric key (an age, an income) to a rate. Tables are
  published only over a finite range, so lookups outside the range return
  the nearest endpoint instead of failing.

LOOKUP RULES:
  key <= first key   -> first value
  key >= last key    -> last value
  exact key          -> its value
  between two keys   -> Step: value of the lower key
                        Linear: straight-line interpolation

EXAMPLE:
  mortality := world.NewStepSchedule(points)
  q := mortality.Lookup(72)

  tax := world.NewLinearSchedule(brackets)
  basic := tax.Lookup(54000)
*/
package world

import "sort"

// Point is one (key, value) row of a schedule.
type Point struct {
	Key   float64 `json:"key"`
	Value float64 `json:"value"`
}

// Schedule is an immutable, sorted rate table.
type Schedule struct {
	points []Point
	linear bool
}

// NewStepSchedule builds a schedule that holds each value until the next key.
func NewStepSchedule(points []Point) Schedule {
	return newSchedule(points, false)
}

// NewLinearSchedule builds a schedule that interpolates between keys.
func NewLinearSchedule(points []Point) Schedule {
	return newSchedule(points, true)
}

func newSchedule(points []Point, linear bool) Schedule {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return Schedule{points: sorted, linear: linear}
}

// Lookup returns the rate at key. An empty schedule returns 0.
func (s Schedule) Lookup(key float64) float64 {
	n := len(s.points)
	if n == 0 {
		return 0
	}
	if key <= s.points[0].Key {
		return s.points[0].Value
	}
	if key >= s.points[n-1].Key {
		return s.points[n-1].Value
	}

	// First point strictly above key; i >= 1 here.
	i := sort.Search(n, func(i int) bool { return s.points[i].Key > key })
	lo, hi := s.points[i-1], s.points[i]
	if !s.linear || lo.Key == key {
		return lo.Value
	}
	p := (key - lo.Key) / (hi.Key - lo.Key)
	return lo.Value + p*(hi.Value-lo.Value)
}

// At is Lookup for integer keys such as ages.
func (s Schedule) At(key int) float64 {
	return s.Lookup(float64(key))
}

// Points returns a copy of the table rows.
func (s Schedule) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

func (s Schedule) Len() int { return len(s.points) }
