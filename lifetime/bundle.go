/*
Package lifetime simulates individual lives and collects their outcomes.

PURPOSE:
  A Bundle is the set of named accumulators one simulated life writes to.
  Lives are merged into a worker's bundle, workers into the population's
  bundle, and reporting code reads the population bundle.

KEY CONCEPTS IN THIS FILE (bundle.go):
  - Mode: basic or full. Full adds per-age and per-period breakdowns.
  - Field registry: one row per tracked metric (name, recipe, mode). New
    metrics are added to the registry only; Merge and Snapshot iterate it.
  - UpdateConsumption: the single entry point that records one year of
    consumption into every related field from the same sample.

FIELD KINDS:
  Summary:   generic.SummaryStats
  Histogram: generic.Quantile
  ByAge:     generic.Keyed[int] of a leaf recipe
  ByPeriod:  generic.Keyed[Period] of a leaf recipe

ACCESS:
  Typed accessors (Summary, Histogram, ByAge, ByPeriod) panic when the
  field is absent from the bundle's mode or has a different shape. Asking
  a basic bundle for a full-only field is a programming error.

SEE ALSO:
  - person.go: Writes to a bundle once per simulated year
  - population/fitness.go: Reads the population bundle
*/
package lifetime

import (
	"errors"
	"fmt"

	"github.com/warp/lifetime-engine/generic"
	"github.com/warp/lifetime-engine/world"
)

// Mode selects which fields a bundle carries.
type Mode string

const (
	ModeBasic Mode = "basic"
	ModeFull  Mode = "full"
)

// ParseMode accepts "basic" and "full". The empty string is basic.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeBasic:
		return ModeBasic, nil
	case ModeFull:
		return ModeFull, nil
	}
	return "", fmt.Errorf("unknown bundle mode %q", s)
}

// Period classifies one simulated year.
type Period string

const (
	PeriodEmployed   Period = "Employed"
	PeriodUnemployed Period = "Unemployed"
	PeriodRetired    Period = "Retired"
)

// ErrModeMismatch is returned when merging bundles of different modes.
var ErrModeMismatch = errors.New("bundle mode mismatch")

// =============================================================================
// FIELD NAMES
// =============================================================================

const (
	LifetimeConsumptionSummary             = "lifetime_consumption_summary"
	LifetimeConsumptionHist                = "lifetime_consumption_hist"
	DiscountedLifetimeConsumptionSummary   = "discounted_lifetime_consumption_summary"
	WorkingConsumptionSummary              = "working_consumption_summary"
	WorkingConsumptionHist                 = "working_consumption_hist"
	RetiredConsumptionSummary              = "retired_consumption_summary"
	RetiredConsumptionHist                 = "retired_consumption_hist"
	PreDisabilityRetiredConsumptionSummary = "pre_disability_retired_consumption_summary"
	EarningsLateWorkingSummary             = "earnings_late_working_summary"

	FractionPersonsRuined                 = "fraction_persons_ruined"
	FractionRetirementYearsRuined         = "fraction_retirement_years_ruined"
	FractionRetirementYearsBelowYMPE      = "fraction_retirement_years_below_ympe"
	FractionRetirementYearsBelowTwiceYMPE = "fraction_retirement_years_below_twice_ympe"
	FractionRetireesReceivingGIS          = "fraction_retirees_receiving_gis"
	FractionRetirementYearsReceivingGIS   = "fraction_retirement_years_receiving_gis"
	BenefitsGIS                           = "benefits_gis"
	FractionRetireesEverBelowLICO         = "fraction_retirees_ever_below_lico"
	FractionRetirementYearsBelowLICO      = "fraction_retirement_years_below_lico"
	LICOGapWorking                        = "lico_gap_working"
	LICOGapRetired                        = "lico_gap_retired"

	FractionPersonsWithWithdrawalsBelowRetirementAssets  = "fraction_persons_with_withdrawals_below_retirement_assets"
	FractionRetireesWithWithdrawalsBelowRetirementAssets = "fraction_retirees_with_withdrawals_below_retirement_assets"
	LifetimeWithdrawalsLessSavings                       = "lifetime_withdrawals_less_savings"
	RetirementConsumptionLessWorkingConsumption          = "retirement_consumption_less_working_consumption"
	DistributableEstate                                  = "distributable_estate"

	// Full mode only
	AgeAtDeath          = "age_at_death"
	YearsInRetirement   = "years_in_retirement"
	ConsumptionByAge    = "consumption_by_age"
	ConsumptionByPeriod = "consumption_by_period"
	EarningsByAge       = "earnings_by_age"
)

// =============================================================================
// FIELD REGISTRY
// =============================================================================

// Shape says how a field stores its leaf accumulators.
type Shape string

const (
	ShapeLeaf     Shape = "leaf"
	ShapeByAge    Shape = "by_age"
	ShapeByPeriod Shape = "by_period"
)

// FieldSpec is one row of the field registry. It is plain data so the
// layout of a bundle can be described without building one.
type FieldSpec struct {
	Name     string             `json:"name"`
	Leaf     generic.Descriptor `json:"leaf"`
	Shape    Shape              `json:"shape"`
	FullOnly bool               `json:"full_only,omitempty"`
}

func (f FieldSpec) build() generic.Accumulator {
	switch f.Shape {
	case ShapeByAge:
		return generic.MustKeyed[int](f.Leaf)
	case ShapeByPeriod:
		return generic.MustKeyed[Period](f.Leaf)
	}
	return f.Leaf.MustNew()
}

func summary(name string) FieldSpec {
	return FieldSpec{Name: name, Leaf: generic.Summary(), Shape: ShapeLeaf}
}

func histogram(name string) FieldSpec {
	return FieldSpec{Name: name, Leaf: generic.Histogram(generic.DefaultMaxBins), Shape: ShapeLeaf}
}

var registry = []FieldSpec{
	summary(LifetimeConsumptionSummary),
	histogram(LifetimeConsumptionHist),
	summary(DiscountedLifetimeConsumptionSummary),
	summary(WorkingConsumptionSummary),
	histogram(WorkingConsumptionHist),
	summary(RetiredConsumptionSummary),
	histogram(RetiredConsumptionHist),
	summary(PreDisabilityRetiredConsumptionSummary),
	summary(EarningsLateWorkingSummary),

	summary(FractionPersonsRuined),
	summary(FractionRetirementYearsRuined),
	summary(FractionRetirementYearsBelowYMPE),
	summary(FractionRetirementYearsBelowTwiceYMPE),
	summary(FractionRetireesReceivingGIS),
	summary(FractionRetirementYearsReceivingGIS),
	summary(BenefitsGIS),
	summary(FractionRetireesEverBelowLICO),
	summary(FractionRetirementYearsBelowLICO),
	summary(LICOGapWorking),
	summary(LICOGapRetired),
	summary(FractionPersonsWithWithdrawalsBelowRetirementAssets),
	summary(FractionRetireesWithWithdrawalsBelowRetirementAssets),
	summary(LifetimeWithdrawalsLessSavings),
	summary(RetirementConsumptionLessWorkingConsumption),
	summary(DistributableEstate),

	{Name: AgeAtDeath, Leaf: generic.Summary(), Shape: ShapeLeaf, FullOnly: true},
	{Name: YearsInRetirement, Leaf: generic.Summary(), Shape: ShapeLeaf, FullOnly: true},
	{Name: ConsumptionByAge, Leaf: generic.Summary(), Shape: ShapeByAge, FullOnly: true},
	{Name: ConsumptionByPeriod, Leaf: generic.Histogram(generic.DefaultMaxBins), Shape: ShapeByPeriod, FullOnly: true},
	{Name: EarningsByAge, Leaf: generic.Summary(), Shape: ShapeByAge, FullOnly: true},
}

// Fields returns the registry rows present in mode, in registry order.
func Fields(mode Mode) []FieldSpec {
	out := make([]FieldSpec, 0, len(registry))
	for _, f := range registry {
		if f.FullOnly && mode != ModeFull {
			continue
		}
		out = append(out, f)
	}
	return out
}

// =============================================================================
// BUNDLE
// =============================================================================

// Bundle is the per-life, per-worker or per-population set of metrics.
type Bundle struct {
	mode   Mode
	rules  world.Rules
	specs  []FieldSpec
	fields map[string]generic.Accumulator
}

// NewBundle creates an empty bundle. rules supplies the discount rate,
// the base year and the disability age used by UpdateConsumption.
func NewBundle(mode Mode, rules world.Rules) *Bundle {
	specs := Fields(mode)
	b := &Bundle{
		mode:   mode,
		rules:  rules,
		specs:  specs,
		fields: make(map[string]generic.Accumulator, len(specs)),
	}
	for _, f := range specs {
		b.fields[f.Name] = f.build()
	}
	return b
}

func (b *Bundle) Mode() Mode { return b.mode }

// Has reports whether the bundle carries the named field.
func (b *Bundle) Has(name string) bool {
	_, ok := b.fields[name]
	return ok
}

// Field returns the named accumulator, or nil if absent.
func (b *Bundle) Field(name string) generic.Accumulator {
	return b.fields[name]
}

// Specs returns the registry rows of the bundle's fields.
func (b *Bundle) Specs() []FieldSpec {
	return append([]FieldSpec(nil), b.specs...)
}

func (b *Bundle) mustField(name string) generic.Accumulator {
	acc, ok := b.fields[name]
	if !ok {
		panic(fmt.Sprintf("lifetime: field %q is not part of a %s bundle", name, b.mode))
	}
	return acc
}

// Summary returns a summary field. It panics if the field is absent or
// not a summary.
func (b *Bundle) Summary(name string) *generic.SummaryStats {
	s, ok := b.mustField(name).(*generic.SummaryStats)
	if !ok {
		panic(fmt.Sprintf("lifetime: field %q is not a summary", name))
	}
	return s
}

// Histogram returns a quantile field.
func (b *Bundle) Histogram(name string) *generic.Quantile {
	q, ok := b.mustField(name).(*generic.Quantile)
	if !ok {
		panic(fmt.Sprintf("lifetime: field %q is not a histogram", name))
	}
	return q
}

// ByAge returns an age-keyed field.
func (b *Bundle) ByAge(name string) *generic.Keyed[int] {
	k, ok := b.mustField(name).(*generic.Keyed[int])
	if !ok {
		panic(fmt.Sprintf("lifetime: field %q is not keyed by age", name))
	}
	return k
}

// ByPeriod returns a period-keyed field.
func (b *Bundle) ByPeriod(name string) *generic.Keyed[Period] {
	k, ok := b.mustField(name).(*generic.Keyed[Period])
	if !ok {
		panic(fmt.Sprintf("lifetime: field %q is not keyed by period", name))
	}
	return k
}

// =============================================================================
// UPDATES
// =============================================================================

// Observe records value in a leaf field.
func (b *Bundle) Observe(name string, value float64) {
	leaf, ok := b.mustField(name).(generic.Leaf)
	if !ok {
		panic(fmt.Sprintf("lifetime: field %q is keyed", name))
	}
	leaf.Update(value)
}

// ObserveBool records 1 for true and 0 for false, so the field's mean is
// the fraction of true observations.
func (b *Bundle) ObserveBool(name string, v bool) {
	if v {
		b.Observe(name, 1)
		return
	}
	b.Observe(name, 0)
}

// UpdateConsumption records one year of consumption. Every field it
// touches sees the same sample, so their counts stay consistent.
func (b *Bundle) UpdateConsumption(value float64, year int, isRetired bool, period Period) {
	b.Summary(LifetimeConsumptionSummary).Update(value)
	b.Histogram(LifetimeConsumptionHist).Update(value)
	b.Summary(DiscountedLifetimeConsumptionSummary).Update(b.rules.Discount(value, year))

	age := b.rules.AgeIn(year)
	if isRetired {
		b.Summary(RetiredConsumptionSummary).Update(value)
		b.Histogram(RetiredConsumptionHist).Update(value)
		if age <= b.rules.AvgDisabilityAge {
			b.Summary(PreDisabilityRetiredConsumptionSummary).Update(value)
		}
	} else {
		b.Summary(WorkingConsumptionSummary).Update(value)
		b.Histogram(WorkingConsumptionHist).Update(value)
	}

	if b.mode == ModeFull {
		b.ByAge(ConsumptionByAge).Update(age, value)
		b.ByPeriod(ConsumptionByPeriod).Update(period, value)
	}
}

// =============================================================================
// MERGE / SNAPSHOT
// =============================================================================

// Merge folds other into b field by field. Both bundles must have the
// same mode.
func (b *Bundle) Merge(other *Bundle) error {
	if other == nil {
		return nil
	}
	if other.mode != b.mode {
		return fmt.Errorf("%w: %s into %s", ErrModeMismatch, other.mode, b.mode)
	}
	for _, f := range b.specs {
		if err := b.fields[f.Name].MergeAccumulator(other.fields[f.Name]); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

// Snapshot returns the serializable state of every field.
func (b *Bundle) Snapshot() map[string]generic.Snapshot {
	out := make(map[string]generic.Snapshot, len(b.specs))
	for _, f := range b.specs {
		out[f.Name] = b.fields[f.Name].Snapshot()
	}
	return out
}
