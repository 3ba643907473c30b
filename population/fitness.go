/*
fitness.go - Fitness composition table

PURPOSE:
  Reduces a population bundle to a single fitness scalar. Each row reads
  one statistic from one bundle field, multiplies it by a weight, and the
  fitness is the sum of the contributions. The row table is what an
  optimizer or a human reads to see where a strategy's score comes from.

ROW STATISTICS:
  mean:     SummaryStats mean, reported with its standard error
  stddev:   SummaryStats standard deviation, no standard error
  quantile: Histogram quantile at Q, no standard error

WEIGHTS:
  Weights are keyed by component name ("ConsumptionAvgLifetime"). Each
  component also has a snake_case flag name used by the CLI and the
  config file. Missing weights are 0. A row with weight 0 contributes
  exactly 0, even when its value is NaN.

SEE ALSO:
  - lifetime/bundle.go: Field names
  - factory/weights.go: Parsing weights from JSON and flag names
*/
package population

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/warp/lifetime-engine/lifetime"
)

// Stat selects which statistic a component reads.
type Stat string

const (
	StatMean     Stat = "mean"
	StatStdDev   Stat = "stddev"
	StatQuantile Stat = "quantile"
)

// Component is one row recipe of the composition table.
type Component struct {
	Name  string  `json:"name"`
	Flag  string  `json:"flag"`
	Field string  `json:"field"`
	Stat  Stat    `json:"stat"`
	Q     float64 `json:"q,omitempty"`
}

func mean(name, flag, field string) Component {
	return Component{Name: name, Flag: flag, Field: field, Stat: StatMean}
}

func stddev(name, flag, field string) Component {
	return Component{Name: name, Flag: flag, Field: field, Stat: StatStdDev}
}

func quantile(name, flag, field string, q float64) Component {
	return Component{Name: name, Flag: flag, Field: field, Stat: StatQuantile, Q: q}
}

var components = []Component{
	mean("ConsumptionAvgLifetime", "consumption_avg_lifetime", lifetime.LifetimeConsumptionSummary),
	mean("ConsumptionAvgWorking", "consumption_avg_working", lifetime.WorkingConsumptionSummary),
	mean("ConsumptionAvgRetired", "consumption_avg_retired", lifetime.RetiredConsumptionSummary),
	mean("ConsumptionAvgRetiredPreDisability", "consumption_avg_retired_pre_disability", lifetime.PreDisabilityRetiredConsumptionSummary),
	mean("ConsumptionDiscountedLifetime", "consumption_discounted_lifetime", lifetime.DiscountedLifetimeConsumptionSummary),
	quantile("Consumption10PctLifetime", "consumption_10pct_lifetime", lifetime.LifetimeConsumptionHist, 0.1),
	quantile("Consumption20PctLifetime", "consumption_20pct_lifetime", lifetime.LifetimeConsumptionHist, 0.2),
	quantile("ConsumptionMedianLifetime", "consumption_median_lifetime", lifetime.LifetimeConsumptionHist, 0.5),
	quantile("Consumption10PctRetired", "consumption_10pct_retired", lifetime.RetiredConsumptionHist, 0.1),
	quantile("Consumption20PctRetired", "consumption_20pct_retired", lifetime.RetiredConsumptionHist, 0.2),
	quantile("ConsumptionMedianRetired", "consumption_median_retired", lifetime.RetiredConsumptionHist, 0.5),
	stddev("StdConsumptionLifetime", "std_consumption_lifetime", lifetime.LifetimeConsumptionSummary),
	stddev("StdConsumptionWorking", "std_consumption_working", lifetime.WorkingConsumptionSummary),
	stddev("StdConsumptionRetired", "std_consumption_retired", lifetime.RetiredConsumptionSummary),
	mean("EarningsAvgLateWorking", "earnings_avg_late_working", lifetime.EarningsLateWorkingSummary),
	mean("FractionPersonsRuined", "fraction_persons_ruined", lifetime.FractionPersonsRuined),
	mean("FractionRetirementYearsRuined", "fraction_retirement_years_ruined", lifetime.FractionRetirementYearsRuined),
	mean("FractionRetirementYearsBelowYMPE", "fraction_retirement_years_below_ympe", lifetime.FractionRetirementYearsBelowYMPE),
	mean("FractionRetirementYearsBelowTwiceYMPE", "fraction_retirement_years_below_twice_ympe", lifetime.FractionRetirementYearsBelowTwiceYMPE),
	mean("FractionRetireesReceivingGIS", "fraction_retirees_receiving_gis", lifetime.FractionRetireesReceivingGIS),
	mean("FractionRetirementYearsReceivingGIS", "fraction_retirement_years_receiving_gis", lifetime.FractionRetirementYearsReceivingGIS),
	mean("AverageBenefitsGIS", "average_benefits_gis", lifetime.BenefitsGIS),
	mean("FractionRetireesEverBelowLICO", "fraction_retirees_ever_below_lico", lifetime.FractionRetireesEverBelowLICO),
	mean("FractionRetirementYearsBelowLICO", "fraction_retirement_years_below_lico", lifetime.FractionRetirementYearsBelowLICO),
	mean("AverageLICOGapWorking", "average_lico_gap_working", lifetime.LICOGapWorking),
	mean("AverageLICOGapRetired", "average_lico_gap_retired", lifetime.LICOGapRetired),
	mean("FractionPersonsWithWithdrawalsBelowRetirementAssets", "fraction_persons_with_withdrawals_below_retirement_assets", lifetime.FractionPersonsWithWithdrawalsBelowRetirementAssets),
	mean("FractionRetireesWithWithdrawalsBelowRetirementAssets", "fraction_retirees_with_withdrawals_below_retirement_assets", lifetime.FractionRetireesWithWithdrawalsBelowRetirementAssets),
	mean("AverageLifetimeWithdrawalsLessSavings", "average_lifetime_withdrawals_less_savings", lifetime.LifetimeWithdrawalsLessSavings),
	mean("ConsumptionAvgRetirementBelowFractionAvgWorking", "consumption_avg_retirement_below_fraction_avg_working", lifetime.RetirementConsumptionLessWorkingConsumption),
	mean("AverageDistributableEstate", "average_distributable_estate", lifetime.DistributableEstate),
}

// Components returns the row recipes in table order.
func Components() []Component {
	out := make([]Component, len(components))
	copy(out, components)
	return out
}

// Weights maps component names to weights.
type Weights map[string]float64

// Validate rejects names that are not components and non-finite weights.
func (w Weights) Validate() error {
	known := make(map[string]bool, len(components))
	for _, c := range components {
		known[c.Name] = true
	}
	for name, v := range w {
		if !known[name] {
			return fmt.Errorf("%w: unknown fitness component %q", ErrInvalidRequest, name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight for %s is not finite", ErrInvalidRequest, name)
		}
	}
	return nil
}

// =============================================================================
// COMPOSITION TABLE
// =============================================================================

// Row is one line of the composition table. HasStdErr is false for
// quantile and standard deviation rows.
type Row struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	StdErr       float64 `json:"stderr"`
	HasStdErr    bool    `json:"has_stderr"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Composition is the full table in component order.
type Composition []Row

// Compose evaluates every component against a population bundle.
func Compose(b *lifetime.Bundle, weights Weights) (Composition, error) {
	out := make(Composition, 0, len(components))
	for _, c := range components {
		row := Row{Name: c.Name, Weight: weights[c.Name], StdErr: math.NaN()}

		switch c.Stat {
		case StatMean:
			s := b.Summary(c.Field)
			row.Value = s.Mean()
			row.StdErr = s.StdErr()
			row.HasStdErr = true
		case StatStdDev:
			row.Value = b.Summary(c.Field).StdDev()
		case StatQuantile:
			v, err := b.Histogram(c.Field).Quantile(c.Q)
			if err != nil {
				return nil, fmt.Errorf("component %s: %w", c.Name, err)
			}
			row.Value = v
		default:
			return nil, fmt.Errorf("component %s: unknown statistic %q", c.Name, c.Stat)
		}

		if row.Weight != 0 {
			row.Contribution = row.Weight * row.Value
		}
		out = append(out, row)
	}
	return out, nil
}

// Fitness is the sum of the contributions.
func (c Composition) Fitness() float64 {
	total := 0.0
	for _, r := range c {
		total += r.Contribution
	}
	return total
}

// Row returns the named row.
func (c Composition) Row(name string) (Row, bool) {
	for _, r := range c {
		if r.Name == name {
			return r, true
		}
	}
	return Row{}, false
}

// WriteCSV writes the table with a name,value,stderr,weight,contribution
// header. Rows without a standard error leave that column empty.
func (c Composition) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "value", "stderr", "weight", "contribution"}); err != nil {
		return err
	}
	for _, r := range c {
		stderr := ""
		if r.HasStdErr {
			stderr = formatFloat(r.StdErr)
		}
		record := []string{
			r.Name,
			formatFloat(r.Value),
			stderr,
			formatFloat(r.Weight),
			formatFloat(r.Contribution),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
