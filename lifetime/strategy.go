/*
strategy.go - Savings and drawdown strategies

PURPOSE:
  A Strategy is the set of decisions a simulated person follows for their
  whole life: when to retire, how much of their earnings to save and where,
  and in which order to draw funds down once retired. The population
  driver evaluates one strategy over many random lives.

PRESETS:
  DefaultStrategy:     The baseline used by the CLI when no flags are given
  ConservativeSaver:   Saves more, retires later, prefers the TFSA
  EarlyRetiree:        Retires at 60, drawing the RRSP first
  NoSavings:           Saves nothing; lives on government benefits
  All presets are listed by Presets() and served by GET /api/strategies.

FRACTIONS:
  Every *Fraction field is in [0, 1]. Savings and drawdown fractions are
  cumulative chain proportions: the RRSP receives savings_rrsp_fraction of
  the savings, the TFSA receives savings_tfsa_fraction of what is left,
  and the non-registered fund takes the rest.

SEE ALSO:
  - person.go: Applies a strategy each simulated year
  - factory/strategy.go: JSON parsing
*/
package lifetime

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/multierr"
)

// Strategy holds the choices of one simulated saver.
type Strategy struct {
	Name string `json:"name,omitempty" toml:"name"`

	PlannedRetirementAge int     `json:"planned_retirement_age" toml:"planned_retirement_age"`
	SavingsThreshold     float64 `json:"savings_threshold" toml:"savings_threshold"`
	SavingsRate          float64 `json:"savings_rate" toml:"savings_rate"`
	SavingsRRSPFraction  float64 `json:"savings_rrsp_fraction" toml:"savings_rrsp_fraction"`
	SavingsTFSAFraction  float64 `json:"savings_tfsa_fraction" toml:"savings_tfsa_fraction"`
	LICOTargetFraction   float64 `json:"lico_target_fraction" toml:"lico_target_fraction"`

	WorkingPeriodDrawdownTFSAFraction   float64 `json:"working_period_drawdown_tfsa_fraction" toml:"working_period_drawdown_tfsa_fraction"`
	WorkingPeriodDrawdownNonRegFraction float64 `json:"working_period_drawdown_nonreg_fraction" toml:"working_period_drawdown_nonreg_fraction"`

	OASBridgingFraction float64 `json:"oas_bridging_fraction" toml:"oas_bridging_fraction"`
	DrawdownCEDFraction float64 `json:"drawdown_ced_fraction" toml:"drawdown_ced_fraction"`
	InitialCDFraction   float64 `json:"initial_cd_fraction" toml:"initial_cd_fraction"`

	DrawdownPreferredRRSPFraction      float64 `json:"drawdown_preferred_rrsp_fraction" toml:"drawdown_preferred_rrsp_fraction"`
	DrawdownPreferredTFSAFraction      float64 `json:"drawdown_preferred_tfsa_fraction" toml:"drawdown_preferred_tfsa_fraction"`
	ReinvestmentPreferenceTFSAFraction float64 `json:"reinvestment_preference_tfsa_fraction" toml:"reinvestment_preference_tfsa_fraction"`
}

// Validate reports every out-of-range field at once.
func (s Strategy) Validate() error {
	var err error
	if s.PlannedRetirementAge < 0 || s.PlannedRetirementAge > 120 {
		err = multierr.Append(err, fmt.Errorf("planned_retirement_age must be in [0, 120], got %d", s.PlannedRetirementAge))
	}
	if !finite(s.SavingsThreshold) || s.SavingsThreshold < 0 {
		err = multierr.Append(err, fmt.Errorf("savings_threshold must be a non-negative number, got %v", s.SavingsThreshold))
	}
	if !finite(s.LICOTargetFraction) || s.LICOTargetFraction < 0 {
		err = multierr.Append(err, fmt.Errorf("lico_target_fraction must be a non-negative number, got %v", s.LICOTargetFraction))
	}
	fractions := []struct {
		name  string
		value float64
	}{
		{"savings_rate", s.SavingsRate},
		{"savings_rrsp_fraction", s.SavingsRRSPFraction},
		{"savings_tfsa_fraction", s.SavingsTFSAFraction},
		{"working_period_drawdown_tfsa_fraction", s.WorkingPeriodDrawdownTFSAFraction},
		{"working_period_drawdown_nonreg_fraction", s.WorkingPeriodDrawdownNonRegFraction},
		{"oas_bridging_fraction", s.OASBridgingFraction},
		{"drawdown_ced_fraction", s.DrawdownCEDFraction},
		{"initial_cd_fraction", s.InitialCDFraction},
		{"drawdown_preferred_rrsp_fraction", s.DrawdownPreferredRRSPFraction},
		{"drawdown_preferred_tfsa_fraction", s.DrawdownPreferredTFSAFraction},
		{"reinvestment_preference_tfsa_fraction", s.ReinvestmentPreferenceTFSAFraction},
	}
	for _, f := range fractions {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 1 {
			err = multierr.Append(err, fmt.Errorf("%s must be in [0, 1], got %v", f.name, f.value))
		}
	}
	return err
}

// finite reports whether v can become a decimal amount.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultStrategy returns the baseline strategy.
func DefaultStrategy() Strategy {
	return Strategy{
		Name:                                "default",
		PlannedRetirementAge:                65,
		SavingsThreshold:                    0,
		SavingsRate:                         0.1,
		SavingsRRSPFraction:                 0.1,
		SavingsTFSAFraction:                 0.2,
		LICOTargetFraction:                  1.0,
		WorkingPeriodDrawdownTFSAFraction:   0.5,
		WorkingPeriodDrawdownNonRegFraction: 0.5,
		OASBridgingFraction:                 1.0,
		DrawdownCEDFraction:                 0.8,
		InitialCDFraction:                   0.04,
		DrawdownPreferredRRSPFraction:       0.35,
		DrawdownPreferredTFSAFraction:       0.5,
		ReinvestmentPreferenceTFSAFraction:  0.8,
	}
}

// ConservativeSaver saves a fifth of earnings, mostly sheltered, and
// works until 67.
func ConservativeSaver() Strategy {
	s := DefaultStrategy()
	s.Name = "conservative-saver"
	s.PlannedRetirementAge = 67
	s.SavingsRate = 0.2
	s.SavingsRRSPFraction = 0.4
	s.SavingsTFSAFraction = 0.8
	s.InitialCDFraction = 0.035
	return s
}

// EarlyRetiree stops working at 60 and draws the RRSP down first.
func EarlyRetiree() Strategy {
	s := DefaultStrategy()
	s.Name = "early-retiree"
	s.PlannedRetirementAge = 60
	s.SavingsRate = 0.15
	s.SavingsRRSPFraction = 0.6
	s.DrawdownPreferredRRSPFraction = 0.7
	return s
}

// NoSavings never saves. Useful as a baseline for benefit metrics.
func NoSavings() Strategy {
	s := DefaultStrategy()
	s.Name = "no-savings"
	s.SavingsRate = 0
	return s
}

// Presets returns every named preset keyed by name.
func Presets() map[string]Strategy {
	out := make(map[string]Strategy)
	for _, s := range []Strategy{DefaultStrategy(), ConservativeSaver(), EarlyRetiree(), NoSavings()} {
		out[s.Name] = s
	}
	return out
}

// PresetNames returns preset names in order.
func PresetNames() []string {
	presets := Presets()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
