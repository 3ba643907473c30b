/*
Package world holds the economic and policy parameters of the simulation.

PURPOSE:
  Rules bundles every rate, threshold and table the life-cycle simulator
  and fund variants read. A Rules value is built once (Default, optionally
  overridden from the config file) and passed explicitly to every
  consumer; nothing reads package-level state.

UNITS:
  Money is in base-year (2014) dollars unless the field says otherwise.
  Amounts marked "indexed" grow at Parge per year; use Rules.Indexed.

SEE ALSO:
  - schedule.go: Rate table lookups
  - tables.go: Published tables
  - config/config.go: [world] overrides
*/
package world

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// Rules is the complete, immutable parameter set for one simulation.
// Scalar fields can be overridden from TOML; tables cannot.
type Rules struct {
	// The year the simulated lifetime starts, and the age at that year.
	BaseYear int `toml:"base_year" json:"base_year"`
	StartAge int `toml:"start_age" json:"start_age"`

	// OAS
	OASBenefit           float64 `toml:"oas_benefit" json:"oas_benefit"`
	OASClawbackExemption float64 `toml:"oas_clawback_exemption" json:"oas_clawback_exemption"`
	OASClawbackRate      float64 `toml:"oas_clawback_rate" json:"oas_clawback_rate"`
	OASStartAge          int     `toml:"oas_start_age" json:"oas_start_age"`

	// GIS
	GISSinglesRate       float64 `toml:"gis_singles_rate" json:"gis_singles_rate"`
	GISClawbackExemption float64 `toml:"gis_clawback_exemption" json:"gis_clawback_exemption"`
	GISReductionRate     float64 `toml:"gis_reduction_rate" json:"gis_reduction_rate"`

	// CPP
	YMPE                         float64 `toml:"ympe" json:"ympe"` // indexed
	YBE                          float64 `toml:"ybe" json:"ybe"`
	MPEA                         float64 `toml:"mpea" json:"mpea"` // indexed
	CPPEmployeeRate              float64 `toml:"cpp_employee_rate" json:"cpp_employee_rate"`
	CPPExpectedRetirementAge     int     `toml:"cpp_expected_retirement_age" json:"cpp_expected_retirement_age"`
	AAFPre65                     float64 `toml:"aaf_pre65" json:"aaf_pre65"`
	AAFPost65                    float64 `toml:"aaf_post65" json:"aaf_post65"`
	AAFPost65YearsCap            int     `toml:"aaf_post65_years_cap" json:"aaf_post65_years_cap"`
	CPPGeneralDropoutFactor      float64 `toml:"cpp_general_dropout_factor" json:"cpp_general_dropout_factor"`
	CPPRetirementBenefitFraction float64 `toml:"cpp_retirement_benefit_fraction" json:"cpp_retirement_benefit_fraction"`
	EarningsYMPEFraction         float64 `toml:"earnings_ympe_fraction" json:"earnings_ympe_fraction"`

	// Contribution history before the simulation starts: zero years,
	// then positive years sharing PreSimSumYMPEFractions equally.
	PreSimZeroEarningYears     int     `toml:"pre_sim_zero_earning_years" json:"pre_sim_zero_earning_years"`
	PreSimPositiveEarningYears int     `toml:"pre_sim_positive_earning_years" json:"pre_sim_positive_earning_years"`
	PreSimSumYMPEFractions     float64 `toml:"pre_sim_sum_ympe_fractions" json:"pre_sim_sum_ympe_fractions"`

	// EI
	EIMaxInsurableEarnings float64 `toml:"ei_max_insurable_earnings" json:"ei_max_insurable_earnings"` // indexed
	EIBenefitFraction      float64 `toml:"ei_benefit_fraction" json:"ei_benefit_fraction"`
	EIPremiumRate          float64 `toml:"ei_premium_rate" json:"ei_premium_rate"`

	// RRSP / RRIF
	RRSPLimit           float64 `toml:"rrsp_limit" json:"rrsp_limit"` // indexed
	RRSPInitialLimit    float64 `toml:"rrsp_initial_limit" json:"rrsp_initial_limit"`
	RRSPAccrualFraction float64 `toml:"rrsp_accrual_fraction" json:"rrsp_accrual_fraction"`

	// TFSA
	TFSAAnnualContributionLimit  float64 `toml:"tfsa_annual_contribution_limit" json:"tfsa_annual_contribution_limit"`
	TFSAInitialContributionLimit float64 `toml:"tfsa_initial_contribution_limit" json:"tfsa_initial_contribution_limit"`

	// Income tax
	ProvincialTaxFraction float64 `toml:"provincial_tax_fraction" json:"provincial_tax_fraction"`
	BasicPersonalAmount   float64 `toml:"basic_personal_amount" json:"basic_personal_amount"`
	CGInclusionRate       float64 `toml:"cg_inclusion_rate" json:"cg_inclusion_rate"`

	// Non-registered gains realization
	UnrealizedGainsRealizationFraction float64 `toml:"unrealized_gains_realization_fraction" json:"unrealized_gains_realization_fraction"`
	ImmediatelyRealizedGainsFraction   float64 `toml:"immediately_realized_gains_fraction" json:"immediately_realized_gains_fraction"`

	// Economy
	MeanInvestmentReturn float64 `toml:"mean_investment_return" json:"mean_investment_return"`
	StdInvestmentReturn  float64 `toml:"std_investment_return" json:"std_investment_return"`
	DiscountRate         float64 `toml:"discount_rate" json:"discount_rate"`
	Parge                float64 `toml:"parge" json:"parge"`
	YMPEStdDev           float64 `toml:"ympe_stddev" json:"ympe_stddev"`

	// Miscellaneous
	LICOSingleCity      float64 `toml:"lico_single_city" json:"lico_single_city"` // indexed
	SalesTaxExemption   float64 `toml:"sales_tax_exemption" json:"sales_tax_exemption"`
	HSTRate             float64 `toml:"hst_rate" json:"hst_rate"`
	MortalityMultiplier float64 `toml:"mortality_multiplier" json:"mortality_multiplier"`
	AvgDisabilityAge    int     `toml:"avg_disability_age" json:"avg_disability_age"`
	MaxAge              int     `toml:"max_age" json:"max_age"`

	MinWithdrawalFraction Schedule `toml:"-" json:"-"`
	MaleMortality         Schedule `toml:"-" json:"-"`
	FemaleMortality       Schedule `toml:"-" json:"-"`
	CEDProportion         Schedule `toml:"-" json:"-"`
	FederalTax            Schedule `toml:"-" json:"-"`
}

// Default returns the 2014 Canadian parameter set.
func Default() Rules {
	return Rules{
		BaseYear: 2014,
		StartAge: 30,

		OASBenefit:           6676.69,
		OASClawbackExemption: 71592,
		OASClawbackRate:      0.15,
		OASStartAge:          65,

		GISSinglesRate:       9015.37,
		GISClawbackExemption: 12,
		GISReductionRate:     0.5,

		YMPE:                         52500,
		YBE:                          3500,
		MPEA:                         49840,
		CPPEmployeeRate:              0.0495,
		CPPExpectedRetirementAge:     65,
		AAFPre65:                     0.072,
		AAFPost65:                    0.084,
		AAFPost65YearsCap:            5,
		CPPGeneralDropoutFactor:      0.17,
		CPPRetirementBenefitFraction: 0.25,
		EarningsYMPEFraction:         1,

		PreSimZeroEarningYears:     4,
		PreSimPositiveEarningYears: 8,
		PreSimSumYMPEFractions:     6,

		EIMaxInsurableEarnings: 48600,
		EIBenefitFraction:      0.55,
		EIPremiumRate:          0.0192,

		RRSPLimit:           24270,
		RRSPInitialLimit:    50000,
		RRSPAccrualFraction: 0.18,

		TFSAAnnualContributionLimit:  10000,
		TFSAInitialContributionLimit: 36000,

		ProvincialTaxFraction: 0.47,
		BasicPersonalAmount:   11138,
		CGInclusionRate:       0.5,

		UnrealizedGainsRealizationFraction: 0.1,
		ImmediatelyRealizedGainsFraction:   0.2,

		MeanInvestmentReturn: 0.0532,
		StdInvestmentReturn:  0.1030,
		DiscountRate:         0.03,
		Parge:                0.01,
		YMPEStdDev:           0.18,

		LICOSingleCity:      24312,
		SalesTaxExemption:   8000,
		HSTRate:             0.13,
		MortalityMultiplier: 1,
		AvgDisabilityAge:    85,
		MaxAge:              120,

		MinWithdrawalFraction: NewStepSchedule(minWithdrawalFraction),
		MaleMortality:         NewStepSchedule(maleMortality),
		FemaleMortality:       NewStepSchedule(femaleMortality),
		CEDProportion:         NewStepSchedule(cedProportion),
		FederalTax:            NewLinearSchedule(federalTaxSchedule),
	}
}

// Validate checks the scalar parameters an override could break.
func (r Rules) Validate() error {
	var err error
	if r.StartAge < 0 || r.StartAge >= r.MaxAge {
		err = multierr.Append(err, fmt.Errorf("start_age must be in [0, max_age), got %d", r.StartAge))
	}
	if r.AvgDisabilityAge < r.StartAge || r.AvgDisabilityAge > r.MaxAge {
		err = multierr.Append(err, fmt.Errorf("avg_disability_age must be in [start_age, max_age], got %d", r.AvgDisabilityAge))
	}
	if r.OASStartAge < 0 || r.OASStartAge > r.MaxAge {
		err = multierr.Append(err, fmt.Errorf("oas_start_age must be in [0, max_age], got %d", r.OASStartAge))
	}
	if r.MortalityMultiplier < 0 {
		err = multierr.Append(err, fmt.Errorf("mortality_multiplier must not be negative, got %v", r.MortalityMultiplier))
	}
	if r.StdInvestmentReturn < 0 || r.YMPEStdDev < 0 {
		err = multierr.Append(err, fmt.Errorf("standard deviations must not be negative"))
	}
	if r.DiscountRate < 0 || r.DiscountRate >= 1 {
		err = multierr.Append(err, fmt.Errorf("discount_rate must be in [0, 1), got %v", r.DiscountRate))
	}
	if r.PreSimZeroEarningYears < 0 || r.PreSimPositiveEarningYears < 0 {
		err = multierr.Append(err, fmt.Errorf("pre-simulation year counts must not be negative"))
	}
	return err
}

// Indexed grows a base-year amount to year at the earnings growth rate.
func (r Rules) Indexed(base float64, year int) float64 {
	return base * math.Pow(1+r.Parge, float64(year-r.BaseYear))
}

// PreSimYMPEFractions returns the earnings history, as fractions of the
// YMPE, that a person brings into the simulation.
func (r Rules) PreSimYMPEFractions() []float64 {
	out := make([]float64, 0, r.PreSimZeroEarningYears+r.PreSimPositiveEarningYears)
	for i := 0; i < r.PreSimZeroEarningYears; i++ {
		out = append(out, 0)
	}
	for i := 0; i < r.PreSimPositiveEarningYears; i++ {
		out = append(out, r.PreSimSumYMPEFractions/float64(r.PreSimPositiveEarningYears))
	}
	return out
}

// AgeIn returns the simulated age in year.
func (r Rules) AgeIn(year int) int {
	return r.StartAge + year - r.BaseYear
}

// Discount returns value in base-year terms using the time-preference rate.
func (r Rules) Discount(value float64, year int) float64 {
	return value * math.Pow(1-r.DiscountRate, float64(year-r.BaseYear))
}

// IncomeTax returns federal plus provincial tax on taxable income in year.
// The schedule is in base-year dollars, so income is deflated first.
func (r Rules) IncomeTax(taxable float64, year int) float64 {
	if taxable <= 0 {
		return 0
	}
	index := r.Indexed(1, year)
	federal := r.FederalTax.Lookup(taxable/index) * index
	return federal * (1 + r.ProvincialTaxFraction)
}
