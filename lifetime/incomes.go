/*
incomes.go - Earnings, contributions and government benefits

PURPOSE:
  Pure functions of the world rules that turn one year's situation into
  an amount of money. Person calls them and records IncomeReceipts; tests
  call them directly.

FORMULAS:
  CPP contribution   pensionable = min(indexed YMPE, earnings if earnings >= YBE else 0)
                     contribution = pensionable * CPPEmployeeRate
  EI premium         insurable = min(indexed EI maximum, earnings)
                     premium = insurable * EIPremiumRate
  EI benefit         last year's insurable earnings * EIBenefitFraction
  CPP benefit        average of the best (1 - dropout) share of the YMPE
                     fraction history * indexed MPEA * 25%, adjusted by AAF
                     for retirement before or after 65
  OAS                indexed benefit, reduced by 15% of income above the
                     clawback exemption
  GIS                indexed singles rate, reduced by 50% of income above
                     the exemption; not taxable

SEE ALSO:
  - person.go: Calls these once per simulated year
  - world/rules.go: Parameters
*/
package lifetime

import (
	"math"
	"sort"

	"github.com/warp/lifetime-engine/world"
)

// CPPContribution returns pensionable earnings and the employee contribution.
func CPPContribution(rules world.Rules, earnings float64, year int) (pensionable, contribution float64) {
	effective := earnings
	if earnings < rules.YBE {
		effective = 0
	}
	pensionable = math.Min(rules.Indexed(rules.YMPE, year), effective)
	return pensionable, pensionable * rules.CPPEmployeeRate
}

// EIPremium returns insurable earnings and the employee premium.
func EIPremium(rules world.Rules, earnings float64, year int) (insurable, premium float64) {
	insurable = math.Min(rules.Indexed(rules.EIMaxInsurableEarnings, year), earnings)
	return insurable, insurable * rules.EIPremiumRate
}

// EIBenefit is paid in the first year without work after a year of work.
func EIBenefit(rules world.Rules, lastInsurable float64, employed, employedLastYear, retired bool) float64 {
	if employed || !employedLastYear || retired {
		return 0
	}
	return lastInsurable * rules.EIBenefitFraction
}

// CPPBenefit computes the yearly CPP retirement pension for someone
// starting it at age in year. fractions is the history of pensionable
// earnings as fractions of the YMPE; it is not modified.
func CPPBenefit(rules world.Rules, fractions []float64, age, year int) float64 {
	if len(fractions) == 0 {
		return 0
	}
	sorted := append([]float64(nil), fractions...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	history := float64(len(sorted)) * (1 - rules.CPPGeneralDropoutFactor)
	whole := int(math.Floor(history))
	sum := 0.0
	for i := 0; i < whole && i < len(sorted); i++ {
		sum += sorted[i]
	}
	if whole < len(sorted) {
		sum += sorted[whole] * (history - float64(whole))
	}
	if history <= 0 {
		return 0
	}
	average := sum / history

	base := average * rules.Indexed(rules.MPEA, year) * rules.CPPRetirementBenefitFraction
	switch {
	case age < rules.CPPExpectedRetirementAge:
		return base * (1 - float64(rules.CPPExpectedRetirementAge-age)*rules.AAFPre65)
	case age > rules.CPPExpectedRetirementAge:
		years := min(rules.AAFPost65YearsCap, age-rules.CPPExpectedRetirementAge)
		return base * (1 + float64(years)*rules.AAFPost65)
	}
	return base
}

// OASBenefit returns the Old Age Security pension net of clawback.
func OASBenefit(rules world.Rules, income float64, age, year int) float64 {
	if age < rules.OASStartAge {
		return 0
	}
	full := rules.Indexed(rules.OASBenefit, year)
	clawback := math.Max(income-rules.OASClawbackExemption, 0) * rules.OASClawbackRate
	return math.Max(full-clawback, 0)
}

// GISBenefit returns the Guaranteed Income Supplement for a single senior.
func GISBenefit(rules world.Rules, income float64, age, year int) float64 {
	if age < rules.OASStartAge {
		return 0
	}
	full := rules.Indexed(rules.GISSinglesRate, year)
	reduction := math.Max(income-rules.GISClawbackExemption, 0) * rules.GISReductionRate
	return math.Max(full-reduction, 0)
}

// SalesTaxedConsumption returns what cash buys once sales tax is paid on
// spending above the indexed exemption.
func SalesTaxedConsumption(rules world.Rules, cash float64, year int) float64 {
	exempt := rules.Indexed(rules.SalesTaxExemption, year)
	if cash <= exempt {
		return cash
	}
	return exempt + (cash-exempt)/(1+rules.HSTRate)
}
