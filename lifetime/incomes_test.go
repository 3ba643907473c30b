package lifetime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/world"
)

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func TestCPPContribution(t *testing.T) {
	rules := world.Default()
	year := rules.BaseYear

	pensionable, contribution := lifetime.CPPContribution(rules, 3000, year)
	assert.Equal(t, 0.0, pensionable)
	assert.Equal(t, 0.0, contribution)

	pensionable, contribution = lifetime.CPPContribution(rules, 40000, year)
	assert.Equal(t, 40000.0, pensionable)
	assert.InDelta(t, 1980, contribution, 1e-6)

	pensionable, contribution = lifetime.CPPContribution(rules, 60000, year)
	assert.Equal(t, 52500.0, pensionable)
	assert.InDelta(t, 2598.75, contribution, 1e-6)
}

func TestEIPremium(t *testing.T) {
	rules := world.Default()

	insurable, premium := lifetime.EIPremium(rules, 60000, rules.BaseYear)

	assert.Equal(t, 48600.0, insurable)
	assert.InDelta(t, 933.12, premium, 1e-6)
}

func TestEIBenefit(t *testing.T) {
	rules := world.Default()

	assert.InDelta(t, 22000, lifetime.EIBenefit(rules, 40000, false, true, false), 1e-9)
	assert.Equal(t, 0.0, lifetime.EIBenefit(rules, 40000, true, true, false), "employed")
	assert.Equal(t, 0.0, lifetime.EIBenefit(rules, 40000, false, false, false), "second year without work")
	assert.Equal(t, 0.0, lifetime.EIBenefit(rules, 40000, false, true, true), "retired")
}

func TestCPPBenefit(t *testing.T) {
	// GIVEN: a full YMPE in every year of the history
	// THEN: the pension is 25% of the MPEA at 65, adjusted by age

	rules := world.Default()
	year := rules.BaseYear
	history := ones(10)
	base := 49840 * 0.25

	tests := []struct {
		age  int
		want float64
	}{
		{65, base},
		{60, base * (1 - 5*0.072)},
		{70, base * (1 + 5*0.084)},
		{72, base * (1 + 5*0.084)},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, lifetime.CPPBenefit(rules, history, tc.age, year), 1e-6, "age %d", tc.age)
	}

	assert.Equal(t, 0.0, lifetime.CPPBenefit(rules, nil, 65, year))
}

func TestCPPBenefit_DropsWorstYears(t *testing.T) {
	// GIVEN: ten years, two of them empty
	// WHEN: 17% of the years are dropped (1.7 years)
	// THEN: the empty years are dropped first and the average is
	//       (8 + 0.3*0) / 8.3

	rules := world.Default()
	history := append(ones(8), 0, 0)

	got := lifetime.CPPBenefit(rules, history, 65, rules.BaseYear)

	assert.InDelta(t, 8/8.3*49840*0.25, got, 1e-6)
	assert.Equal(t, 0.0, history[8], "input must not be reordered")
	assert.Equal(t, 1.0, history[0])
}

func TestOASBenefit(t *testing.T) {
	rules := world.Default()
	year := rules.BaseYear

	assert.Equal(t, 0.0, lifetime.OASBenefit(rules, 0, 64, year))
	assert.InDelta(t, 6676.69, lifetime.OASBenefit(rules, 0, 65, year), 1e-9)
	assert.InDelta(t, 5176.69, lifetime.OASBenefit(rules, 81592, 65, year), 1e-6)
	assert.Equal(t, 0.0, lifetime.OASBenefit(rules, 1e6, 70, year))
}

func TestGISBenefit(t *testing.T) {
	rules := world.Default()
	year := rules.BaseYear

	assert.Equal(t, 0.0, lifetime.GISBenefit(rules, 0, 60, year))
	assert.InDelta(t, 9015.37, lifetime.GISBenefit(rules, 12, 65, year), 1e-9)
	assert.InDelta(t, 4015.37, lifetime.GISBenefit(rules, 10012, 65, year), 1e-6)
	assert.Equal(t, 0.0, lifetime.GISBenefit(rules, 50000, 65, year))
}

func TestSalesTaxedConsumption(t *testing.T) {
	rules := world.Default()
	year := rules.BaseYear

	assert.Equal(t, 5000.0, lifetime.SalesTaxedConsumption(rules, 5000, year))
	assert.InDelta(t, 9000, lifetime.SalesTaxedConsumption(rules, 9130, year), 1e-9)
}
