/*
person.go - One simulated life

PURPOSE:
  A Person owns private funds and a private Bundle and walks through the
  years of one life until a mortality draw (or MaxAge) ends it. The
  population driver creates one Person per life and merges its bundle.

ONE YEAR:
  1. Mortality draw; death ends the life and records the per-life metrics
  2. Retirement at the planned age: CPP pension fixed, part of the RRSP
     split into a bridging fund that pays until OAS starts
  3. Incomes: earnings drawn around the indexed YMPE while working, EI
     after a year without earnings, CPP, OAS and GIS
  4. CPP and EI contributions
  5. Working: save via ChainedDeposit, top up to the LICO target via a
     ProportionalTransaction from TFSA and non-registered funds
     Retired: draw down via ChainedTransaction; RRIF minimums above the
     target are reinvested by the reinvestment preference
  6. Fund Update (growth, room, gains realization), then income tax
  7. Sales tax, then the bundle records consumption and yearly indicators

RANDOMNESS:
  All draws come from the *rand.Rand passed to NewPerson. Two persons
  built with equal seeds live identical lives.

SEE ALSO:
  - incomes.go: Benefit and contribution formulas
  - bundle.go: Metrics written here
  - funds/allocator.go: Transactions
*/
package lifetime

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/warp/lifetime-engine/funds"
	"github.com/warp/lifetime-engine/generic"
	"github.com/warp/lifetime-engine/world"
)

// Gender selects the mortality table.
type Gender string

const (
	Male   Gender = "m"
	Female Gender = "f"
)

// ParseGender accepts "m" and "f".
func ParseGender(s string) (Gender, error) {
	switch Gender(s) {
	case Male, Female:
		return Gender(s), nil
	}
	return "", fmt.Errorf("unknown gender %q (want m or f)", s)
}

// lateWorkingYears is the window before planned retirement whose earnings
// feed EarningsLateWorkingSummary.
const lateWorkingYears = 5

// Person is one simulated life.
type Person struct {
	rules    world.Rules
	strategy Strategy
	gender   Gender
	rng      *rand.Rand
	bundle   *Bundle

	age     int
	year    int
	retired bool
	dead    bool

	tfsa, rrsp, nonreg, bridging *funds.Fund

	// carried between years
	employedLastYear bool
	lastInsurable    float64
	lastIncome       float64
	ympeFractions    []float64
	cppBenefit       float64

	// fixed at retirement
	retirementYear   int
	retirementAssets float64
	drawdownBase     float64

	// per-life tallies
	savings               float64
	withdrawals           float64
	retirementWithdrawals float64
	retirementYears       int
	gisYears              int
	ruined                bool
	everBelowLICO         bool
	working               *generic.SummaryStats
	retiredConsumption    *generic.SummaryStats
}

// NewPerson creates a person at the start age with empty funds.
func NewPerson(strategy Strategy, gender Gender, rules world.Rules, mode Mode, rng *rand.Rand) *Person {
	ympe := rules.EarningsYMPEFraction * rules.YMPE
	return &Person{
		rules:              rules,
		strategy:           strategy,
		gender:             gender,
		rng:                rng,
		bundle:             NewBundle(mode, rules),
		age:                rules.StartAge,
		year:               rules.BaseYear,
		tfsa:               funds.NewTFSA(rules),
		rrsp:               funds.NewRRSP(rules),
		nonreg:             funds.NewNonRegistered(),
		bridging:           funds.NewRRSPBridging(),
		employedLastYear:   true,
		lastInsurable:      math.Min(ympe, rules.EIMaxInsurableEarnings),
		ympeFractions:      rules.PreSimYMPEFractions(),
		working:            generic.NewSummaryStats(),
		retiredConsumption: generic.NewSummaryStats(),
	}
}

func (p *Person) Age() int            { return p.age }
func (p *Person) Year() int           { return p.year }
func (p *Person) Retired() bool       { return p.retired }
func (p *Person) Dead() bool          { return p.dead }
func (p *Person) Bundle() *Bundle     { return p.bundle }
func (p *Person) CPPBenefit() float64 { return p.cppBenefit }

// Funds returns the person's funds in drawdown order.
func (p *Person) Funds() []*funds.Fund {
	return []*funds.Fund{p.rrsp, p.tfsa, p.nonreg, p.bridging}
}

// LiveLife simulates years until death and returns the life's bundle.
func (p *Person) LiveLife() *Bundle {
	for p.DoYear() {
	}
	return p.bundle
}

// DoYear simulates one year. It returns false once the person is dead.
func (p *Person) DoYear() bool {
	if p.dead {
		return false
	}
	if p.reap() {
		p.dead = true
		p.endOfLife()
		return false
	}
	if !p.retired && p.age >= p.strategy.PlannedRetirementAge {
		p.retire()
	}

	rec := &funds.YearRecord{
		Year:       p.year,
		Age:        p.age,
		IsRetired:  p.retired,
		GrowthRate: p.rules.MeanInvestmentReturn + p.rules.StdInvestmentReturn*p.rng.NormFloat64(),
	}
	p.meddleWithCash(rec)

	p.age++
	p.year++
	return true
}

func (p *Person) reap() bool {
	if p.age >= p.rules.MaxAge {
		return true
	}
	table := p.rules.FemaleMortality
	if p.gender == Male {
		table = p.rules.MaleMortality
	}
	q := table.At(p.age) * p.rules.MortalityMultiplier
	return p.rng.Float64() < q
}

func (p *Person) retire() {
	r := p.rules
	p.retired = true
	p.retirementYear = p.year
	p.cppBenefit = CPPBenefit(r, p.ympeFractions, p.age, p.year)

	if p.age < r.OASStartAge && p.strategy.OASBridgingFraction > 0 {
		years := float64(r.OASStartAge - p.age)
		want := p.strategy.OASBridgingFraction * r.Indexed(r.OASBenefit, p.year) * years
		funds.SplitFund(p.rrsp, p.bridging, dec(want))
	}

	p.retirementAssets = funds.TotalBalance(p.Funds()).InexactFloat64()
	p.drawdownBase = p.strategy.InitialCDFraction * p.retirementAssets
}

// =============================================================================
// CASH FLOW
// =============================================================================

func (p *Person) meddleWithCash(rec *funds.YearRecord) {
	r := p.rules
	s := p.strategy

	earnings := 0.0
	if !p.retired {
		ympe := r.Indexed(r.YMPE, p.year)
		earnings = math.Max(ympe*r.EarningsYMPEFraction+r.YMPEStdDev*ympe*p.rng.NormFloat64(), 0)
	}
	rec.IsEmployed = earnings > 0
	period := PeriodRetired
	switch {
	case p.retired:
	case rec.IsEmployed:
		period = PeriodEmployed
	default:
		period = PeriodUnemployed
	}

	cash := 0.0
	addIncome := func(amount float64, kind funds.IncomeType, taxable bool) {
		if amount <= 0 {
			return
		}
		rec.AddIncome(dec(amount), kind, taxable)
		cash += amount
	}
	addIncome(earnings, funds.IncomeEarnings, true)
	addIncome(EIBenefit(r, p.lastInsurable, rec.IsEmployed, p.employedLastYear, p.retired), funds.IncomeEI, true)
	if p.retired {
		addIncome(p.cppBenefit, funds.IncomeCPP, true)
	}
	oas := OASBenefit(r, p.lastIncome, p.age, p.year)
	addIncome(oas, funds.IncomeOAS, true)
	gis := GISBenefit(r, p.lastIncome, p.age, p.year)
	addIncome(gis, funds.IncomeGIS, false)

	pensionable, cppContribution := CPPContribution(r, earnings, p.year)
	insurable, eiPremium := EIPremium(r, earnings, p.year)
	rec.PensionableEarnings = dec(pensionable)
	rec.InsurableEarnings = dec(insurable)
	cash -= cppContribution + eiPremium

	if !p.retired {
		if save := math.Max(earnings-s.SavingsThreshold, 0) * s.SavingsRate; save > 0 {
			deposited := funds.ChainedDeposit(dec(save),
				[]*funds.Fund{p.rrsp, p.tfsa, p.nonreg},
				[]float64{s.SavingsRRSPFraction, s.SavingsTFSAFraction, 1}, rec).InexactFloat64()
			cash -= deposited
			p.savings += deposited
		}
		target := s.LICOTargetFraction * r.Indexed(r.LICOSingleCity, p.year)
		if gap := target - cash; gap > 0 {
			withdrawn, _ := funds.ProportionalTransaction(dec(gap),
				[]*funds.Fund{p.tfsa, p.nonreg},
				[]float64{s.WorkingPeriodDrawdownTFSAFraction, s.WorkingPeriodDrawdownNonRegFraction},
				nil, rec)
			cash += withdrawn.InexactFloat64()
			p.withdrawals += withdrawn.InexactFloat64()
		}
	} else {
		cash += p.drawdown(rec)
	}

	for _, f := range p.Funds() {
		f.Update(rec, r)
	}

	taxable := rec.TaxableIncome(r.CGInclusionRate).InexactFloat64()
	cash -= r.IncomeTax(taxable-r.Indexed(r.BasicPersonalAmount, p.year), p.year)

	consumption := SalesTaxedConsumption(r, math.Max(cash, 0), p.year)
	p.record(consumption, earnings, gis, period)

	p.employedLastYear = rec.IsEmployed
	p.lastInsurable = insurable
	p.lastIncome = taxable - oas
	if !p.retired {
		p.ympeFractions = append(p.ympeFractions, pensionable/r.Indexed(r.YMPE, p.year))
	}
}

// drawdown withdraws the retiree's yearly target and returns the cash.
func (p *Person) drawdown(rec *funds.YearRecord) float64 {
	r := p.rules
	s := p.strategy
	cash := 0.0

	if p.bridging.Balance.IsPositive() {
		years := max(r.OASStartAge-p.age, 1)
		w, _ := p.bridging.Withdraw(p.bridging.Balance.Div(decimal.NewFromInt(int64(years))), rec)
		cash += w.InexactFloat64()
	}

	balance := funds.TotalBalance([]*funds.Fund{p.rrsp, p.tfsa, p.nonreg}).InexactFloat64()
	ced := r.CEDProportion.At(p.age) * balance
	cd := p.drawdownBase * math.Pow(1+r.Parge, float64(p.year-p.retirementYear))
	target := s.DrawdownCEDFraction*ced + (1-s.DrawdownCEDFraction)*cd

	w, _ := funds.ChainedTransaction(dec(target),
		[]*funds.Fund{p.rrsp, p.tfsa, p.nonreg},
		[]float64{s.DrawdownPreferredRRSPFraction, s.DrawdownPreferredTFSAFraction, 1},
		[]float64{0, s.ReinvestmentPreferenceTFSAFraction, 1}, rec)
	cash += w.InexactFloat64()

	p.withdrawals += cash
	p.retirementWithdrawals += cash
	return cash
}

// =============================================================================
// METRICS
// =============================================================================

func (p *Person) record(consumption, earnings, gis float64, period Period) {
	r := p.rules
	b := p.bundle
	b.UpdateConsumption(consumption, p.year, p.retired, period)

	lico := r.Indexed(r.LICOSingleCity, p.year)
	gap := math.Max(lico-consumption, 0)

	if !p.retired {
		p.working.Update(consumption)
		b.Observe(LICOGapWorking, gap)
		if p.age >= p.strategy.PlannedRetirementAge-lateWorkingYears {
			b.Observe(EarningsLateWorkingSummary, earnings)
		}
		if b.Mode() == ModeFull {
			b.ByAge(EarningsByAge).Update(p.age, earnings)
		}
		return
	}

	p.retiredConsumption.Update(consumption)
	p.retirementYears++

	ruined := funds.TotalBalance(p.Funds()).IsZero()
	p.ruined = p.ruined || ruined
	b.ObserveBool(FractionRetirementYearsRuined, ruined)

	ympe := r.Indexed(r.YMPE, p.year)
	b.ObserveBool(FractionRetirementYearsBelowYMPE, consumption < ympe)
	b.ObserveBool(FractionRetirementYearsBelowTwiceYMPE, consumption < 2*ympe)

	if gis > 0 {
		p.gisYears++
	}
	b.ObserveBool(FractionRetirementYearsReceivingGIS, gis > 0)
	b.Observe(BenefitsGIS, gis)

	below := consumption < lico
	p.everBelowLICO = p.everBelowLICO || below
	b.ObserveBool(FractionRetirementYearsBelowLICO, below)
	b.Observe(LICOGapRetired, gap)
}

func (p *Person) endOfLife() {
	b := p.bundle
	belowAssets := p.retirementWithdrawals < p.retirementAssets

	b.ObserveBool(FractionPersonsRuined, p.ruined)
	b.ObserveBool(FractionPersonsWithWithdrawalsBelowRetirementAssets, p.retired && belowAssets)
	b.Observe(LifetimeWithdrawalsLessSavings, p.withdrawals-p.savings)
	b.Observe(DistributableEstate, p.estate())

	if p.retired {
		b.ObserveBool(FractionRetireesReceivingGIS, p.gisYears > 0)
		b.ObserveBool(FractionRetireesEverBelowLICO, p.everBelowLICO)
		b.ObserveBool(FractionRetireesWithWithdrawalsBelowRetirementAssets, belowAssets)
		if p.working.N() > 0 && p.retiredConsumption.N() > 0 {
			b.Observe(RetirementConsumptionLessWorkingConsumption, p.retiredConsumption.Mean()-p.working.Mean())
		}
	}

	if b.Mode() == ModeFull {
		b.Observe(AgeAtDeath, float64(p.age))
		if p.retired {
			b.Observe(YearsInRetirement, float64(p.retirementYears))
		}
	}
}

// estate is what heirs receive: all balances less the tax on registered
// funds and on the included share of unrealized gains.
func (p *Person) estate() float64 {
	r := p.rules
	total := funds.TotalBalance(p.Funds()).InexactFloat64()
	registered := p.rrsp.Balance.Add(p.bridging.Balance).InexactFloat64()
	gains := math.Max(p.nonreg.UnrealizedGains.InexactFloat64(), 0)
	return total - r.IncomeTax(registered+gains*r.CGInclusionRate, p.year)
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
