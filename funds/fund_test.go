package funds_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lifetime-engine/funds"
	"github.com/warp/lifetime-engine/world"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func assertDec(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), append([]interface{}{"expected %v, got %v", want, got.String()}, msgAndArgs...)...)
}

func newRecord() *funds.YearRecord {
	return funds.NewYearRecord(world.Default())
}

// rulesWithoutRealization keeps all non-registered growth unrealized.
func rulesWithoutRealization() world.Rules {
	r := world.Default()
	r.UnrealizedGainsRealizationFraction = 0
	r.ImmediatelyRealizedGainsFraction = 0
	return r
}

func withBalance(f *funds.Fund, balance float64) *funds.Fund {
	f.Balance = d(balance)
	return f
}

// =============================================================================
// GENERIC FUND
// =============================================================================

func TestFund_DepositUnlimitedRoom(t *testing.T) {
	f := funds.NewGeneric()
	rec := newRecord()

	deposited := f.Deposit(d(15), rec)

	assertDec(t, 15, deposited)
	assertDec(t, 15, f.Balance)
	require.Len(t, rec.Deposits, 1)
	assertDec(t, 15, rec.Deposits[0].Amount)
	assert.Equal(t, funds.TypeGeneric, rec.Deposits[0].FundType)
}

func TestFund_DepositSufficientRoom(t *testing.T) {
	f := funds.NewGeneric()
	f.SetRoom(d(20))

	deposited := f.Deposit(d(15), newRecord())

	assertDec(t, 15, deposited)
	assertDec(t, 5, f.Room)
}

func TestFund_DepositInsufficientRoom(t *testing.T) {
	// GIVEN: 10 of room
	// WHEN: depositing 15
	// THEN: 10 accepted, room exhausted, receipt for 10

	f := funds.NewGeneric()
	f.SetRoom(d(10))
	rec := newRecord()

	deposited := f.Deposit(d(15), rec)

	assertDec(t, 10, deposited)
	assertDec(t, 10, f.Balance)
	assertDec(t, 0, f.Room)
	assertDec(t, 10, rec.Deposits[0].Amount)
}

func TestFund_Withdraw(t *testing.T) {
	f := withBalance(funds.NewGeneric(), 20)
	rec := newRecord()

	withdrawn, gains := f.Withdraw(d(15), rec)
	assertDec(t, 15, withdrawn)
	assertDec(t, 0, gains)
	assertDec(t, 5, f.Balance)

	withdrawn, _ = f.Withdraw(d(15), rec)
	assertDec(t, 5, withdrawn)
	assertDec(t, 0, f.Balance)
	require.Len(t, rec.Withdrawals, 2)
}

func TestFund_WithdrawRealizesGains(t *testing.T) {
	f := withBalance(funds.NewGeneric(), 40)
	f.UnrealizedGains = d(5)

	withdrawn, gains := f.Withdraw(d(10), newRecord())

	assertDec(t, 10, withdrawn)
	assertDec(t, 1.25, gains)
	assertDec(t, 3.75, f.UnrealizedGains)
}

func TestFund_WithdrawFromEmptyFund(t *testing.T) {
	f := funds.NewGeneric()
	f.UnrealizedGains = d(3)

	withdrawn, gains := f.Withdraw(d(10), newRecord())

	assertDec(t, 0, withdrawn)
	assertDec(t, 0, gains)
}

func TestFund_WithdrawRoomReplenishment(t *testing.T) {
	f := withBalance(funds.NewGeneric(), 20)
	f.SetRoom(d(5))
	f.RoomReplenishes = true

	f.Withdraw(d(10), newRecord())

	assertDec(t, 15, f.Room)
}

func TestFund_ForcedWithdrawal(t *testing.T) {
	tests := []struct {
		name      string
		balance   float64
		forced    float64
		requested float64
		withdrawn float64
	}{
		{"floor below request", 20, 5, 10, 10},
		{"floor above request", 20, 15, 10, 15},
		{"floor above balance", 10, 15, 5, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := withBalance(funds.NewGeneric(), tc.balance)
			f.ForcedWithdrawal = d(tc.forced)

			withdrawn, _ := f.Withdraw(d(tc.requested), newRecord())

			assertDec(t, tc.withdrawn, withdrawn)
			assertDec(t, tc.balance-tc.withdrawn, f.Balance)
			assertDec(t, 0, f.ForcedWithdrawal)
		})
	}
}

func TestFund_Growth(t *testing.T) {
	f := withBalance(funds.NewGeneric(), 20)

	assertDec(t, 0, f.Growth(0))
	assertDec(t, 2, f.Growth(0.1))
	assertDec(t, -2, f.Growth(-0.1))
	assertDec(t, -20, f.Growth(-1.2))
}

// =============================================================================
// TFSA
// =============================================================================

func TestTFSA_RoomAccrues(t *testing.T) {
	rules := world.Default()
	f := funds.NewTFSA(rules)
	assertDec(t, 36000, f.Room)

	f.Update(newRecord(), rules)

	assertDec(t, 46000, f.Room)
}

func TestTFSA_WithdrawReplenishesRoom(t *testing.T) {
	f := withBalance(funds.NewTFSA(world.Default()), 20)
	f.SetRoom(d(0))
	rec := newRecord()

	withdrawn, _ := f.Withdraw(d(15), rec)

	assertDec(t, 15, withdrawn)
	assertDec(t, 15, f.Room)
	assert.Equal(t, funds.TypeTFSA, rec.Withdrawals[0].FundType)
}

func TestTFSA_Update(t *testing.T) {
	rules := world.Default()
	f := withBalance(funds.NewTFSA(rules), 20)
	f.SetRoom(d(0))
	rec := newRecord()
	rec.GrowthRate = 0.2

	f.Update(rec, rules)

	assertDec(t, 24, f.Balance)
	assertDec(t, 10000, f.Room)
	assertDec(t, 0, f.UnrealizedGains)
}

// =============================================================================
// RRSP
// =============================================================================

func TestRRSP_RoomFromEarnings(t *testing.T) {
	tests := []struct {
		name     string
		earnings float64
		room     float64
	}{
		{"accrual fraction", 10000, 50000 + 1800},
		{"annual limit", 140000, 50000 + 24270},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rules := world.Default()
			f := funds.NewRRSP(rules)
			rec := newRecord()
			rec.AddIncome(d(tc.earnings), funds.IncomeEarnings, true)

			f.Update(rec, rules)

			assertDec(t, tc.room, f.Room)
		})
	}
}

func TestRRSP_WithdrawDoesNotReplenish(t *testing.T) {
	f := withBalance(funds.NewRRSP(world.Default()), 20)
	f.SetRoom(d(0))

	f.Withdraw(d(15), newRecord())

	assertDec(t, 5, f.Balance)
	assertDec(t, 0, f.Room)
}

func TestRRSP_MandatoryMinimum(t *testing.T) {
	// GIVEN: 10000 in an RRSP
	// WHEN: the year ends at age 69, then at age 70
	// THEN: no minimum at 69, 5.28% of balance at 70 (for age 71)

	rules := world.Default()

	early := withBalance(funds.NewRRSP(rules), 10000)
	rec := newRecord()
	rec.Age = 69
	early.Update(rec, rules)
	assertDec(t, 0, early.ForcedWithdrawal)

	active := withBalance(funds.NewRRSP(rules), 10000)
	rec = newRecord()
	rec.Age = 70
	active.Update(rec, rules)
	assertDec(t, 528, active.ForcedWithdrawal)
}

func TestRRSP_Update(t *testing.T) {
	rules := world.Default()
	f := withBalance(funds.NewRRSP(rules), 20)
	f.SetRoom(d(0))
	rec := newRecord()
	rec.GrowthRate = 0.2
	rec.AddIncome(d(10000), funds.IncomeEarnings, true)

	f.Update(rec, rules)

	assertDec(t, 24, f.Balance)
	assertDec(t, 1800, f.Room)
	assertDec(t, 0, f.UnrealizedGains)
}

// =============================================================================
// NON REGISTERED
// =============================================================================

func TestNonRegistered_DepositIsUnlimited(t *testing.T) {
	f := funds.NewNonRegistered()

	deposited := f.Deposit(d(15), newRecord())

	assertDec(t, 15, deposited)
	_, bounded := f.DepositCapacity()
	assert.False(t, bounded)
	assertDec(t, 0, f.UnrealizedGains)
}

func TestNonRegistered_Withdraw(t *testing.T) {
	f := withBalance(funds.NewNonRegistered(), 20)
	f.UnrealizedGains = d(10)
	rec := newRecord()

	withdrawn, gains := f.Withdraw(d(15), rec)

	assertDec(t, 15, withdrawn)
	assertDec(t, 7.5, gains)
	assertDec(t, 2.5, f.UnrealizedGains)
	assertDec(t, 7.5, rec.Withdrawals[0].Gains)
}

func TestNonRegistered_UpdateGains(t *testing.T) {
	tests := []struct {
		name       string
		rate       float64
		balance    float64
		unrealized float64
	}{
		{"growth", 0.2, 24, 14},
		{"loss", -0.2, 16, 6},
		{"loss beyond gains", -0.6, 8, -2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rules := rulesWithoutRealization()
			f := withBalance(funds.NewNonRegistered(), 20)
			f.UnrealizedGains = d(10)
			rec := newRecord()
			rec.GrowthRate = tc.rate

			f.Update(rec, rules)

			assertDec(t, tc.balance, f.Balance)
			assertDec(t, tc.unrealized, f.UnrealizedGains)
			require.Len(t, rec.TaxReceipts, 1)
			assertDec(t, 0, rec.TaxReceipts[0].GrossGain)
		})
	}
}

func TestNonRegistered_UpdateRealizesGains(t *testing.T) {
	// GIVEN: 10% of old gains realized yearly, 20% of new growth immediately
	// WHEN: 100 with 50 unrealized grows by 10%
	// THEN: 5 + 2 realized, unrealized = 50 - 5 + 10 - 2

	rules := world.Default()
	rules.UnrealizedGainsRealizationFraction = 0.1
	rules.ImmediatelyRealizedGainsFraction = 0.2
	f := withBalance(funds.NewNonRegistered(), 100)
	f.UnrealizedGains = d(50)
	rec := newRecord()
	rec.GrowthRate = 0.1

	f.Update(rec, rules)

	assertDec(t, 110, f.Balance)
	assertDec(t, 53, f.UnrealizedGains)
	assertDec(t, 7, rec.TaxReceipts[0].GrossGain)
	assertDec(t, 7, rec.RealizedGains())
}

// =============================================================================
// RRSP BRIDGING
// =============================================================================

func TestRRSPBridging_RefusesDeposits(t *testing.T) {
	f := withBalance(funds.NewRRSPBridging(), 30)
	rec := newRecord()

	deposited := f.Deposit(d(15), rec)

	assertDec(t, 0, deposited)
	assertDec(t, 30, f.Balance)
	assertDec(t, 0, rec.Deposits[0].Amount)
	assert.Equal(t, funds.TypeRRSPBridging, rec.Deposits[0].FundType)
}

func TestRRSPBridging_Withdraw(t *testing.T) {
	f := withBalance(funds.NewRRSPBridging(), 20)

	withdrawn, gains := f.Withdraw(d(15), newRecord())

	assertDec(t, 15, withdrawn)
	assertDec(t, 0, gains)
	assertDec(t, 5, f.Balance)
	assertDec(t, 0, f.Room)
}

// =============================================================================
// YEAR RECORD
// =============================================================================

func TestYearRecord_TaxableIncome(t *testing.T) {
	rec := newRecord()
	rec.AddIncome(d(40000), funds.IncomeEarnings, true)
	rec.AddIncome(d(1000), funds.IncomeGIS, false)
	rec.Withdrawals = append(rec.Withdrawals,
		funds.WithdrawReceipt{Amount: d(5000), Gains: d(0), FundType: funds.TypeRRSP},
		funds.WithdrawReceipt{Amount: d(3000), Gains: d(1000), FundType: funds.TypeNonRegistered},
		funds.WithdrawReceipt{Amount: d(2000), Gains: d(0), FundType: funds.TypeTFSA},
	)

	// earnings + RRSP + half of gains
	assertDec(t, 45500, rec.TaxableIncome(0.5))
	assertDec(t, 40000, rec.Earnings())
	assertDec(t, 10000, rec.TotalWithdrawals())
}
