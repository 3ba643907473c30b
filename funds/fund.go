/*
Package funds models savings accounts and moves money between them.

PURPOSE:
  A Fund is one account: a balance, the gains inside it that have not yet
  been taxed, and how much more it may accept (room). Every simulated
  person owns a few funds and the allocator in allocator.go splits each
  deposit or withdrawal across them.

VARIANTS:
  The variant set is closed. Behaviour that differs by variant dispatches
  on Fund.Type:

    Type             Room                      Yearly Update
    ---------------  ------------------------  ------------------------------------
    Generic Fund     unlimited                 none
    TFSA             36000, replenished on     growth, room += annual limit
                     withdrawal
    RRSP             50000                     growth, room from earnings,
                                               mandatory minimum withdrawal
    Non Registered   unlimited                 growth, partial gain realization
    RRSP Bridging    accepts no deposits       none

MONEY:
  Balances, gains and room are decimal.Decimal so allocator scenarios add
  up exactly. Rates and proportions arrive as float64 and are converted
  at the boundary.

INVARIANTS:
  - Balance never goes negative: withdrawals clamp to balance and growth
    is bounded below by -Balance
  - UnrealizedGains may go negative after losses
  - Every Deposit and Withdraw appends exactly one receipt

SEE ALSO:
  - allocator.go: Chained and proportional transactions
  - receipts.go: YearRecord
*/
package funds

import (
	"github.com/shopspring/decimal"

	"github.com/warp/lifetime-engine/world"
)

// Type tags a fund variant. The values appear on receipts.
type Type string

const (
	TypeGeneric       Type = "Generic Fund"
	TypeTFSA          Type = "TFSA"
	TypeRRSP          Type = "RRSP"
	TypeNonRegistered Type = "Non Registered"
	TypeRRSPBridging  Type = "RRSP Bridging"
)

// Fund is one account of one simulated person.
type Fund struct {
	Type            Type
	Balance         decimal.Decimal
	UnrealizedGains decimal.Decimal

	// Room is the remaining deposit capacity. Ignored when Unlimited.
	Room      decimal.Decimal
	Unlimited bool

	// RoomReplenishes returns withdrawn amounts to Room.
	RoomReplenishes bool

	// ForcedWithdrawal is the floor applied to the next Withdraw.
	ForcedWithdrawal decimal.Decimal
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func NewGeneric() *Fund {
	return &Fund{Type: TypeGeneric, Unlimited: true}
}

func NewTFSA(rules world.Rules) *Fund {
	return &Fund{
		Type:            TypeTFSA,
		Room:            decimal.NewFromFloat(rules.TFSAInitialContributionLimit),
		RoomReplenishes: true,
	}
}

func NewRRSP(rules world.Rules) *Fund {
	return &Fund{
		Type: TypeRRSP,
		Room: decimal.NewFromFloat(rules.RRSPInitialLimit),
	}
}

func NewNonRegistered() *Fund {
	return &Fund{Type: TypeNonRegistered, Unlimited: true}
}

// NewRRSPBridging creates the bridging account funded at retirement by
// SplitFund. It never accepts deposits.
func NewRRSPBridging() *Fund {
	return &Fund{Type: TypeRRSPBridging}
}

// SetRoom caps the fund's deposit capacity at room.
func (f *Fund) SetRoom(room decimal.Decimal) {
	f.Room = room
	f.Unlimited = false
}

// DepositCapacity returns how much the fund can accept now.
// bounded is false when the fund accepts any amount.
func (f *Fund) DepositCapacity() (capacity decimal.Decimal, bounded bool) {
	switch {
	case f.Type == TypeRRSPBridging:
		return decimal.Zero, true
	case f.Unlimited:
		return decimal.Zero, false
	}
	return decimal.Max(f.Room, decimal.Zero), true
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Deposit adds up to amount, limited by room, and returns what was accepted.
func (f *Fund) Deposit(amount decimal.Decimal, rec *YearRecord) decimal.Decimal {
	deposited := amount
	if capacity, bounded := f.DepositCapacity(); bounded && capacity.LessThan(amount) {
		deposited = capacity
	}
	if deposited.IsNegative() {
		deposited = decimal.Zero
	}

	f.Balance = f.Balance.Add(deposited)
	if !f.Unlimited && f.Type != TypeRRSPBridging {
		f.Room = f.Room.Sub(deposited)
	}
	rec.Deposits = append(rec.Deposits, DepositReceipt{Amount: deposited, FundType: f.Type})
	return deposited
}

// Withdraw pays out amount, raised to the forced floor and limited by
// balance. The withdrawn share of unrealized gains becomes realized.
func (f *Fund) Withdraw(amount decimal.Decimal, rec *YearRecord) (withdrawn, realized decimal.Decimal) {
	proportion := decimal.Zero
	if !f.Balance.IsZero() {
		proportion = f.UnrealizedGains.Div(f.Balance)
	}

	if f.ForcedWithdrawal.GreaterThan(amount) {
		amount = f.ForcedWithdrawal
	}
	withdrawn = decimal.Max(decimal.Min(amount, f.Balance), decimal.Zero)
	f.Balance = f.Balance.Sub(withdrawn)

	if !f.Unlimited && f.RoomReplenishes {
		f.Room = f.Room.Add(withdrawn)
	}
	f.ForcedWithdrawal = decimal.Zero

	realized = withdrawn.Mul(proportion)
	f.UnrealizedGains = f.UnrealizedGains.Sub(realized)

	rec.Withdrawals = append(rec.Withdrawals, WithdrawReceipt{Amount: withdrawn, Gains: realized, FundType: f.Type})
	return withdrawn, realized
}

// Growth returns the investment return for rate, never below -Balance.
func (f *Fund) Growth(rate float64) decimal.Decimal {
	return decimal.Max(f.Balance.Mul(decimal.NewFromFloat(rate)), f.Balance.Neg())
}

// Update applies one year of growth and variant-specific bookkeeping.
func (f *Fund) Update(rec *YearRecord, rules world.Rules) {
	switch f.Type {
	case TypeTFSA:
		f.Balance = f.Balance.Add(f.Growth(rec.GrowthRate))
		f.Room = f.Room.Add(decimal.NewFromFloat(rules.TFSAAnnualContributionLimit))

	case TypeRRSP:
		f.Balance = f.Balance.Add(f.Growth(rec.GrowthRate))
		limit := decimal.NewFromFloat(rules.Indexed(rules.RRSPLimit, rec.Year))
		accrued := rec.Earnings().Mul(decimal.NewFromFloat(rules.RRSPAccrualFraction))
		f.Room = f.Room.Add(decimal.Min(limit, accrued))
		fraction := rules.MinWithdrawalFraction.At(rec.Age + 1)
		f.ForcedWithdrawal = f.Balance.Mul(decimal.NewFromFloat(fraction))

	case TypeNonRegistered:
		growth := f.Growth(rec.GrowthRate)
		f.Balance = f.Balance.Add(growth)
		realized := f.UnrealizedGains.Mul(decimal.NewFromFloat(rules.UnrealizedGainsRealizationFraction))
		f.UnrealizedGains = f.UnrealizedGains.Sub(realized)
		immediate := growth.Mul(decimal.NewFromFloat(rules.ImmediatelyRealizedGainsFraction))
		rec.TaxReceipts = append(rec.TaxReceipts, TaxReceipt{GrossGain: realized.Add(immediate), FundType: f.Type})
		f.UnrealizedGains = f.UnrealizedGains.Add(growth.Sub(immediate))
	}
}

// TotalBalance sums the balances of funds.
func TotalBalance(funds []*Fund) decimal.Decimal {
	total := decimal.Zero
	for _, f := range funds {
		total = total.Add(f.Balance)
	}
	return total
}
