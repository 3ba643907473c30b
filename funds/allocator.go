/*
allocator.go - Splitting one transaction across several funds

PURPOSE:
  A person asks for one amount ("withdraw 20000 for living expenses",
  "save 6000") and this file decides how much each fund contributes.

CHAINED (single ordered pass):
  Walk the funds once. While the running total is below the target,
  withdraw withdrawalProportions[i] of the remaining gap from fund i. If a
  mandatory minimum pushed the total above the target, deposit
  depositProportions[i] of the excess into the funds still ahead. Stop as
  soon as the total equals the target.

    ChainedTransaction(60, [RRSP 20, TFSA 50, NonReg 30], (0.1, 0.5, 1))
      RRSP   withdraw 60*0.1 = 6
      TFSA   withdraw 54*0.5 = 27
      NonReg withdraw 27*1   = 27   total = 60

  Deposits are negative withdrawals: ChainedDeposit(a) = -Chained(-a).

PROPORTIONAL (simultaneous, capacity aware):
  Convert cumulative proportions to shares, s[i] = p[i] * prod(1-p[j], j<i),
  normalized to sum to 1. Up to len(funds) rounds: give each unsaturated
  fund min(capacity left, share * amount left); funds that hit capacity
  drop out and the others' shares are renormalized. Then perform the
  Withdraw/Deposit calls with the planned amounts.

SHORTFALL:
  Neither allocator fails when funds cannot cover the request. The
  returned total is smaller than requested and the caller decides.

SEE ALSO:
  - fund.go: Deposit / Withdraw
*/
package funds

import "github.com/shopspring/decimal"

// =============================================================================
// CHAINED TRANSACTION
// =============================================================================

// ChainedTransaction withdraws amount from funds in order, reinvesting any
// overshoot. It returns the net amount withdrawn (negative when money went
// in) and the gains realized by the withdrawals.
func ChainedTransaction(
	amount decimal.Decimal,
	funds []*Fund,
	withdrawalProportions, depositProportions []float64,
	rec *YearRecord,
) (total, realized decimal.Decimal) {
	n := min(len(funds), len(withdrawalProportions), len(depositProportions))

	for i := 0; i < n; i++ {
		fund := funds[i]
		switch {
		case total.LessThan(amount):
			want := amount.Sub(total).Mul(decimal.NewFromFloat(withdrawalProportions[i]))
			withdrawn, gains := fund.Withdraw(want, rec)
			total = total.Add(withdrawn)
			realized = realized.Add(gains)
		case total.GreaterThan(amount):
			give := total.Sub(amount).Mul(decimal.NewFromFloat(depositProportions[i]))
			total = total.Sub(fund.Deposit(give, rec))
		default:
			return total, realized
		}
	}
	return total, realized
}

// ChainedDeposit deposits amount into funds in order and returns what was
// accepted.
func ChainedDeposit(amount decimal.Decimal, funds []*Fund, proportions []float64, rec *YearRecord) decimal.Decimal {
	total, _ := ChainedTransaction(amount.Neg(), funds, proportions, proportions, rec)
	return total.Neg()
}

// ChainedWithdraw withdraws amount from funds in order, using the same
// proportions to reinvest any forced overshoot.
func ChainedWithdraw(amount decimal.Decimal, funds []*Fund, proportions []float64, rec *YearRecord) (withdrawn, realized decimal.Decimal) {
	return ChainedTransaction(amount, funds, proportions, proportions, rec)
}

// =============================================================================
// PROPORTIONAL TRANSACTION
// =============================================================================

// Capacity is how much one fund can contribute to a plan.
type Capacity struct {
	Amount  decimal.Decimal
	Bounded bool
}

// Shares converts cumulative proportions into per-fund shares summing to
// 1. All-zero proportions yield all-zero shares.
func Shares(proportions []float64) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(proportions))
	left := decimal.NewFromInt(1)
	sum := decimal.Zero
	for i, p := range proportions {
		pd := decimal.NewFromFloat(p)
		shares[i] = left.Mul(pd)
		left = left.Mul(decimal.NewFromInt(1).Sub(pd))
		sum = sum.Add(shares[i])
	}
	if sum.IsZero() {
		return shares
	}
	for i := range shares {
		shares[i] = shares[i].Div(sum)
	}
	return shares
}

// PlanProportional assigns amount across capacities by proportions without
// touching any fund. The result never exceeds a capacity, and its sum never
// exceeds amount.
func PlanProportional(amount decimal.Decimal, capacities []Capacity, proportions []float64) []decimal.Decimal {
	n := min(len(capacities), len(proportions))
	plan := make([]decimal.Decimal, n)
	if n == 0 || !amount.IsPositive() {
		return plan
	}

	shares := Shares(proportions[:n])
	active := make([]bool, n)
	for i := range active {
		active[i] = !capacities[i].Bounded || capacities[i].Amount.IsPositive()
	}

	assigned := decimal.Zero
	for round := 0; round < n; round++ {
		remaining := amount.Sub(assigned)
		if !remaining.IsPositive() || !renormalize(shares, proportions[:n], active) {
			break
		}

		for i := 0; i < n; i++ {
			if !active[i] || shares[i].IsZero() {
				continue
			}
			give := decimal.Min(shares[i].Mul(remaining), amount.Sub(assigned))
			if capacities[i].Bounded {
				left := capacities[i].Amount.Sub(plan[i])
				if !give.LessThan(left) {
					give = left
					active[i] = false
				}
			}
			plan[i] = plan[i].Add(give)
			assigned = assigned.Add(give)
		}
	}
	return plan
}

// renormalize rescales the shares of active funds to sum to 1 and zeroes
// the rest. When the active funds hold no share, which happens once a fund
// with proportion 1 saturates ahead of them, their raw proportions become
// the shares. It reports false when no active fund has either.
func renormalize(shares []decimal.Decimal, proportions []float64, active []bool) bool {
	if !activeSum(shares, active).IsPositive() {
		for i, p := range proportions {
			if active[i] && p > 0 {
				shares[i] = decimal.NewFromFloat(p)
			}
		}
	}

	sum := activeSum(shares, active)
	if !sum.IsPositive() {
		return false
	}
	for i := range shares {
		if active[i] {
			shares[i] = shares[i].Div(sum)
		} else {
			shares[i] = decimal.Zero
		}
	}
	return true
}

func activeSum(shares []decimal.Decimal, active []bool) decimal.Decimal {
	sum := decimal.Zero
	for i := range shares {
		if active[i] {
			sum = sum.Add(shares[i])
		}
	}
	return sum
}

// ProportionalTransaction splits amount across funds at once. A positive
// amount is withdrawn using withdrawalProportions and capped by balances;
// a negative amount is deposited using depositProportions and capped by
// room. It returns the net amount withdrawn and the gains realized.
func ProportionalTransaction(
	amount decimal.Decimal,
	funds []*Fund,
	withdrawalProportions, depositProportions []float64,
	rec *YearRecord,
) (total, realized decimal.Decimal) {
	if amount.IsZero() {
		return decimal.Zero, decimal.Zero
	}

	withdrawing := amount.IsPositive()
	proportions := depositProportions
	if withdrawing {
		proportions = withdrawalProportions
	}

	capacities := make([]Capacity, len(funds))
	for i, f := range funds {
		if withdrawing {
			capacities[i] = Capacity{Amount: f.Balance, Bounded: true}
		} else {
			room, bounded := f.DepositCapacity()
			capacities[i] = Capacity{Amount: room, Bounded: bounded}
		}
	}

	plan := PlanProportional(amount.Abs(), capacities, proportions)
	for i, share := range plan {
		if share.IsZero() {
			continue
		}
		if withdrawing {
			withdrawn, gains := funds[i].Withdraw(share, rec)
			total = total.Add(withdrawn)
			realized = realized.Add(gains)
		} else {
			total = total.Sub(funds[i].Deposit(share, rec))
		}
	}
	return total, realized
}

// =============================================================================
// SPLIT
// =============================================================================

// SplitFund moves up to amount from source to sink, carrying the
// proportional share of unrealized gains.
func SplitFund(source, sink *Fund, amount decimal.Decimal) {
	if source.Balance.IsZero() {
		return
	}
	move := decimal.Min(amount, source.Balance)
	gains := source.UnrealizedGains.Mul(move).Div(source.Balance)

	source.Balance = source.Balance.Sub(move)
	sink.Balance = sink.Balance.Add(move)
	source.UnrealizedGains = source.UnrealizedGains.Sub(gains)
	sink.UnrealizedGains = sink.UnrealizedGains.Add(gains)
}
