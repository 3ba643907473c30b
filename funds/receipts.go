/*
receipts.go - Year record and its append-only receipt logs

PURPOSE:
  A YearRecord is the context of one simulated year. Funds and incomes
  append receipts to it as money moves; tax and benefit code reads the
  receipts afterwards. Nothing ever edits or removes a receipt: a
  correction is a new receipt.

RECEIPT KINDS:
  DepositReceipt:  amount accepted by a fund (0 when the fund had no room)
  WithdrawReceipt: amount paid out and the gains it realized
  TaxReceipt:      gains realized inside a taxable fund without a withdrawal
  IncomeReceipt:   earnings and government benefits

SEE ALSO:
  - fund.go: Appends Deposit/Withdraw/Tax receipts
  - lifetime/person.go: Appends income receipts, reads totals
*/
package funds

import (
	"github.com/shopspring/decimal"

	"github.com/warp/lifetime-engine/world"
)

// =============================================================================
// RECEIPTS
// =============================================================================

type DepositReceipt struct {
	Amount   decimal.Decimal `json:"amount"`
	FundType Type            `json:"fund_type"`
}

type WithdrawReceipt struct {
	Amount   decimal.Decimal `json:"amount"`
	Gains    decimal.Decimal `json:"gains"`
	FundType Type            `json:"fund_type"`
}

type TaxReceipt struct {
	GrossGain decimal.Decimal `json:"gross_gain"`
	FundType  Type            `json:"fund_type"`
}

// IncomeType labels where an income receipt came from.
type IncomeType string

const (
	IncomeGeneric  IncomeType = "Generic Income"
	IncomeEarnings IncomeType = "Earnings"
	IncomeEI       IncomeType = "EI"
	IncomeCPP      IncomeType = "CPP"
	IncomeOAS      IncomeType = "OAS"
	IncomeGIS      IncomeType = "GIS"
)

type IncomeReceipt struct {
	Amount     decimal.Decimal `json:"amount"`
	IncomeType IncomeType      `json:"income_type"`
	Taxable    bool            `json:"taxable"`
}

// =============================================================================
// YEAR RECORD
// =============================================================================

// YearRecord is the period context passed to every fund operation.
type YearRecord struct {
	Year       int
	Age        int
	GrowthRate float64

	IsDead     bool
	IsEmployed bool
	IsRetired  bool

	PensionableEarnings decimal.Decimal
	InsurableEarnings   decimal.Decimal

	Deposits    []DepositReceipt
	Withdrawals []WithdrawReceipt
	TaxReceipts []TaxReceipt
	Incomes     []IncomeReceipt
}

// NewYearRecord returns the record of the first simulated year.
func NewYearRecord(rules world.Rules) *YearRecord {
	return &YearRecord{Year: rules.BaseYear, Age: rules.StartAge}
}

func (r *YearRecord) AddIncome(amount decimal.Decimal, kind IncomeType, taxable bool) {
	r.Incomes = append(r.Incomes, IncomeReceipt{Amount: amount, IncomeType: kind, Taxable: taxable})
}

// Income sums income receipts of the given type.
func (r *YearRecord) Income(kind IncomeType) decimal.Decimal {
	total := decimal.Zero
	for _, rc := range r.Incomes {
		if rc.IncomeType == kind {
			total = total.Add(rc.Amount)
		}
	}
	return total
}

func (r *YearRecord) Earnings() decimal.Decimal {
	return r.Income(IncomeEarnings)
}

// TaxableIncome sums taxable incomes, withdrawals from registered
// (pre-tax) funds, and included capital gains.
func (r *YearRecord) TaxableIncome(inclusionRate float64) decimal.Decimal {
	total := decimal.Zero
	for _, rc := range r.Incomes {
		if rc.Taxable {
			total = total.Add(rc.Amount)
		}
	}
	gains := decimal.Zero
	for _, w := range r.Withdrawals {
		if w.FundType == TypeRRSP || w.FundType == TypeRRSPBridging {
			total = total.Add(w.Amount)
		}
		gains = gains.Add(w.Gains)
	}
	for _, t := range r.TaxReceipts {
		gains = gains.Add(t.GrossGain)
	}
	return total.Add(gains.Mul(decimal.NewFromFloat(inclusionRate)))
}

func (r *YearRecord) TotalDeposits() decimal.Decimal {
	total := decimal.Zero
	for _, d := range r.Deposits {
		total = total.Add(d.Amount)
	}
	return total
}

func (r *YearRecord) TotalWithdrawals() decimal.Decimal {
	total := decimal.Zero
	for _, w := range r.Withdrawals {
		total = total.Add(w.Amount)
	}
	return total
}

func (r *YearRecord) RealizedGains() decimal.Decimal {
	total := decimal.Zero
	for _, w := range r.Withdrawals {
		total = total.Add(w.Gains)
	}
	for _, t := range r.TaxReceipts {
		total = total.Add(t.GrossGain)
	}
	return total
}
