package treasury

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/logia/treasury-engine/fiscal"
)

// =============================================================================
// DUES LEDGER - fiscal-year arrears for one member
// =============================================================================

// PendingMonth is one fiscal month a member still owes something for.
type PendingMonth struct {
	Month      int
	Year       int
	MonthName  string
	FullAmount decimal.Decimal
	AmountPaid decimal.Decimal
}

// Owed returns the outstanding portion of the month.
func (pm PendingMonth) Owed() decimal.Decimal {
	return pm.FullAmount.Sub(pm.AmountPaid)
}

// Arrears is the dues debt of one member for one fiscal year.
type Arrears struct {
	PendingMonths   []PendingMonth // fiscal order, July first
	TotalOwed       decimal.Decimal
	EffectiveFee    decimal.Decimal
	FiscalYear      int
	FiscalYearLabel string // e.g. "2025-2026"
}

// MonthsOverdue is the number of months with anything outstanding.
func (a Arrears) MonthsOverdue() int { return len(a.PendingMonths) }

// ComputeArrears walks the 12 months of the fiscal year containing ref and
// classifies each against the member's payment rows:
//
//   - no row: the full effective fee is owed
//   - benefit row: settled regardless of amount
//   - amount below the fee: the difference is owed (partial payment)
//   - amount at or above the fee: settled
//
// Pure and idempotent; payments outside the fiscal window are ignored.
// A non-positive effective fee yields zero arrears: owed amounts are never
// negative and a misconfigured fee must not manufacture debt.
func ComputeArrears(member Member, payments []MonthlyPayment, defaultFee decimal.Decimal, ref time.Time) Arrears {
	info := fiscal.YearInfo(ref)
	fee := member.EffectiveFee(defaultFee)

	arrears := Arrears{
		EffectiveFee:    fee,
		TotalOwed:       decimal.Zero,
		FiscalYear:      info.FiscalYear,
		FiscalYearLabel: fiscal.Label(info.FiscalYear),
	}
	if !fee.IsPositive() {
		return arrears
	}

	// Index this member's rows by (month, year). The unique constraint
	// guarantees at most one row per key.
	rows := make(map[fiscal.MonthYear]*MonthlyPayment)
	for i := range payments {
		p := &payments[i]
		if p.MemberID != member.ID {
			continue
		}
		rows[fiscal.MonthYear{Month: p.Month, Year: p.Year}] = p
	}

	for _, my := range fiscal.Months(info.FiscalYear) {
		status := StatusOf(rows[my], fee)
		if status.Settled() {
			continue
		}
		arrears.PendingMonths = append(arrears.PendingMonths, PendingMonth{
			Month:      my.Month,
			Year:       my.Year,
			MonthName:  fiscal.MonthName(my.Month),
			FullAmount: fee,
			AmountPaid: status.Paid,
		})
		arrears.TotalOwed = arrears.TotalOwed.Add(status.Owed(fee))
	}
	return arrears
}
