/*
report.go - Calendar-period aggregation over a cache snapshot

PURPOSE:
  Builds the monthly and annual board reports and the receivables list from
  one Snapshot. Pure functions over in-memory data; nothing here touches the
  store.

PERIOD FILTERING:
  Rows carry their dates as YYYY-MM-DD strings, so inclusion in a period is
  a plain lexical comparison against the period bounds. Dues rows filter on
  paid_at (the date money changed hands), never on the month/year the row
  covers: an advance payment made in March for June counts as March income.

DEBTORS vs RECEIVABLES:
  A report's Debtors list answers "who paid nothing during this period".
  Receivables answers the different question "who owes what right now",
  walking the fiscal year and extraordinary ledgers per member.
*/
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/logia/treasury-engine/cache"
	"github.com/logia/treasury-engine/fiscal"
	"github.com/logia/treasury-engine/treasury"
)

// =============================================================================
// PERIODS
// =============================================================================

// Period is an inclusive calendar date range. Bounds are YYYY-MM-DD strings;
// containment is lexical.
type Period struct {
	From string
	To   string
}

// MonthPeriod covers one calendar month.
func MonthPeriod(month, year int) Period {
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return Period{
		From: fmt.Sprintf("%04d-%02d-01", year, month),
		To:   fmt.Sprintf("%04d-%02d-%02d", year, month, last),
	}
}

// YearPeriod covers one calendar year.
func YearPeriod(year int) Period {
	return Period{
		From: fmt.Sprintf("%04d-01-01", year),
		To:   fmt.Sprintf("%04d-12-31", year),
	}
}

// Contains reports whether the date string falls inside the period. Empty
// dates never match.
func (p Period) Contains(date string) bool {
	return date != "" && date >= p.From && date <= p.To
}

// =============================================================================
// REPORT SHAPES
// =============================================================================

// Totals is the income/expense aggregate of one period.
type Totals struct {
	DuesIncome          decimal.Decimal // benefit rows excluded
	ExtraordinaryIncome decimal.Decimal
	DegreeFeeIncome     decimal.Decimal
	TotalIncome         decimal.Decimal // dues + extraordinary + degree fees
	TotalExpenses       decimal.Decimal
	NetBalance          decimal.Decimal
	PaymentsCount       int // dues rows in period, benefit rows excluded
}

// MemberPaymentLine is one member's dues activity inside a period.
type MemberPaymentLine struct {
	Member    treasury.Member
	Payments  []treasury.MonthlyPayment
	TotalPaid decimal.Decimal
}

// CategoryTotal is one expense category's period total.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// ExtraordinaryDetail compares one fee's period collection against its
// expectation across the active membership.
type ExtraordinaryDetail struct {
	Fee        treasury.ExtraordinaryFee
	Expected   decimal.Decimal // amount-per-member times active members
	Collected  decimal.Decimal
	PayerCount int
}

// MonthlyReport is the full board report for one calendar month.
type MonthlyReport struct {
	Period               Period
	Totals               Totals
	MemberPayments       []MemberPaymentLine
	Debtors              []treasury.Member // active members with no dues row in the period
	ExpensesByCategory   []CategoryTotal
	Expenses             []treasury.Expense
	ExtraordinaryDetails []ExtraordinaryDetail
}

// MonthRow is one month's line of the annual breakdown.
type MonthRow struct {
	Month     int
	MonthName string
	Income    decimal.Decimal
	Expenses  decimal.Decimal
	Balance   decimal.Decimal
}

// AnnualReport is the calendar-year report: year totals plus a twelve-row
// month-by-month breakdown.
type AnnualReport struct {
	Year   int
	Totals Totals
	Months []MonthRow
}

// =============================================================================
// BUILDERS
// =============================================================================

// Monthly builds the report for one calendar month.
func Monthly(snap cache.Snapshot, month, year int) MonthlyReport {
	p := MonthPeriod(month, year)
	r := MonthlyReport{Period: p, Totals: totals(snap, p)}

	paidBy := make(map[string][]treasury.MonthlyPayment)
	for _, pay := range snap.MonthlyPayments {
		if p.Contains(pay.PaidAt) {
			paidBy[pay.MemberID] = append(paidBy[pay.MemberID], pay)
		}
	}
	for _, m := range snap.Members {
		rows, ok := paidBy[m.ID]
		if ok {
			total := decimal.Zero
			for _, pay := range rows {
				total = total.Add(pay.Amount)
			}
			r.MemberPayments = append(r.MemberPayments, MemberPaymentLine{Member: m, Payments: rows, TotalPaid: total})
			continue
		}
		if m.IsActive() {
			r.Debtors = append(r.Debtors, m)
		}
	}
	sort.Slice(r.MemberPayments, func(i, j int) bool {
		return r.MemberPayments[i].Member.FullName < r.MemberPayments[j].Member.FullName
	})
	sort.Slice(r.Debtors, func(i, j int) bool { return r.Debtors[i].FullName < r.Debtors[j].FullName })

	byCategory := make(map[string]decimal.Decimal)
	for _, e := range snap.Expenses {
		if !p.Contains(e.ExpenseDate) {
			continue
		}
		r.Expenses = append(r.Expenses, e)
		cat := e.Category
		if cat == "" {
			cat = "otros"
		}
		byCategory[cat] = byCategory[cat].Add(e.Amount)
	}
	for cat, total := range byCategory {
		r.ExpensesByCategory = append(r.ExpensesByCategory, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(r.ExpensesByCategory, func(i, j int) bool {
		return r.ExpensesByCategory[i].Category < r.ExpensesByCategory[j].Category
	})

	r.ExtraordinaryDetails = extraordinaryDetails(snap, p)
	return r
}

// Annual builds the calendar-year report with its month-by-month breakdown.
func Annual(snap cache.Snapshot, year int) AnnualReport {
	r := AnnualReport{Year: year, Totals: totals(snap, YearPeriod(year))}
	for month := 1; month <= 12; month++ {
		t := totals(snap, MonthPeriod(month, year))
		r.Months = append(r.Months, MonthRow{
			Month:     month,
			MonthName: fiscal.MonthName(month),
			Income:    t.TotalIncome,
			Expenses:  t.TotalExpenses,
			Balance:   t.NetBalance,
		})
	}
	return r
}

// =============================================================================
// RECEIVABLES
// =============================================================================

// MemberDebt is one active member's complete outstanding position.
type MemberDebt struct {
	Member               treasury.Member
	Arrears              treasury.Arrears
	PendingExtraordinary []treasury.PendingFee
	GrandTotal           decimal.Decimal
}

// Receivables lists every active member who owes anything as of ref,
// largest debt first.
func Receivables(snap cache.Snapshot, defaultFee decimal.Decimal, ref time.Time) []MemberDebt {
	var out []MemberDebt
	for _, m := range snap.Members {
		if !m.IsActive() {
			continue
		}
		arrears := treasury.ComputeArrears(m, snap.MonthlyPayments, defaultFee, ref)
		pending := treasury.ComputePendingExtraordinary(m, snap.ExtraordinaryFees, snap.ExtraordinaryPayments)
		total := treasury.GrandTotal(arrears, pending)
		if !total.IsPositive() {
			continue
		}
		out = append(out, MemberDebt{Member: m, Arrears: arrears, PendingExtraordinary: pending, GrandTotal: total})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GrandTotal.GreaterThan(out[j].GrandTotal) })
	return out
}

// =============================================================================
// INTERNALS
// =============================================================================

func totals(snap cache.Snapshot, p Period) Totals {
	t := Totals{
		DuesIncome:          decimal.Zero,
		ExtraordinaryIncome: decimal.Zero,
		DegreeFeeIncome:     decimal.Zero,
		TotalExpenses:       decimal.Zero,
	}
	for _, pay := range snap.MonthlyPayments {
		if pay.PaymentType == treasury.PaymentProntoPagoBenefit || !p.Contains(pay.PaidAt) {
			continue
		}
		t.DuesIncome = t.DuesIncome.Add(pay.Amount)
		t.PaymentsCount++
	}
	for _, pay := range snap.ExtraordinaryPayments {
		if p.Contains(pay.PaymentDate) {
			t.ExtraordinaryIncome = t.ExtraordinaryIncome.Add(pay.AmountPaid)
		}
	}
	for _, f := range snap.DegreeFees {
		if p.Contains(f.FeeDate) {
			t.DegreeFeeIncome = t.DegreeFeeIncome.Add(f.Amount)
		}
	}
	for _, e := range snap.Expenses {
		if p.Contains(e.ExpenseDate) {
			t.TotalExpenses = t.TotalExpenses.Add(e.Amount)
		}
	}
	t.TotalIncome = t.DuesIncome.Add(t.ExtraordinaryIncome).Add(t.DegreeFeeIncome)
	t.NetBalance = t.TotalIncome.Sub(t.TotalExpenses)
	return t
}

func extraordinaryDetails(snap cache.Snapshot, p Period) []ExtraordinaryDetail {
	active := 0
	for _, m := range snap.Members {
		if m.IsActive() {
			active++
		}
	}

	var out []ExtraordinaryDetail
	for _, fee := range snap.ExtraordinaryFees {
		d := ExtraordinaryDetail{
			Fee:       fee,
			Expected:  fee.AmountPerMember.Mul(decimal.NewFromInt(int64(active))),
			Collected: decimal.Zero,
		}
		payers := make(map[string]bool)
		for _, pay := range snap.ExtraordinaryPayments {
			if pay.ExtraordinaryFeeID != fee.ID || !p.Contains(pay.PaymentDate) {
				continue
			}
			d.Collected = d.Collected.Add(pay.AmountPaid)
			payers[pay.MemberID] = true
		}
		d.PayerCount = len(payers)
		if d.PayerCount == 0 && !p.Contains(fee.DueDate) {
			continue
		}
		out = append(out, d)
	}
	return out
}
