package report_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logia/treasury-engine/cache"
	"github.com/logia/treasury-engine/report"
	"github.com/logia/treasury-engine/treasury"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func snapshot() cache.Snapshot {
	return cache.Snapshot{
		Collections: cache.Collections{
			Members: []treasury.Member{
				{ID: "m1", FullName: "Juan Pérez", Status: treasury.StatusActivo},
				{ID: "m2", FullName: "Pedro Gómez", Status: treasury.StatusActivo},
				{ID: "m3", FullName: "Luis Ortiz", Status: treasury.StatusInactivo},
			},
			MonthlyPayments: []treasury.MonthlyPayment{
				{ID: "p1", MemberID: "m1", Month: 7, Year: 2025, Amount: dec("50"), PaidAt: "2025-07-10", PaymentType: treasury.PaymentRegular},
				// Advance payment made in July covering December: July income.
				{ID: "p2", MemberID: "m1", Month: 12, Year: 2025, Amount: dec("50"), PaidAt: "2025-07-10", PaymentType: treasury.PaymentAdelantado},
				{ID: "p3", MemberID: "m1", Month: 8, Year: 2025, Amount: dec("0"), PaidAt: "2025-07-10", PaymentType: treasury.PaymentProntoPagoBenefit},
				{ID: "p4", MemberID: "m2", Month: 8, Year: 2025, Amount: dec("50"), PaidAt: "2025-08-05", PaymentType: treasury.PaymentRegular},
			},
			Expenses: []treasury.Expense{
				{ID: "e1", Description: "Velas", Category: "ritual", Amount: dec("20"), ExpenseDate: "2025-07-15"},
				{ID: "e2", Description: "Arriendo", Category: "local", Amount: dec("100"), ExpenseDate: "2025-07-20"},
				{ID: "e3", Description: "Flores", Amount: dec("10"), ExpenseDate: "2025-08-02"},
			},
			ExtraordinaryFees: []treasury.ExtraordinaryFee{
				{ID: "f1", Name: "Techo del templo", AmountPerMember: dec("100"), DueDate: "2025-07-31"},
			},
			ExtraordinaryPayments: []treasury.ExtraordinaryPayment{
				{ID: "x1", ExtraordinaryFeeID: "f1", MemberID: "m1", AmountPaid: dec("60"), PaymentDate: "2025-07-12"},
				{ID: "x2", ExtraordinaryFeeID: "f1", MemberID: "m1", AmountPaid: dec("40"), PaymentDate: "2025-08-12"},
			},
			DegreeFees: []treasury.DegreeFee{
				{ID: "d1", Description: "Exaltación", Amount: dec("80"), Category: treasury.DegreeFeeExaltacion, FeeDate: "2025-07-25"},
			},
		},
	}
}

func TestMonthly_Totals(t *testing.T) {
	r := report.Monthly(snapshot(), 7, 2025)

	// Dues 50+50 (benefit excluded), extraordinary 60, degree 80, expenses 120.
	assert.True(t, r.Totals.DuesIncome.Equal(dec("100")))
	assert.True(t, r.Totals.ExtraordinaryIncome.Equal(dec("60")))
	assert.True(t, r.Totals.DegreeFeeIncome.Equal(dec("80")))
	assert.True(t, r.Totals.TotalIncome.Equal(dec("240")))
	assert.True(t, r.Totals.TotalExpenses.Equal(dec("120")))
	assert.True(t, r.Totals.NetBalance.Equal(dec("120")))
	assert.Equal(t, 2, r.Totals.PaymentsCount)
}

func TestMonthly_FiltersOnPaidAtNotCoveredMonth(t *testing.T) {
	// The December row was paid in July, so December itself has no dues income.
	r := report.Monthly(snapshot(), 12, 2025)

	assert.True(t, r.Totals.DuesIncome.IsZero())
	assert.Equal(t, 0, r.Totals.PaymentsCount)
}

func TestMonthly_DebtorsAreActiveMembersWithNoRowsInPeriod(t *testing.T) {
	r := report.Monthly(snapshot(), 7, 2025)

	require.Len(t, r.Debtors, 1)
	assert.Equal(t, "m2", r.Debtors[0].ID)

	// The inactive member never appears even though they paid nothing.
	for _, d := range r.Debtors {
		assert.NotEqual(t, "m3", d.ID)
	}
}

func TestMonthly_MemberPaymentLines(t *testing.T) {
	r := report.Monthly(snapshot(), 7, 2025)

	require.Len(t, r.MemberPayments, 1)
	line := r.MemberPayments[0]
	assert.Equal(t, "m1", line.Member.ID)
	assert.Len(t, line.Payments, 3, "benefit rows still appear on the member's statement")
	assert.True(t, line.TotalPaid.Equal(dec("100")))
}

func TestMonthly_ExpensesByCategory(t *testing.T) {
	r := report.Monthly(snapshot(), 7, 2025)

	require.Len(t, r.ExpensesByCategory, 2)
	assert.Equal(t, "local", r.ExpensesByCategory[0].Category)
	assert.True(t, r.ExpensesByCategory[0].Total.Equal(dec("100")))
	assert.Equal(t, "ritual", r.ExpensesByCategory[1].Category)

	// August's uncategorized expense lands in "otros".
	aug := report.Monthly(snapshot(), 8, 2025)
	require.Len(t, aug.ExpensesByCategory, 1)
	assert.Equal(t, "otros", aug.ExpensesByCategory[0].Category)
}

func TestMonthly_ExtraordinaryDetails(t *testing.T) {
	r := report.Monthly(snapshot(), 7, 2025)

	require.Len(t, r.ExtraordinaryDetails, 1)
	d := r.ExtraordinaryDetails[0]
	assert.True(t, d.Expected.Equal(dec("200")), "expected = fee x 2 active members")
	assert.True(t, d.Collected.Equal(dec("60")), "only the July installment counts")
	assert.Equal(t, 1, d.PayerCount)
}

func TestAnnual_BreakdownHasTwelveRowsAndConsistentTotals(t *testing.T) {
	r := report.Annual(snapshot(), 2025)

	require.Len(t, r.Months, 12)
	assert.Equal(t, "Enero", r.Months[0].MonthName)
	assert.Equal(t, "Diciembre", r.Months[11].MonthName)

	income := decimal.Zero
	expenses := decimal.Zero
	for _, m := range r.Months {
		income = income.Add(m.Income)
		expenses = expenses.Add(m.Expenses)
	}
	assert.True(t, income.Equal(r.Totals.TotalIncome), "month rows sum to the year total")
	assert.True(t, expenses.Equal(r.Totals.TotalExpenses))
	assert.True(t, r.Totals.TotalIncome.Equal(dec("330")))
	assert.True(t, r.Totals.TotalExpenses.Equal(dec("130")))
}

func TestReceivables_SortedByDebtDescending(t *testing.T) {
	ref := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	debts := report.Receivables(snapshot(), dec("50"), ref)

	// m2 owes 11 months dues + full extraordinary fee; m1 owes less.
	require.Len(t, debts, 2)
	assert.Equal(t, "m2", debts[0].Member.ID)
	assert.True(t, debts[0].GrandTotal.Equal(dec("650")), "grand total = %s", debts[0].GrandTotal)
	assert.Equal(t, "m1", debts[1].Member.ID)
	// m1: 9 unpaid months (jul, aug benefit, dec covered), extraordinary settled.
	assert.True(t, debts[1].GrandTotal.Equal(dec("450")), "grand total = %s", debts[1].GrandTotal)
	assert.Empty(t, debts[1].PendingExtraordinary)
}

func TestReceivables_SkipsInactiveAndSettledMembers(t *testing.T) {
	snap := snapshot()
	ref := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	for _, d := range report.Receivables(snap, dec("50"), ref) {
		assert.NotEqual(t, "m3", d.Member.ID)
	}

	// With a zero fee and the extraordinary fee removed nobody owes anything.
	snap.ExtraordinaryFees = nil
	snap.ExtraordinaryPayments = nil
	assert.Empty(t, report.Receivables(snap, decimal.Zero, ref))
}
