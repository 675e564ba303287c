package treasury_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logia/treasury-engine/fiscal"
	"github.com/logia/treasury-engine/treasury"
)

func quickPayInput(existing []treasury.MonthlyPayment) treasury.QuickPayInput {
	return treasury.QuickPayInput{
		MemberID:       "m1",
		Existing:       existing,
		AmountPerMonth: dec("50"),
		PaymentDate:    "2025-09-01",
		Reference:      ref,
	}
}

func TestAllocateQuickPay_FullYearGetsFreeMonth(t *testing.T) {
	// GIVEN: all 12 fiscal months pending
	// THEN: 11 paid rows plus one free benefit row for June, same group id

	out, err := treasury.AllocateQuickPay(quickPayInput(nil))
	require.NoError(t, err)

	require.Len(t, out.Payments, 12)
	require.NotNil(t, out.FreeMonth)
	assert.Equal(t, 6, out.FreeMonth.Month)
	assert.Equal(t, 2026, out.FreeMonth.Year)
	assert.Len(t, out.PaidMonths, 11)

	for i, p := range out.Payments {
		assert.Equal(t, out.GroupID, p.QuickPayGroupID, "row %d shares the batch group id", i)
		assert.Equal(t, "2025-09-01", p.PaidAt)
		assert.Equal(t, "m1", p.MemberID)
	}
	for _, p := range out.Payments[:11] {
		assert.Equal(t, treasury.PaymentProntoPago, p.PaymentType)
		assert.True(t, p.Amount.Equal(dec("50")))
	}
	last := out.Payments[11]
	assert.Equal(t, treasury.PaymentProntoPagoBenefit, last.PaymentType)
	assert.True(t, last.Amount.IsZero())
	assert.Equal(t, 6, last.Month)
	assert.Equal(t, 2026, last.Year)
}

func TestAllocateQuickPay_PartialYearNoBenefit(t *testing.T) {
	// GIVEN: July through February already recorded, only 4 months pending
	// THEN: 4 paid rows, no free month

	var existing []treasury.MonthlyPayment
	for _, my := range fiscal.Months(2025)[:8] {
		existing = append(existing, payment("m1", my.Month, my.Year, "50", treasury.PaymentRegular))
	}

	out, err := treasury.AllocateQuickPay(quickPayInput(existing))
	require.NoError(t, err)

	require.Len(t, out.Payments, 4)
	assert.Nil(t, out.FreeMonth)
	for _, p := range out.Payments {
		assert.Equal(t, treasury.PaymentProntoPago, p.PaymentType)
	}
	assert.Equal(t, 3, out.Payments[0].Month)
	assert.Equal(t, 6, out.Payments[3].Month)
}

func TestAllocateQuickPay_PartialMonthCountsAsRecorded(t *testing.T) {
	// A month with any row, even a partial payment, is not pending.
	existing := []treasury.MonthlyPayment{payment("m1", 7, 2025, "10", treasury.PaymentRegular)}

	out, err := treasury.AllocateQuickPay(quickPayInput(existing))
	require.NoError(t, err)

	require.Len(t, out.Payments, 11)
	assert.Nil(t, out.FreeMonth, "benefit applies only when all twelve months are pending")
	assert.Equal(t, 8, out.Payments[0].Month)
}

func TestAllocateQuickPay_NothingPending(t *testing.T) {
	var existing []treasury.MonthlyPayment
	for _, my := range fiscal.Months(2025) {
		existing = append(existing, payment("m1", my.Month, my.Year, "50", treasury.PaymentRegular))
	}

	_, err := treasury.AllocateQuickPay(quickPayInput(existing))
	assert.ErrorIs(t, err, treasury.ErrNoPendingMonths)
}

func TestAllocateQuickPay_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*treasury.QuickPayInput)
		field  string
	}{
		{"missing member", func(in *treasury.QuickPayInput) { in.MemberID = "" }, "member_id"},
		{"zero amount", func(in *treasury.QuickPayInput) { in.AmountPerMonth = dec("0") }, "amount_per_month"},
		{"negative amount", func(in *treasury.QuickPayInput) { in.AmountPerMonth = dec("-5") }, "amount_per_month"},
		{"missing date", func(in *treasury.QuickPayInput) { in.PaymentDate = "" }, "payment_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := quickPayInput(nil)
			tc.mutate(&in)
			_, err := treasury.AllocateQuickPay(in)
			var verr *treasury.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func advanceInput(months []fiscal.MonthYear, total string) treasury.AdvancePayInput {
	return treasury.AdvancePayInput{
		MemberID:       "m1",
		MonthlyFee:     dec("50"),
		TotalAmount:    dec(total),
		SelectedMonths: months,
		PaymentDate:    "2025-09-01",
		Reference:      ref,
	}
}

func TestAllocateAdvancePay_ExactMultiple(t *testing.T) {
	months := fiscal.Months(2025)[:3]
	out, err := treasury.AllocateAdvancePay(advanceInput(months, "150"))
	require.NoError(t, err)

	require.Len(t, out.Payments, 3)
	for i, p := range out.Payments {
		assert.Equal(t, treasury.PaymentAdelantado, p.PaymentType)
		assert.True(t, p.Amount.Equal(dec("50")))
		assert.Equal(t, months[i].Month, p.Month)
		assert.Equal(t, months[i].Year, p.Year)
	}
}

func TestAllocateAdvancePay_NotExactMultiple(t *testing.T) {
	// GIVEN: $125 against a $50 fee
	// THEN: remainder $25, 2 months covered, suggested totals $100 and $150

	_, err := treasury.AllocateAdvancePay(advanceInput(fiscal.Months(2025)[:2], "125"))

	var nerr *treasury.NotExactMultipleError
	require.ErrorAs(t, err, &nerr)
	assert.True(t, nerr.Remainder.Equal(dec("25")))
	assert.Equal(t, 2, nerr.MonthsCovered)
	lower, upper := nerr.SuggestedTotals()
	assert.True(t, lower.Equal(dec("100")))
	assert.True(t, upper.Equal(dec("150")))
}

func TestAllocateAdvancePay_CentPrecisionRemainder(t *testing.T) {
	in := advanceInput(fiscal.Months(2025)[:3], "100.01")
	in.MonthlyFee = dec("33.33")

	_, err := treasury.AllocateAdvancePay(in)

	var nerr *treasury.NotExactMultipleError
	require.ErrorAs(t, err, &nerr)
	assert.True(t, nerr.Remainder.Equal(dec("0.02")), "remainder = %s", nerr.Remainder)
	assert.Equal(t, 3, nerr.MonthsCovered)
}

func TestAllocateAdvancePay_SelectionMismatches(t *testing.T) {
	paid := []treasury.MonthlyPayment{payment("m1", 7, 2025, "50", treasury.PaymentRegular)}
	months := fiscal.Months(2025)

	cases := []struct {
		name     string
		existing []treasury.MonthlyPayment
		selected []fiscal.MonthYear
		total    string
		reason   string
	}{
		{
			"wrong count", nil,
			months[:3], "100", "count",
		},
		{
			"out of fiscal year", nil,
			[]fiscal.MonthYear{{Month: 7, Year: 2024}, {Month: 8, Year: 2024}}, "100", "outside the fiscal year",
		},
		{
			"already paid", paid,
			months[:2], "100", "already has a payment",
		},
		{
			"duplicate month", nil,
			[]fiscal.MonthYear{months[0], months[0]}, "100", "selected twice",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := advanceInput(tc.selected, tc.total)
			in.Existing = tc.existing
			_, err := treasury.AllocateAdvancePay(in)
			var serr *treasury.SelectionMismatchError
			require.ErrorAs(t, err, &serr)
			assert.Contains(t, serr.Reason, tc.reason)
		})
	}
}

func TestAllocateAdvancePay_Validation(t *testing.T) {
	in := advanceInput(fiscal.Months(2025)[:2], "100")
	in.MonthlyFee = dec("0")

	_, err := treasury.AllocateAdvancePay(in)

	var verr *treasury.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "monthly_fee", verr.Field)
}

func TestAllocators_DistinctGroupIDs(t *testing.T) {
	out1, err := treasury.AllocateQuickPay(quickPayInput(nil))
	require.NoError(t, err)
	out2, err := treasury.AllocateQuickPay(quickPayInput(nil))
	require.NoError(t, err)

	assert.NotEqual(t, out1.GroupID, out2.GroupID)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, treasury.IsClientError(&treasury.ValidationError{Field: "x", Reason: "y"}))
	assert.True(t, treasury.IsClientError(treasury.ErrNoPendingMonths))
	assert.False(t, treasury.IsClientError(errors.New("boom")))
	assert.False(t, treasury.IsClientError(treasury.ErrStoreFailed))
}

func TestAllocateQuickPay_ReferenceDeterminesFiscalYear(t *testing.T) {
	// June reference still belongs to the fiscal year that began last July.
	in := quickPayInput(nil)
	in.Reference = time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	out, err := treasury.AllocateQuickPay(in)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Payments[0].Month)
	assert.Equal(t, 2025, out.Payments[0].Year)
}
