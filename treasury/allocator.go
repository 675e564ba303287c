/*
allocator.go - Batch payment allocation (quick-pay and advance-pay)

Both allocators compute the exact monthly_payments rows a batch would insert
and nothing else: persistence and cache patching belong to the caller. Any
validation failure aborts before a single row is produced, so a batch is
always all-or-nothing.

QUICK-PAY ("Pronto Pago"):
  A lump sum at amount-per-month pays the next pending fiscal months, at most
  11 of them. Only when the entire year (all 12 months) is pending does the
  12th month become a free promotional row. A member missing fewer than 12
  months pays full price for what is pending and gets no free month - the
  promotion rewards full-year upfront payment, by business rule.

ADVANCE-PAY ("Adelantado"):
  An arbitrary total must divide exactly into whole months at the member's
  fee; the operator then picks exactly that many pending months. No partial
  months are ever created by this path.

All rows of one batch share a group ID and payment date so a batch can be
traced and displayed as a unit.
*/
package treasury

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/logia/treasury-engine/fiscal"
)

// quickPayMaxPaidMonths caps the paid rows of one quick-pay batch; the 12th
// pending month, when present, is the promotional free row.
const quickPayMaxPaidMonths = 11

// =============================================================================
// QUICK-PAY
// =============================================================================

// QuickPayInput carries one quick-pay request. Existing may contain rows for
// any member and any period; the allocator filters to this member's rows in
// the fiscal year containing Reference.
type QuickPayInput struct {
	MemberID       string
	Existing       []MonthlyPayment
	AmountPerMonth decimal.Decimal
	PaymentDate    string // YYYY-MM-DD
	ReceiptURL     string
	Reference      time.Time
}

// QuickPayOutput is the computed batch: paid rows first, then the optional
// free row. All rows share GroupID and the payment date.
type QuickPayOutput struct {
	GroupID    string
	Payments   []MonthlyPayment
	PaidMonths []fiscal.MonthYear
	FreeMonth  *fiscal.MonthYear
}

// AllocateQuickPay computes the rows of a quick-pay batch.
func AllocateQuickPay(in QuickPayInput) (*QuickPayOutput, error) {
	if in.MemberID == "" {
		return nil, &ValidationError{Field: "member_id", Reason: "required"}
	}
	if !in.AmountPerMonth.IsPositive() {
		return nil, &ValidationError{Field: "amount_per_month", Reason: "must be greater than zero"}
	}
	if in.PaymentDate == "" {
		return nil, &ValidationError{Field: "payment_date", Reason: "required"}
	}

	pending := pendingFiscalMonths(in.MemberID, in.Existing, in.Reference)
	if len(pending) == 0 {
		return nil, ErrNoPendingMonths
	}

	paidCount := len(pending)
	if paidCount > quickPayMaxPaidMonths {
		paidCount = quickPayMaxPaidMonths
	}
	monthsToPay := pending[:paidCount]

	// The promotion only triggers when the full year is outstanding.
	var freeMonth *fiscal.MonthYear
	if len(pending) >= 12 {
		fm := pending[quickPayMaxPaidMonths]
		freeMonth = &fm
	}

	out := &QuickPayOutput{
		GroupID:    uuid.NewString(),
		PaidMonths: monthsToPay,
		FreeMonth:  freeMonth,
	}
	for _, my := range monthsToPay {
		out.Payments = append(out.Payments, MonthlyPayment{
			ID:              uuid.NewString(),
			MemberID:        in.MemberID,
			Month:           my.Month,
			Year:            my.Year,
			Amount:          in.AmountPerMonth,
			PaidAt:          in.PaymentDate,
			PaymentType:     PaymentProntoPago,
			ReceiptURL:      in.ReceiptURL,
			QuickPayGroupID: out.GroupID,
		})
	}
	if freeMonth != nil {
		out.Payments = append(out.Payments, MonthlyPayment{
			ID:              uuid.NewString(),
			MemberID:        in.MemberID,
			Month:           freeMonth.Month,
			Year:            freeMonth.Year,
			Amount:          decimal.Zero,
			PaidAt:          in.PaymentDate,
			PaymentType:     PaymentProntoPagoBenefit,
			ReceiptURL:      in.ReceiptURL,
			QuickPayGroupID: out.GroupID,
		})
	}
	return out, nil
}

// =============================================================================
// ADVANCE-PAY
// =============================================================================

// AdvancePayInput carries one advance-pay request. SelectedMonths must name
// exactly TotalAmount/MonthlyFee currently-unpaid months of the fiscal year
// containing Reference.
type AdvancePayInput struct {
	MemberID       string
	Existing       []MonthlyPayment
	MonthlyFee     decimal.Decimal
	TotalAmount    decimal.Decimal
	SelectedMonths []fiscal.MonthYear
	PaymentDate    string // YYYY-MM-DD
	ReceiptURL     string
	Reference      time.Time
}

// AdvancePayOutput is the computed batch: one full-fee row per selected
// month, sharing GroupID and the payment date.
type AdvancePayOutput struct {
	GroupID  string
	Payments []MonthlyPayment
}

// AllocateAdvancePay validates exact divisibility and the month selection,
// then computes the rows of an advance-pay batch.
func AllocateAdvancePay(in AdvancePayInput) (*AdvancePayOutput, error) {
	if in.MemberID == "" {
		return nil, &ValidationError{Field: "member_id", Reason: "required"}
	}
	if !in.MonthlyFee.IsPositive() {
		return nil, &ValidationError{Field: "monthly_fee", Reason: "must be greater than zero"}
	}
	if !in.TotalAmount.IsPositive() {
		return nil, &ValidationError{Field: "total_amount", Reason: "must be greater than zero"}
	}
	if in.PaymentDate == "" {
		return nil, &ValidationError{Field: "payment_date", Reason: "required"}
	}

	remainder := in.TotalAmount.Mod(in.MonthlyFee).Round(2)
	monthsCovered := int(in.TotalAmount.Div(in.MonthlyFee).IntPart())
	if !remainder.IsZero() {
		return nil, &NotExactMultipleError{
			TotalAmount:   in.TotalAmount,
			MonthlyFee:    in.MonthlyFee,
			Remainder:     remainder,
			MonthsCovered: monthsCovered,
		}
	}

	if len(in.SelectedMonths) != monthsCovered {
		return nil, &SelectionMismatchError{
			Expected: monthsCovered,
			Got:      len(in.SelectedMonths),
			Reason:   "selection count must equal the months the amount covers",
		}
	}

	info := fiscal.YearInfo(in.Reference)
	taken := existingMonthSet(in.MemberID, in.Existing)
	seen := make(map[fiscal.MonthYear]bool, len(in.SelectedMonths))
	for _, my := range in.SelectedMonths {
		if !fiscal.Contains(info.FiscalYear, my.Month, my.Year) {
			return nil, &SelectionMismatchError{
				Expected: monthsCovered,
				Got:      len(in.SelectedMonths),
				Reason:   my.String() + " is outside the fiscal year " + fiscal.Label(info.FiscalYear),
			}
		}
		if taken[my] {
			return nil, &SelectionMismatchError{
				Expected: monthsCovered,
				Got:      len(in.SelectedMonths),
				Reason:   my.String() + " already has a payment recorded",
			}
		}
		if seen[my] {
			return nil, &SelectionMismatchError{
				Expected: monthsCovered,
				Got:      len(in.SelectedMonths),
				Reason:   my.String() + " selected twice",
			}
		}
		seen[my] = true
	}

	out := &AdvancePayOutput{GroupID: uuid.NewString()}
	for _, my := range in.SelectedMonths {
		out.Payments = append(out.Payments, MonthlyPayment{
			ID:              uuid.NewString(),
			MemberID:        in.MemberID,
			Month:           my.Month,
			Year:            my.Year,
			Amount:          in.MonthlyFee,
			PaidAt:          in.PaymentDate,
			PaymentType:     PaymentAdelantado,
			ReceiptURL:      in.ReceiptURL,
			QuickPayGroupID: out.GroupID,
		})
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func existingMonthSet(memberID string, payments []MonthlyPayment) map[fiscal.MonthYear]bool {
	set := make(map[fiscal.MonthYear]bool)
	for _, p := range payments {
		if p.MemberID != memberID {
			continue
		}
		set[fiscal.MonthYear{Month: p.Month, Year: p.Year}] = true
	}
	return set
}

// pendingFiscalMonths lists the fiscal-year months with no payment row at
// all, in fiscal order. Row existence is what counts here: even a zero or
// partial row pins its month against batch allocation.
func pendingFiscalMonths(memberID string, payments []MonthlyPayment, ref time.Time) []fiscal.MonthYear {
	info := fiscal.YearInfo(ref)
	taken := existingMonthSet(memberID, payments)

	var pending []fiscal.MonthYear
	for _, my := range fiscal.Months(info.FiscalYear) {
		if !taken[my] {
			pending = append(pending, my)
		}
	}
	return pending
}
