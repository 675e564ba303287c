package treasury

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// EXTRAORDINARY FEE LEDGER - one-off per-member balances
// =============================================================================

// PendingFee is an extraordinary fee a member has not fully settled.
type PendingFee struct {
	FeeID      string
	FeeName    string
	FullAmount decimal.Decimal
	AmountPaid decimal.Decimal
	Pending    decimal.Decimal
}

// ComputePendingExtraordinary returns the fees the member still owes on,
// filtered to pending > 0, in the order the fees are given.
//
// A member may hold several partial payment rows for the same fee; they are
// summed. Overpayment settles the fee (pending never goes negative into the
// result, the fee is simply excluded).
func ComputePendingExtraordinary(member Member, fees []ExtraordinaryFee, payments []ExtraordinaryPayment) []PendingFee {
	paid := make(map[string]decimal.Decimal, len(fees))
	for _, p := range payments {
		if p.MemberID != member.ID {
			continue
		}
		paid[p.ExtraordinaryFeeID] = paid[p.ExtraordinaryFeeID].Add(p.AmountPaid)
	}

	var pending []PendingFee
	for _, fee := range fees {
		amountPaid := paid[fee.ID]
		remaining := fee.AmountPerMember.Sub(amountPaid)
		if !remaining.IsPositive() {
			continue
		}
		pending = append(pending, PendingFee{
			FeeID:      fee.ID,
			FeeName:    fee.Name,
			FullAmount: fee.AmountPerMember,
			AmountPaid: amountPaid,
			Pending:    remaining,
		})
	}
	return pending
}

// TotalPending sums the outstanding balances of a pending-fee list.
func TotalPending(fees []PendingFee) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fees {
		total = total.Add(f.Pending)
	}
	return total
}

// GrandTotal is a member's combined debt: dues arrears plus extraordinary
// balances.
func GrandTotal(a Arrears, pending []PendingFee) decimal.Decimal {
	return a.TotalOwed.Add(TotalPending(pending))
}
