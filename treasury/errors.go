/*
errors.go - Error taxonomy for the treasury domain

All domain error types in one place. The api layer maps these onto HTTP
statuses; nothing below this package needs to inspect error text.

CATEGORIES:
  1. Validation errors - malformed or missing input, rejected before any row
     is produced
  2. Allocation errors - quick-pay / advance-pay business-rule failures,
     always recoverable by the operator
  3. Store / config errors - persistence and settings-resolution failures
*/
package treasury

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - use with errors.Is()
// =============================================================================

var (
	// ErrNoPendingMonths is returned by quick-pay when every month of the
	// fiscal year already has a payment row. A no-op notice, not a crash.
	ErrNoPendingMonths = errors.New("no pending months in the fiscal year")

	// ErrStoreFailed categorizes any persistence failure surfaced to callers.
	// The cache stays in its last-known-good state; no automatic retry.
	ErrStoreFailed = errors.New("store operation failed")

	// ErrStaleConfig is returned when the settings row has not resolved to a
	// persisted identifier yet. Callers refresh and retry once before
	// surfacing it.
	ErrStaleConfig = errors.New("settings not yet resolved to a persisted row")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError rejects malformed input before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotExactMultipleError reports an advance-pay total that does not evenly
// divide the monthly fee. Remainder is computed to cent precision; the two
// nearest valid totals are derivable for the operator.
type NotExactMultipleError struct {
	TotalAmount   decimal.Decimal
	MonthlyFee    decimal.Decimal
	Remainder     decimal.Decimal
	MonthsCovered int
}

func (e *NotExactMultipleError) Error() string {
	lower, upper := e.SuggestedTotals()
	return fmt.Sprintf("amount %s is not an exact multiple of the monthly fee %s (remainder %s); nearest valid totals are %s (%d months) or %s (%d months)",
		e.TotalAmount, e.MonthlyFee, e.Remainder, lower, e.MonthsCovered, upper, e.MonthsCovered+1)
}

// SuggestedTotals returns the two nearest valid amounts: monthsCovered×fee
// and (monthsCovered+1)×fee.
func (e *NotExactMultipleError) SuggestedTotals() (lower, upper decimal.Decimal) {
	lower = e.MonthlyFee.Mul(decimal.NewFromInt(int64(e.MonthsCovered)))
	upper = e.MonthlyFee.Mul(decimal.NewFromInt(int64(e.MonthsCovered + 1)))
	return lower, upper
}

// SelectionMismatchError rejects an advance-pay month selection that does not
// match the validated amount: wrong count, an already-paid month, or a month
// outside the target fiscal year.
type SelectionMismatchError struct {
	Expected int
	Got      int
	Reason   string
}

func (e *SelectionMismatchError) Error() string {
	return fmt.Sprintf("month selection mismatch: expected %d months, got %d (%s)", e.Expected, e.Got, e.Reason)
}

// =============================================================================
// HELPERS
// =============================================================================

// IsClientError reports whether the error is the operator's to fix rather
// than a system fault.
func IsClientError(err error) bool {
	var ve *ValidationError
	var ne *NotExactMultipleError
	var se *SelectionMismatchError
	return errors.As(err, &ve) ||
		errors.As(err, &ne) ||
		errors.As(err, &se) ||
		errors.Is(err, ErrNoPendingMonths)
}
