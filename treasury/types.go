/*
Package treasury contains the domain model and the pure computations on it.

PURPOSE:
  Entities (members, monthly dues payments, extraordinary fees, expenses,
  degree fees, settings), the dues and extraordinary arrears ledgers, and
  the batch payment allocators. Everything here is pure computation over
  in-memory rows; persistence lives in store/sqlite and the read-side
  snapshot in cache.

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every monetary amount, never float64
  2. Row existence signals "addressed": a monthly_payments row for a
     (member, month, year) means that month is no longer fully owed,
     with the amount deciding partial vs full
  3. Derivation at the boundary: payment_type strings are mapped once
     into MonthStatus; downstream code never string-matches again

SEE ALSO:
  - dues.go: fiscal-year arrears computation
  - extraordinary.go: one-off fee balances
  - allocator.go: quick-pay and advance-pay batch allocation
  - errors.go: error taxonomy
*/
package treasury

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMS
// =============================================================================

type MemberStatus string

const (
	StatusActivo   MemberStatus = "activo"
	StatusInactivo MemberStatus = "inactivo"
)

type Degree string

const (
	DegreeAprendiz  Degree = "aprendiz"
	DegreeCompanero Degree = "companero"
	DegreeMaestro   Degree = "maestro"
)

// DegreeLabel returns the abbreviated form used on documents.
func DegreeLabel(d Degree) string {
	switch d {
	case DegreeAprendiz:
		return "Apr."
	case DegreeCompanero:
		return "Comp."
	case DegreeMaestro:
		return "M."
	default:
		return ""
	}
}

// Office is an optional lodge office held by a member ("cargo logial").
type Office string

const (
	OfficeTesorero         Office = "tesorero"
	OfficeVenerableMaestro Office = "venerable_maestro"
)

// PaymentType classifies how a monthly dues row came to exist.
type PaymentType string

const (
	// PaymentRegular is a single-month entry from the treasury grid.
	PaymentRegular PaymentType = "regular"

	// PaymentAdelantado is one month of an advance-pay batch.
	PaymentAdelantado PaymentType = "adelantado"

	// PaymentProntoPago is one paid month of a quick-pay batch.
	PaymentProntoPago PaymentType = "pronto_pago"

	// PaymentProntoPagoBenefit is the free month granted by a full-year
	// quick-pay. Zero monetary value; excluded from income totals but the
	// month counts as settled.
	PaymentProntoPagoBenefit PaymentType = "pronto_pago_benefit"
)

// DegreeFeeCategory classifies a degree-advancement charge.
type DegreeFeeCategory string

const (
	DegreeFeeIniciacion        DegreeFeeCategory = "iniciacion"
	DegreeFeeAumentoSalario    DegreeFeeCategory = "aumento_salario"
	DegreeFeeExaltacion        DegreeFeeCategory = "exaltacion"
	DegreeFeeAfiliacionPlancha DegreeFeeCategory = "afiliacion_plancha"
)

// =============================================================================
// ENTITIES
// =============================================================================

// Member is a lodge member. TreasuryAmount, when set and positive, overrides
// the organization-wide monthly fee for this member.
type Member struct {
	ID             string
	FullName       string
	Status         MemberStatus
	Degree         Degree
	TreasuryAmount *decimal.Decimal
	CargoLogial    Office
	Email          string
	Phone          string
	BirthDate      string // YYYY-MM-DD, optional
	JoinDate       string // YYYY-MM-DD, optional
	CreatedAt      time.Time
}

// EffectiveFee resolves the monthly fee this member owes: the per-member
// override when set and positive, the base fee otherwise.
func (m Member) EffectiveFee(base decimal.Decimal) decimal.Decimal {
	if m.TreasuryAmount != nil && m.TreasuryAmount.IsPositive() {
		return *m.TreasuryAmount
	}
	return base
}

// IsActive reports whether the member participates in dues tracking.
func (m Member) IsActive() bool { return m.Status == StatusActivo }

// MonthlyPayment is a dues row, unique per (MemberID, Month, Year).
// Existence of a row means the month is addressed; Amount against the
// member's fee decides whether anything is still owed.
type MonthlyPayment struct {
	ID              string
	MemberID        string
	Month           int // 1-12
	Year            int
	Amount          decimal.Decimal
	PaidAt          string // YYYY-MM-DD, optional
	PaymentType     PaymentType
	ReceiptURL      string
	QuickPayGroupID string // correlates the rows of one quick/advance batch
	CreatedAt       time.Time
}

// Expense is a flat outgoing transaction.
type Expense struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Category    string
	ExpenseDate string // YYYY-MM-DD
	Notes       string
	ReceiptURL  string
	CreatedAt   time.Time
}

// ExtraordinaryFee is a one-off per-member charge outside the dues cycle.
type ExtraordinaryFee struct {
	ID              string
	Name            string
	Description     string
	AmountPerMember decimal.Decimal
	DueDate         string // YYYY-MM-DD, optional
	IsMandatory     bool
	CreatedAt       time.Time
}

// ExtraordinaryPayment records a (possibly partial) payment of an
// extraordinary fee by one member. A member may have several rows for the
// same fee; balances sum across all of them.
type ExtraordinaryPayment struct {
	ID                 string
	ExtraordinaryFeeID string
	MemberID           string
	AmountPaid         decimal.Decimal
	PaymentDate        string // YYYY-MM-DD, optional
	ReceiptURL         string
	CreatedAt          time.Time
}

// DegreeFee is a degree-advancement charge record.
type DegreeFee struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Category    DegreeFeeCategory
	FeeDate     string // YYYY-MM-DD
	Notes       string
	ReceiptURL  string
	CreatedAt   time.Time
}

// Settings is the singleton configuration row. Exactly one row is expected
// to exist; the store creates it with defaults when absent.
type Settings struct {
	ID                    string
	InstitutionName       string
	MonthlyFeeBase        decimal.Decimal
	MonthlyReportTemplate string
	AnnualReportTemplate  string
	LogoURL               string
	TreasurerID           string
	TreasurerSignatureURL string
	VMSignatureURL        string
}

// DefaultSettings returns the values used to bootstrap a fresh database.
func DefaultSettings() Settings {
	return Settings{
		InstitutionName: "Logia",
		MonthlyFeeBase:  decimal.NewFromInt(50),
		MonthlyReportTemplate: "Este informe presenta el resumen financiero correspondiente al período indicado, " +
			"con datos reales registrados en el sistema de tesorería.",
		AnnualReportTemplate: "Este informe presenta el resumen financiero anual consolidado del período fiscal, " +
			"incluyendo el detalle de ingresos, egresos y balance general.",
	}
}

// =============================================================================
// MONTH STATUS - derived once at the ledger boundary
// =============================================================================

type MonthStatusKind int

const (
	MonthUnpaid MonthStatusKind = iota
	MonthPartiallyPaid
	MonthFullyPaid
	MonthPromotionalFree
)

// MonthStatus is the settled/owed state of one fiscal month for one member,
// derived from the payment row (or its absence) and the effective fee.
type MonthStatus struct {
	Kind MonthStatusKind
	Paid decimal.Decimal
}

// StatusOf classifies a payment row against the member's effective fee.
// A nil row is Unpaid. A benefit row is always PromotionalFree regardless of
// amount. A zero or sub-fee amount is PartiallyPaid (zero paid counts the
// same as no payment numerically, the row just pins the month's uniqueness).
func StatusOf(p *MonthlyPayment, fee decimal.Decimal) MonthStatus {
	if p == nil {
		return MonthStatus{Kind: MonthUnpaid, Paid: decimal.Zero}
	}
	if p.PaymentType == PaymentProntoPagoBenefit {
		return MonthStatus{Kind: MonthPromotionalFree, Paid: decimal.Zero}
	}
	if p.Amount.LessThan(fee) {
		return MonthStatus{Kind: MonthPartiallyPaid, Paid: p.Amount}
	}
	return MonthStatus{Kind: MonthFullyPaid, Paid: p.Amount}
}

// Settled reports whether nothing more is owed for the month.
func (s MonthStatus) Settled() bool {
	return s.Kind == MonthFullyPaid || s.Kind == MonthPromotionalFree
}

// Owed returns the remaining amount against the fee, clamped at zero.
func (s MonthStatus) Owed(fee decimal.Decimal) decimal.Decimal {
	if s.Settled() || !fee.IsPositive() {
		return decimal.Zero
	}
	owed := fee.Sub(s.Paid)
	if owed.IsNegative() {
		return decimal.Zero
	}
	return owed
}
