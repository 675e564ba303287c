/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Monetary values cross the wire as decimal strings ("50.00"), never JSON
  numbers. Handlers parse them with shopspring/decimal; a float never
  enters the system.

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through the shared validator before any domain call.

SEE ALSO:
  - handlers.go: Uses these types
  - treasury/types.go: The domain model these map onto
*/
package api

import (
	"time"

	"github.com/logia/treasury-engine/cache"
	"github.com/logia/treasury-engine/report"
	"github.com/logia/treasury-engine/treasury"
)

// =============================================================================
// MEMBERS
// =============================================================================

// MemberDTO represents a member in API responses.
type MemberDTO struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	Status         string `json:"status"`
	Degree         string `json:"degree"`
	DegreeLabel    string `json:"degree_label"`
	TreasuryAmount string `json:"treasury_amount,omitempty"`
	CargoLogial    string `json:"cargo_logial,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"`
	JoinDate       string `json:"join_date,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// SaveMemberRequest creates or updates a member.
type SaveMemberRequest struct {
	FullName       string `json:"full_name" validate:"required"`
	Status         string `json:"status" validate:"omitempty,oneof=activo inactivo"`
	Degree         string `json:"degree" validate:"omitempty,oneof=aprendiz companero maestro"`
	TreasuryAmount string `json:"treasury_amount" validate:"omitempty"`
	CargoLogial    string `json:"cargo_logial"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone"`
	BirthDate      string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	JoinDate       string `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
}

// =============================================================================
// DUES
// =============================================================================

// MonthlyPaymentDTO represents one dues row.
type MonthlyPaymentDTO struct {
	ID              string `json:"id"`
	MemberID        string `json:"member_id"`
	Month           int    `json:"month"`
	Year            int    `json:"year"`
	Amount          string `json:"amount"`
	PaidAt          string `json:"paid_at"`
	PaymentType     string `json:"payment_type"`
	ReceiptURL      string `json:"receipt_url,omitempty"`
	QuickPayGroupID string `json:"quick_pay_group_id,omitempty"`
}

// SavePaymentRequest records or updates a single dues row.
type SavePaymentRequest struct {
	MemberID    string `json:"member_id" validate:"required"`
	Month       int    `json:"month" validate:"required,min=1,max=12"`
	Year        int    `json:"year" validate:"required,min=2000"`
	Amount      string `json:"amount" validate:"required"`
	PaidAt      string `json:"paid_at" validate:"required,datetime=2006-01-02"`
	PaymentType string `json:"payment_type" validate:"omitempty,oneof=regular adelantado pronto_pago pronto_pago_benefit"`
	ReceiptURL  string `json:"receipt_url"`
}

// QuickPayRequest pays every pending month of the fiscal year in one batch.
type QuickPayRequest struct {
	MemberID       string `json:"member_id" validate:"required"`
	AmountPerMonth string `json:"amount_per_month" validate:"required"`
	PaymentDate    string `json:"payment_date" validate:"required,datetime=2006-01-02"`
	ReceiptURL     string `json:"receipt_url"`
}

// QuickPayResponse describes the allocated batch.
type QuickPayResponse struct {
	GroupID    string              `json:"group_id"`
	Payments   []MonthlyPaymentDTO `json:"payments"`
	PaidMonths []MonthRefDTO       `json:"paid_months"`
	FreeMonth  *MonthRefDTO        `json:"free_month,omitempty"`
}

// AdvancePayRequest pays an exact multiple of the fee onto chosen months.
type AdvancePayRequest struct {
	MemberID       string        `json:"member_id" validate:"required"`
	TotalAmount    string        `json:"total_amount" validate:"required"`
	SelectedMonths []MonthRefDTO `json:"selected_months" validate:"required,min=1,dive"`
	PaymentDate    string        `json:"payment_date" validate:"required,datetime=2006-01-02"`
	ReceiptURL     string        `json:"receipt_url"`
}

// MonthRefDTO names one covered month.
type MonthRefDTO struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=2000"`
}

// ArrearsDTO is a member's dues position for the current fiscal year.
type ArrearsDTO struct {
	MemberID        string            `json:"member_id"`
	FiscalYear      int               `json:"fiscal_year"`
	FiscalYearLabel string            `json:"fiscal_year_label"`
	EffectiveFee    string            `json:"effective_fee"`
	PendingMonths   []PendingMonthDTO `json:"pending_months"`
	TotalOwed       string            `json:"total_owed"`
	PendingExtra    []PendingFeeDTO   `json:"pending_extraordinary"`
	GrandTotal      string            `json:"grand_total"`
	ReminderLink    string            `json:"reminder_link,omitempty"`
}

// PendingMonthDTO is one unpaid or partially paid month.
type PendingMonthDTO struct {
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	MonthName  string `json:"month_name"`
	FullAmount string `json:"full_amount"`
	AmountPaid string `json:"amount_paid"`
	Owed       string `json:"owed"`
}

// PendingFeeDTO is one extraordinary fee with an outstanding balance.
type PendingFeeDTO struct {
	FeeID      string `json:"fee_id"`
	FeeName    string `json:"fee_name"`
	FullAmount string `json:"full_amount"`
	AmountPaid string `json:"amount_paid"`
	Pending    string `json:"pending"`
}

// =============================================================================
// EXPENSES, FEES, DEGREE FEES
// =============================================================================

// ExpenseDTO represents one expense.
type ExpenseDTO struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category,omitempty"`
	ExpenseDate string `json:"expense_date"`
	Notes       string `json:"notes,omitempty"`
	ReceiptURL  string `json:"receipt_url,omitempty"`
}

// SaveExpenseRequest creates or updates an expense.
type SaveExpenseRequest struct {
	Description string `json:"description" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Category    string `json:"category"`
	ExpenseDate string `json:"expense_date" validate:"required,datetime=2006-01-02"`
	Notes       string `json:"notes"`
	ReceiptURL  string `json:"receipt_url"`
}

// ExtraordinaryFeeDTO represents one extraordinary fee.
type ExtraordinaryFeeDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	AmountPerMember string `json:"amount_per_member"`
	DueDate         string `json:"due_date,omitempty"`
	IsMandatory     bool   `json:"is_mandatory"`
}

// SaveExtraordinaryFeeRequest creates or updates an extraordinary fee.
type SaveExtraordinaryFeeRequest struct {
	Name            string `json:"name" validate:"required"`
	Description     string `json:"description"`
	AmountPerMember string `json:"amount_per_member" validate:"required"`
	DueDate         string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	IsMandatory     *bool  `json:"is_mandatory"`
}

// ExtraordinaryPaymentDTO represents one installment.
type ExtraordinaryPaymentDTO struct {
	ID                 string `json:"id"`
	ExtraordinaryFeeID string `json:"extraordinary_fee_id"`
	MemberID           string `json:"member_id"`
	AmountPaid         string `json:"amount_paid"`
	PaymentDate        string `json:"payment_date,omitempty"`
	ReceiptURL         string `json:"receipt_url,omitempty"`
}

// SaveExtraordinaryPaymentRequest records an installment against a fee.
type SaveExtraordinaryPaymentRequest struct {
	ExtraordinaryFeeID string `json:"extraordinary_fee_id" validate:"required"`
	MemberID           string `json:"member_id" validate:"required"`
	AmountPaid         string `json:"amount_paid" validate:"required"`
	PaymentDate        string `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	ReceiptURL         string `json:"receipt_url"`
}

// DegreeFeeDTO represents one degree-advancement income record.
type DegreeFeeDTO struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	FeeDate     string `json:"fee_date,omitempty"`
	Notes       string `json:"notes,omitempty"`
	ReceiptURL  string `json:"receipt_url,omitempty"`
}

// SaveDegreeFeeRequest creates or updates a degree fee record.
type SaveDegreeFeeRequest struct {
	Description string `json:"description" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Category    string `json:"category" validate:"required,oneof=iniciacion aumento_salario exaltacion afiliacion_plancha"`
	FeeDate     string `json:"fee_date" validate:"omitempty,datetime=2006-01-02"`
	Notes       string `json:"notes"`
	ReceiptURL  string `json:"receipt_url"`
}

// =============================================================================
// SETTINGS, SUMMARY, REPORTS
// =============================================================================

// SettingsDTO represents the configuration singleton.
type SettingsDTO struct {
	ID                    string `json:"id"`
	InstitutionName       string `json:"institution_name"`
	MonthlyFeeBase        string `json:"monthly_fee_base"`
	MonthlyReportTemplate string `json:"monthly_report_template,omitempty"`
	AnnualReportTemplate  string `json:"annual_report_template,omitempty"`
	LogoURL               string `json:"logo_url,omitempty"`
	TreasurerID           string `json:"treasurer_id,omitempty"`
	TreasurerSignatureURL string `json:"treasurer_signature_url,omitempty"`
	VMSignatureURL        string `json:"vm_signature_url,omitempty"`
}

// UpdateSettingsRequest rewrites the configuration. ID must match the
// currently persisted row; a mismatch means the client holds a stale copy.
type UpdateSettingsRequest struct {
	ID                    string `json:"id"`
	InstitutionName       string `json:"institution_name" validate:"required"`
	MonthlyFeeBase        string `json:"monthly_fee_base" validate:"required"`
	MonthlyReportTemplate string `json:"monthly_report_template"`
	AnnualReportTemplate  string `json:"annual_report_template"`
	LogoURL               string `json:"logo_url"`
	TreasurerID           string `json:"treasurer_id"`
	TreasurerSignatureURL string `json:"treasurer_signature_url"`
	VMSignatureURL        string `json:"vm_signature_url"`
}

// SummaryDTO is the dashboard aggregate.
type SummaryDTO struct {
	TotalIncome              string `json:"total_income"`
	TotalExtraordinaryIncome string `json:"total_extraordinary_income"`
	TotalDegreeFeeIncome     string `json:"total_degree_fee_income"`
	TotalExpenses            string `json:"total_expenses"`
	Balance                  string `json:"balance"`
	MemberCount              int    `json:"member_count"`
	PaidPaymentsCount        int    `json:"paid_payments_count"`
	LastUpdated              string `json:"last_updated"`
}

// BirthdayDTO is one member celebrating today, with the greeting link.
type BirthdayDTO struct {
	MemberID     string `json:"member_id"`
	FullName     string `json:"full_name"`
	BirthDate    string `json:"birth_date"`
	WhatsAppLink string `json:"whatsapp_link,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toMemberDTO(m treasury.Member) MemberDTO {
	dto := MemberDTO{
		ID:          m.ID,
		FullName:    m.FullName,
		Status:      string(m.Status),
		Degree:      string(m.Degree),
		DegreeLabel: treasury.DegreeLabel(m.Degree),
		CargoLogial: string(m.CargoLogial),
		Email:       m.Email,
		Phone:       m.Phone,
		BirthDate:   m.BirthDate,
		JoinDate:    m.JoinDate,
	}
	if m.TreasuryAmount != nil {
		dto.TreasuryAmount = m.TreasuryAmount.String()
	}
	if !m.CreatedAt.IsZero() {
		dto.CreatedAt = m.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toPaymentDTO(p treasury.MonthlyPayment) MonthlyPaymentDTO {
	return MonthlyPaymentDTO{
		ID:              p.ID,
		MemberID:        p.MemberID,
		Month:           p.Month,
		Year:            p.Year,
		Amount:          p.Amount.String(),
		PaidAt:          p.PaidAt,
		PaymentType:     string(p.PaymentType),
		ReceiptURL:      p.ReceiptURL,
		QuickPayGroupID: p.QuickPayGroupID,
	}
}

func toExpenseDTO(e treasury.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Category:    e.Category,
		ExpenseDate: e.ExpenseDate,
		Notes:       e.Notes,
		ReceiptURL:  e.ReceiptURL,
	}
}

func toExtraordinaryFeeDTO(f treasury.ExtraordinaryFee) ExtraordinaryFeeDTO {
	return ExtraordinaryFeeDTO{
		ID:              f.ID,
		Name:            f.Name,
		Description:     f.Description,
		AmountPerMember: f.AmountPerMember.String(),
		DueDate:         f.DueDate,
		IsMandatory:     f.IsMandatory,
	}
}

func toExtraordinaryPaymentDTO(p treasury.ExtraordinaryPayment) ExtraordinaryPaymentDTO {
	return ExtraordinaryPaymentDTO{
		ID:                 p.ID,
		ExtraordinaryFeeID: p.ExtraordinaryFeeID,
		MemberID:           p.MemberID,
		AmountPaid:         p.AmountPaid.String(),
		PaymentDate:        p.PaymentDate,
		ReceiptURL:         p.ReceiptURL,
	}
}

func toDegreeFeeDTO(f treasury.DegreeFee) DegreeFeeDTO {
	return DegreeFeeDTO{
		ID:          f.ID,
		Description: f.Description,
		Amount:      f.Amount.String(),
		Category:    string(f.Category),
		FeeDate:     f.FeeDate,
		Notes:       f.Notes,
		ReceiptURL:  f.ReceiptURL,
	}
}

func toSettingsDTO(s treasury.Settings) SettingsDTO {
	return SettingsDTO{
		ID:                    s.ID,
		InstitutionName:       s.InstitutionName,
		MonthlyFeeBase:        s.MonthlyFeeBase.String(),
		MonthlyReportTemplate: s.MonthlyReportTemplate,
		AnnualReportTemplate:  s.AnnualReportTemplate,
		LogoURL:               s.LogoURL,
		TreasurerID:           s.TreasurerID,
		TreasurerSignatureURL: s.TreasurerSignatureURL,
		VMSignatureURL:        s.VMSignatureURL,
	}
}

func toSummaryDTO(snap cache.Snapshot) SummaryDTO {
	return SummaryDTO{
		TotalIncome:              snap.Summary.TotalIncome.StringFixed(2),
		TotalExtraordinaryIncome: snap.Summary.TotalExtraordinaryIncome.StringFixed(2),
		TotalDegreeFeeIncome:     snap.Summary.TotalDegreeFeeIncome.StringFixed(2),
		TotalExpenses:            snap.Summary.TotalExpenses.StringFixed(2),
		Balance:                  snap.Summary.Balance.StringFixed(2),
		MemberCount:              snap.Summary.MemberCount,
		PaidPaymentsCount:        snap.Summary.PaidPaymentsCount,
		LastUpdated:              snap.LastUpdated.Format(time.RFC3339),
	}
}

func toPendingMonthDTOs(months []treasury.PendingMonth) []PendingMonthDTO {
	out := make([]PendingMonthDTO, 0, len(months))
	for _, pm := range months {
		out = append(out, PendingMonthDTO{
			Month:      pm.Month,
			Year:       pm.Year,
			MonthName:  pm.MonthName,
			FullAmount: pm.FullAmount.StringFixed(2),
			AmountPaid: pm.AmountPaid.StringFixed(2),
			Owed:       pm.Owed().StringFixed(2),
		})
	}
	return out
}

func toPendingFeeDTOs(fees []treasury.PendingFee) []PendingFeeDTO {
	out := make([]PendingFeeDTO, 0, len(fees))
	for _, pf := range fees {
		out = append(out, PendingFeeDTO{
			FeeID:      pf.FeeID,
			FeeName:    pf.FeeName,
			FullAmount: pf.FullAmount.StringFixed(2),
			AmountPaid: pf.AmountPaid.StringFixed(2),
			Pending:    pf.Pending.StringFixed(2),
		})
	}
	return out
}

// ReceivableDTO is one member's outstanding position on the receivables
// report.
type ReceivableDTO struct {
	Member        MemberDTO         `json:"member"`
	PendingMonths []PendingMonthDTO `json:"pending_months"`
	PendingExtra  []PendingFeeDTO   `json:"pending_extraordinary"`
	TotalOwed     string            `json:"total_owed"`
	GrandTotal    string            `json:"grand_total"`
}

// =============================================================================
// REPORTS
// =============================================================================

// PeriodDTO is an inclusive date window.
type PeriodDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ReportTotalsDTO carries one period's income and expense totals.
type ReportTotalsDTO struct {
	DuesIncome          string `json:"dues_income"`
	ExtraordinaryIncome string `json:"extraordinary_income"`
	DegreeFeeIncome     string `json:"degree_fee_income"`
	TotalIncome         string `json:"total_income"`
	TotalExpenses       string `json:"total_expenses"`
	NetBalance          string `json:"net_balance"`
	PaymentsCount       int    `json:"payments_count"`
}

// MemberPaymentLineDTO is one member's dues activity inside the period.
type MemberPaymentLineDTO struct {
	Member    MemberDTO           `json:"member"`
	Payments  []MonthlyPaymentDTO `json:"payments"`
	TotalPaid string              `json:"total_paid"`
}

// CategoryTotalDTO is one expense category's period total.
type CategoryTotalDTO struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

// ExtraordinaryDetailDTO compares one fee's collection against expectation.
type ExtraordinaryDetailDTO struct {
	Fee        ExtraordinaryFeeDTO `json:"fee"`
	Expected   string              `json:"expected"`
	Collected  string              `json:"collected"`
	PayerCount int                 `json:"payer_count"`
}

// MonthlyReportDTO is the board report for one calendar month.
type MonthlyReportDTO struct {
	Period               PeriodDTO                `json:"period"`
	Totals               ReportTotalsDTO          `json:"totals"`
	MemberPayments       []MemberPaymentLineDTO   `json:"member_payments"`
	Debtors              []MemberDTO              `json:"debtors"`
	ExpensesByCategory   []CategoryTotalDTO       `json:"expenses_by_category"`
	Expenses             []ExpenseDTO             `json:"expenses"`
	ExtraordinaryDetails []ExtraordinaryDetailDTO `json:"extraordinary_details"`
}

// MonthRowDTO is one month's line of the annual breakdown.
type MonthRowDTO struct {
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Income    string `json:"income"`
	Expenses  string `json:"expenses"`
	Balance   string `json:"balance"`
}

// AnnualReportDTO is the calendar-year report with its monthly breakdown.
type AnnualReportDTO struct {
	Year   int             `json:"year"`
	Totals ReportTotalsDTO `json:"totals"`
	Months []MonthRowDTO   `json:"months"`
}

func toReportTotalsDTO(t report.Totals) ReportTotalsDTO {
	return ReportTotalsDTO{
		DuesIncome:          t.DuesIncome.StringFixed(2),
		ExtraordinaryIncome: t.ExtraordinaryIncome.StringFixed(2),
		DegreeFeeIncome:     t.DegreeFeeIncome.StringFixed(2),
		TotalIncome:         t.TotalIncome.StringFixed(2),
		TotalExpenses:       t.TotalExpenses.StringFixed(2),
		NetBalance:          t.NetBalance.StringFixed(2),
		PaymentsCount:       t.PaymentsCount,
	}
}

func toMonthlyReportDTO(rep report.MonthlyReport) MonthlyReportDTO {
	dto := MonthlyReportDTO{
		Period:               PeriodDTO{From: rep.Period.From, To: rep.Period.To},
		Totals:               toReportTotalsDTO(rep.Totals),
		MemberPayments:       make([]MemberPaymentLineDTO, 0, len(rep.MemberPayments)),
		Debtors:              make([]MemberDTO, 0, len(rep.Debtors)),
		ExpensesByCategory:   make([]CategoryTotalDTO, 0, len(rep.ExpensesByCategory)),
		Expenses:             make([]ExpenseDTO, 0, len(rep.Expenses)),
		ExtraordinaryDetails: make([]ExtraordinaryDetailDTO, 0, len(rep.ExtraordinaryDetails)),
	}
	for _, line := range rep.MemberPayments {
		payments := make([]MonthlyPaymentDTO, 0, len(line.Payments))
		for _, p := range line.Payments {
			payments = append(payments, toPaymentDTO(p))
		}
		dto.MemberPayments = append(dto.MemberPayments, MemberPaymentLineDTO{
			Member:    toMemberDTO(line.Member),
			Payments:  payments,
			TotalPaid: line.TotalPaid.StringFixed(2),
		})
	}
	for _, m := range rep.Debtors {
		dto.Debtors = append(dto.Debtors, toMemberDTO(m))
	}
	for _, ct := range rep.ExpensesByCategory {
		dto.ExpensesByCategory = append(dto.ExpensesByCategory, CategoryTotalDTO{
			Category: ct.Category,
			Total:    ct.Total.StringFixed(2),
		})
	}
	for _, e := range rep.Expenses {
		dto.Expenses = append(dto.Expenses, toExpenseDTO(e))
	}
	for _, d := range rep.ExtraordinaryDetails {
		dto.ExtraordinaryDetails = append(dto.ExtraordinaryDetails, ExtraordinaryDetailDTO{
			Fee:        toExtraordinaryFeeDTO(d.Fee),
			Expected:   d.Expected.StringFixed(2),
			Collected:  d.Collected.StringFixed(2),
			PayerCount: d.PayerCount,
		})
	}
	return dto
}

func toAnnualReportDTO(rep report.AnnualReport) AnnualReportDTO {
	dto := AnnualReportDTO{
		Year:   rep.Year,
		Totals: toReportTotalsDTO(rep.Totals),
		Months: make([]MonthRowDTO, 0, len(rep.Months)),
	}
	for _, row := range rep.Months {
		dto.Months = append(dto.Months, MonthRowDTO{
			Month:     row.Month,
			MonthName: row.MonthName,
			Income:    row.Income.StringFixed(2),
			Expenses:  row.Expenses.StringFixed(2),
			Balance:   row.Balance.StringFixed(2),
		})
	}
	return dto
}

func toReceivableDTOs(debts []report.MemberDebt) []ReceivableDTO {
	out := make([]ReceivableDTO, 0, len(debts))
	for _, d := range debts {
		out = append(out, ReceivableDTO{
			Member:        toMemberDTO(d.Member),
			PendingMonths: toPendingMonthDTOs(d.Arrears.PendingMonths),
			PendingExtra:  toPendingFeeDTOs(d.PendingExtraordinary),
			TotalOwed:     d.Arrears.TotalOwed.StringFixed(2),
			GrandTotal:    d.GrandTotal.StringFixed(2),
		})
	}
	return out
}
