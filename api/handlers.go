/*
handlers.go - HTTP API handlers for the lodge treasury

PURPOSE:
  Exposes the treasury engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Members:
    GET    /api/members                   List members
    POST   /api/members                   Create member
    PUT    /api/members/{id}              Update member
    DELETE /api/members/{id}              Delete member (admin)
    GET    /api/members/{id}/arrears      Dues and extraordinary position

  Payments:
    GET    /api/payments                  List dues rows
    POST   /api/payments                  Record one dues row
    PUT    /api/payments/{id}             Update a dues row
    DELETE /api/payments/{id}             Delete a dues row (admin)
    POST   /api/payments/quick-pay        Quick-pay batch
    POST   /api/payments/advance-pay      Advance-pay batch

  Ledgers:
    /api/expenses, /api/extraordinary-fees, /api/extraordinary-payments,
    /api/degree-fees follow the same list/create/delete shape.

  Configuration and reads:
    GET/PUT /api/settings                 Settings singleton
    GET     /api/summary                  Dashboard aggregate
    GET     /api/reports/monthly          Monthly report
    GET     /api/reports/annual           Annual report
    GET     /api/reports/receivables      Outstanding balances
    GET     /api/birthdays                Today's birthdays with wa.me links
    POST    /api/refresh                  Force a cache refresh

WRITE FLOW:
  1. Decode and validate the request body
  2. Persist through the store
  3. Patch the injected cache (point mutation, no refetch)
  4. Serialize the response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, bad month selections
  - 404: Record not found
  - 409: Duplicate month, nothing pending, stale settings
  - 422: Amount not an exact multiple of the fee
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/logia/treasury-engine/cache"
	"github.com/logia/treasury-engine/fiscal"
	"github.com/logia/treasury-engine/notify"
	"github.com/logia/treasury-engine/report"
	"github.com/logia/treasury-engine/store/sqlite"
	"github.com/logia/treasury-engine/treasury"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Cache *cache.Cache

	validate *validator.Validate
	now      func() time.Time

	currentScenario string
}

// NewHandler wires a handler around the store and the injected cache.
func NewHandler(store *sqlite.Store, c *cache.Cache) *Handler {
	return &Handler{
		Store:    store,
		Cache:    c,
		validate: validator.New(),
		now:      time.Now,
	}
}

// =============================================================================
// MEMBERS
// =============================================================================

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	snap := h.Cache.Snapshot()
	dtos := make([]MemberDTO, 0, len(snap.Members))
	for _, m := range snap.Members {
		dtos = append(dtos, toMemberDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req SaveMemberRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, ok := h.memberFromRequest(w, req)
	if !ok {
		return
	}
	m.ID = uuid.NewString()
	m.CreatedAt = h.now()

	if err := h.Store.SaveMember(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create member", err)
		return
	}
	h.Cache.UpsertMember(m)
	writeJSON(w, http.StatusCreated, toMemberDTO(m))
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.Store.GetMember(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req SaveMemberRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, ok := h.memberFromRequest(w, req)
	if !ok {
		return
	}
	m.ID = existing.ID
	m.CreatedAt = existing.CreatedAt

	if err := h.Store.SaveMember(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update member", err)
		return
	}
	h.Cache.UpsertMember(m)
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteMember(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete member", err)
		return
	}
	h.Cache.DeleteMember(id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// GetMemberArrears returns the member's full outstanding position plus a
// pre-built WhatsApp reminder link when the member has a phone on file.
func (h *Handler) GetMemberArrears(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := h.Cache.Snapshot()

	var member *treasury.Member
	for i := range snap.Members {
		if snap.Members[i].ID == id {
			member = &snap.Members[i]
			break
		}
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "Member not found", nil)
		return
	}

	arrears := treasury.ComputeArrears(*member, snap.MonthlyPayments, h.Cache.MonthlyFee(), h.now())
	pending := treasury.ComputePendingExtraordinary(*member, snap.ExtraordinaryFees, snap.ExtraordinaryPayments)
	grand := treasury.GrandTotal(arrears, pending)

	dto := ArrearsDTO{
		MemberID:        member.ID,
		FiscalYear:      arrears.FiscalYear,
		FiscalYearLabel: arrears.FiscalYearLabel,
		EffectiveFee:    arrears.EffectiveFee.StringFixed(2),
		PendingMonths:   toPendingMonthDTOs(arrears.PendingMonths),
		TotalOwed:       arrears.TotalOwed.StringFixed(2),
		PendingExtra:    toPendingFeeDTOs(pending),
		GrandTotal:      grand.StringFixed(2),
	}
	if member.Phone != "" && len(arrears.PendingMonths) > 0 {
		msg := notify.DebtReminderMessage(member.FullName, h.Cache.InstitutionName(),
			arrears.PendingMonths, arrears.TotalOwed.StringFixed(2))
		dto.ReminderLink = notify.DeepLink(member.Phone, msg)
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) memberFromRequest(w http.ResponseWriter, req SaveMemberRequest) (treasury.Member, bool) {
	m := treasury.Member{
		FullName:    req.FullName,
		Status:      treasury.MemberStatus(req.Status),
		Degree:      treasury.Degree(req.Degree),
		CargoLogial: treasury.Office(req.CargoLogial),
		Email:       req.Email,
		Phone:       req.Phone,
		BirthDate:   req.BirthDate,
		JoinDate:    req.JoinDate,
	}
	if m.Status == "" {
		m.Status = treasury.StatusActivo
	}
	if m.Degree == "" {
		m.Degree = treasury.DegreeAprendiz
	}
	if req.TreasuryAmount != "" {
		amount, err := decimal.NewFromString(req.TreasuryAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid treasury_amount", err)
			return m, false
		}
		m.TreasuryAmount = &amount
	}
	return m, true
}

// =============================================================================
// DUES PAYMENTS
// =============================================================================

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	snap := h.Cache.Snapshot()
	dtos := make([]MonthlyPaymentDTO, 0, len(snap.MonthlyPayments))
	for _, p := range snap.MonthlyPayments {
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req SavePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	p := treasury.MonthlyPayment{
		ID:          uuid.NewString(),
		MemberID:    req.MemberID,
		Month:       req.Month,
		Year:        req.Year,
		Amount:      amount,
		PaidAt:      req.PaidAt,
		PaymentType: treasury.PaymentType(req.PaymentType),
		ReceiptURL:  req.ReceiptURL,
		CreatedAt:   h.now(),
	}
	if p.PaymentType == "" {
		p.PaymentType = treasury.PaymentRegular
	}

	if err := h.Store.SaveMonthlyPayment(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Cache.UpsertMonthlyPayment(p)
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SavePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	// The stored row is the base: member, month, year, and the batch group
	// are immutable keys, only the payment detail fields are editable. The
	// cache row must be built from the same merged value the store keeps.
	stored, err := h.Store.GetMonthlyPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.MemberID != stored.MemberID || req.Month != stored.Month || req.Year != stored.Year {
		writeError(w, http.StatusBadRequest,
			"member_id, month, and year cannot change; delete the row and record a new one", nil)
		return
	}

	p := *stored
	p.Amount = amount
	p.PaidAt = req.PaidAt
	p.PaymentType = treasury.PaymentType(req.PaymentType)
	p.ReceiptURL = req.ReceiptURL
	if p.PaymentType == "" {
		p.PaymentType = treasury.PaymentRegular
	}

	if err := h.Store.UpdateMonthlyPayment(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update payment", err)
		return
	}
	h.Cache.UpsertMonthlyPayment(p)
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteMonthlyPayment(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete payment", err)
		return
	}
	h.Cache.DeleteMonthlyPayment(id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// QuickPay allocates and persists a quick-pay batch in one atomic write.
func (h *Handler) QuickPay(w http.ResponseWriter, r *http.Request) {
	var req QuickPayRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.AmountPerMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount_per_month", err)
		return
	}

	snap := h.Cache.Snapshot()
	out, err := treasury.AllocateQuickPay(treasury.QuickPayInput{
		MemberID:       req.MemberID,
		Existing:       snap.MonthlyPayments,
		AmountPerMonth: amount,
		PaymentDate:    req.PaymentDate,
		ReceiptURL:     req.ReceiptURL,
		Reference:      h.now(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.InsertMonthlyPayments(r.Context(), out.Payments); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Cache.AddMonthlyPayments(out.Payments)

	resp := QuickPayResponse{GroupID: out.GroupID}
	for _, p := range out.Payments {
		resp.Payments = append(resp.Payments, toPaymentDTO(p))
	}
	for _, my := range out.PaidMonths {
		resp.PaidMonths = append(resp.PaidMonths, MonthRefDTO{Month: my.Month, Year: my.Year})
	}
	if out.FreeMonth != nil {
		resp.FreeMonth = &MonthRefDTO{Month: out.FreeMonth.Month, Year: out.FreeMonth.Year}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// AdvancePay allocates and persists an advance-pay batch.
func (h *Handler) AdvancePay(w http.ResponseWriter, r *http.Request) {
	var req AdvancePayRequest
	if !h.decode(w, r, &req) {
		return
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid total_amount", err)
		return
	}

	snap := h.Cache.Snapshot()
	var member *treasury.Member
	for i := range snap.Members {
		if snap.Members[i].ID == req.MemberID {
			member = &snap.Members[i]
			break
		}
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "Member not found", nil)
		return
	}

	months := make([]fiscal.MonthYear, 0, len(req.SelectedMonths))
	for _, m := range req.SelectedMonths {
		months = append(months, fiscal.MonthYear{Month: m.Month, Year: m.Year})
	}

	out, err := treasury.AllocateAdvancePay(treasury.AdvancePayInput{
		MemberID:       req.MemberID,
		Existing:       snap.MonthlyPayments,
		MonthlyFee:     member.EffectiveFee(h.Cache.MonthlyFee()),
		TotalAmount:    total,
		SelectedMonths: months,
		PaymentDate:    req.PaymentDate,
		ReceiptURL:     req.ReceiptURL,
		Reference:      h.now(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.InsertMonthlyPayments(r.Context(), out.Payments); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Cache.AddMonthlyPayments(out.Payments)

	dtos := make([]MonthlyPaymentDTO, 0, len(out.Payments))
	for _, p := range out.Payments {
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"group_id": out.GroupID,
		"payments": dtos,
	})
}

// =============================================================================
// EXPENSES
// =============================================================================

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	snap := h.Cache.Snapshot()
	dtos := make([]ExpenseDTO, 0, len(snap.Expenses))
	for _, e := range snap.Expenses {
		dtos = append(dtos, toExpenseDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	h.saveExpense(w, r, uuid.NewString(), http.StatusCreated)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	h.saveExpense(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handler) saveExpense(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req SaveExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	e := treasury.Expense{
		ID:          id,
		Description: req.Description,
		Amount:      amount,
		Category:    req.Category,
		ExpenseDate: req.ExpenseDate,
		Notes:       req.Notes,
		ReceiptURL:  req.ReceiptURL,
		CreatedAt:   h.now(),
	}
	if err := h.Store.SaveExpense(r.Context(), e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save expense", err)
		return
	}
	h.Cache.UpsertExpense(e)
	writeJSON(w, status, toExpenseDTO(e))
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete expense", err)
		return
	}
	h.Cache.DeleteExpense(id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// =============================================================================
// EXTRAORDINARY FEES AND PAYMENTS
// =============================================================================

func (h *Handler) ListExtraordinaryFees(w http.ResponseWriter, r *http.Request) {
	snap := h.Cache.Snapshot()
	dtos := make([]ExtraordinaryFeeDTO, 0, len(snap.ExtraordinaryFees))
	for _, f := range snap.ExtraordinaryFees {
		dtos = append(dtos, toExtraordinaryFeeDTO(f))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateExtraordinaryFee(w http.ResponseWriter, r *http.Request) {
	var req SaveExtraordinaryFeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.AmountPerMember)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount_per_member", err)
		return
	}
	f := treasury.ExtraordinaryFee{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Description:     req.Description,
		AmountPerMember: amount,
		DueDate:         req.DueDate,
		IsMandatory:     req.IsMandatory == nil || *req.IsMandatory,
		CreatedAt:       h.now(),
	}
	if err := h.Store.SaveExtraordinaryFee(r.Context(), f); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save extraordinary fee", err)
		return
	}
	h.Cache.UpsertExtraordinaryFee(f)
	writeJSON(w, http.StatusCreated, toExtraordinaryFeeDTO(f))
}

func (h *Handler) DeleteExtraordinaryFee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteExtraordinaryFee(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete extraordinary fee", err)
		return
	}
	h.Cache.DeleteExtraordinaryFee(id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) CreateExtraordinaryPayment(w http.ResponseWriter, r *http.Request) {
	var req SaveExtraordinaryPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.AmountPaid)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount_paid", err)
		return
	}
	p := treasury.ExtraordinaryPayment{
		ID:                 uuid.NewString(),
		ExtraordinaryFeeID: req.ExtraordinaryFeeID,
		MemberID:           req.MemberID,
		AmountPaid:         amount,
		PaymentDate:        req.PaymentDate,
		ReceiptURL:         req.ReceiptURL,
		CreatedAt:          h.now(),
	}
	if err := h.Store.SaveExtraordinaryPayment(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save extraordinary payment", err)
		return
	}
	h.Cache.UpsertExtraordinaryPayment(p)
	writeJSON(w, http.StatusCreated, toExtraordinaryPaymentDTO(p))
}

func (h *Handler) DeleteExtraordinaryPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteExtraordinaryPayment(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete extraordinary payment", err)
		return
	}
	h.Cache.DeleteExtraordinaryPayment(id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// =============================================================================
// DEGREE FEES
// =============================================================================

func (h *Handler) ListDegreeFees(w http.ResponseWriter, r *http.Request) {
	snap := h.Cache.Snapshot()
	dtos := make([]DegreeFeeDTO, 0, len(snap.DegreeFees))
	for _, f := range snap.DegreeFees {
		dtos = append(dtos, toDegreeFeeDTO(f))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateDegreeFee(w http.ResponseWriter, r *http.Request) {
	var req SaveDegreeFeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	f := treasury.DegreeFee{
		ID:          uuid.NewString(),
		Description: req.Description,
		Amount:      amount,
		Category:    treasury.DegreeFeeCategory(req.Category),
		FeeDate:     req.FeeDate,
		Notes:       req.Notes,
		ReceiptURL:  req.ReceiptURL,
		CreatedAt:   h.now(),
	}
	if err := h.Store.SaveDegreeFee(r.Context(), f); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save degree fee", err)
		return
	}
	h.Cache.UpsertDegreeFee(f)
	writeJSON(w, http.StatusCreated, toDegreeFeeDTO(f))
}

func (h *Handler) DeleteDegreeFee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteDegreeFee(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete degree fee", err)
		return
	}
	h.Cache.DeleteDegreeFee(id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// =============================================================================
// SETTINGS
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.EnsureSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	h.Cache.SetSettings(cfg)
	writeJSON(w, http.StatusOK, toSettingsDTO(cfg))
}

// UpdateSettings commits a settings change in two phases: the client's copy
// must carry the persisted row's ID. On a missing or stale ID the handler
// re-resolves the row once and retries before giving up with a conflict.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}
	fee, err := decimal.NewFromString(req.MonthlyFeeBase)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid monthly_fee_base", err)
		return
	}

	cfg := treasury.Settings{
		ID:                    req.ID,
		InstitutionName:       req.InstitutionName,
		MonthlyFeeBase:        fee,
		MonthlyReportTemplate: req.MonthlyReportTemplate,
		AnnualReportTemplate:  req.AnnualReportTemplate,
		LogoURL:               req.LogoURL,
		TreasurerID:           req.TreasurerID,
		TreasurerSignatureURL: req.TreasurerSignatureURL,
		VMSignatureURL:        req.VMSignatureURL,
	}

	err = h.commitSettings(r, &cfg)
	if errors.Is(err, treasury.ErrStaleConfig) {
		// Refresh-and-retry once: re-resolve the persisted row ID.
		if err = h.commitSettings(r, &cfg); err != nil {
			writeDomainError(w, err)
			return
		}
	} else if err != nil {
		writeDomainError(w, err)
		return
	}

	h.Cache.SetSettings(cfg)
	writeJSON(w, http.StatusOK, toSettingsDTO(cfg))
}

func (h *Handler) commitSettings(r *http.Request, cfg *treasury.Settings) error {
	current, err := h.Store.EnsureSettings(r.Context())
	if err != nil {
		return fmt.Errorf("%w: %v", treasury.ErrStoreFailed, err)
	}
	if cfg.ID == "" {
		cfg.ID = current.ID
	}
	if cfg.ID != current.ID {
		cfg.ID = ""
		return treasury.ErrStaleConfig
	}
	return h.Store.SaveSettings(r.Context(), *cfg)
}

// =============================================================================
// SUMMARY, REPORTS, BIRTHDAYS
// =============================================================================

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSummaryDTO(h.Cache.Snapshot()))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Refresh failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(h.Cache.Snapshot()))
}

func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	month := queryInt(r, "month", int(now.Month()))
	year := queryInt(r, "year", now.Year())
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12", nil)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyReportDTO(report.Monthly(h.Cache.Snapshot(), month, year)))
}

func (h *Handler) AnnualReport(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year", h.now().Year())
	writeJSON(w, http.StatusOK, toAnnualReportDTO(report.Annual(h.Cache.Snapshot(), year)))
}

func (h *Handler) Receivables(w http.ResponseWriter, r *http.Request) {
	debts := report.Receivables(h.Cache.Snapshot(), h.Cache.MonthlyFee(), h.now())
	writeJSON(w, http.StatusOK, toReceivableDTOs(debts))
}

// Birthdays lists members celebrating on the given date (default today),
// each with a pre-filled greeting link.
func (h *Handler) Birthdays(w http.ResponseWriter, r *http.Request) {
	on := h.now()
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		on = parsed
	}

	snap := h.Cache.Snapshot()
	dtos := make([]BirthdayDTO, 0)
	for _, m := range notify.BirthdaysOn(snap.Members, on) {
		dto := BirthdayDTO{MemberID: m.ID, FullName: m.FullName, BirthDate: m.BirthDate}
		if m.Phone != "" {
			dto.WhatsAppLink = notify.DeepLink(m.Phone, notify.BirthdayMessage(m.FullName))
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates the request body, writing the error response
// itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) int {
	q := r.URL.Query().Get(key)
	if q == "" {
		return fallback
	}
	n, err := strconv.Atoi(q)
	if err != nil {
		return fallback
	}
	return n
}

// writeDomainError maps domain and store errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var notExact *treasury.NotExactMultipleError
	switch {
	case errors.As(err, &notExact):
		lower, upper := notExact.SuggestedTotals()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":            notExact.Error(),
			"remainder":        notExact.Remainder.StringFixed(2),
			"months_covered":   notExact.MonthsCovered,
			"suggested_totals": []string{lower.StringFixed(2), upper.StringFixed(2)},
		})
	case errors.Is(err, treasury.ErrNoPendingMonths):
		writeError(w, http.StatusConflict, "No pending months in the fiscal year", err)
	case errors.Is(err, sqlite.ErrDuplicateMonth):
		writeError(w, http.StatusConflict, "A payment already exists for that month", err)
	case errors.Is(err, treasury.ErrStaleConfig):
		writeError(w, http.StatusConflict, "Settings changed concurrently, reload and retry", err)
	case errors.Is(err, sqlite.ErrNotFound):
		writeError(w, http.StatusNotFound, "Record not found", err)
	case treasury.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
