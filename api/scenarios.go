/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	lodge data for testing and demos. Each scenario creates members,
	settings, dues rows, fees, and expenses that demonstrate specific
	features of the treasury.

AVAILABLE SCENARIOS:

	logia-nueva:    Fresh lodge, a few members, no payments yet
	medio-ano:      Mid fiscal year with partial dues and expenses
	cierre-ano:     Year end with arrears, a quick-pay batch, and an
	                extraordinary fee partially collected

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Bootstrap settings
 3. Create members
 4. Insert dues, expenses, fees, and fee payments
 5. Refresh the cache so the UI sees the new data

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "medio-ano"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: shared Handler, writeJSON/writeError helpers
  - store/sqlite/sqlite.go: Reset, EnsureSettings
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/logia/treasury-engine/fiscal"
	"github.com/logia/treasury-engine/treasury"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "logia-nueva",
		Name:        "Logia Nueva",
		Description: "Fresh lodge with a handful of members and no payments yet",
	},
	{
		ID:          "medio-ano",
		Name:        "Medio Año",
		Description: "Mid fiscal year: partial dues, expenses, and one advance payer",
	},
	{
		ID:          "cierre-ano",
		Name:        "Cierre de Año",
		Description: "Year end: arrears, a quick-pay batch, and an extraordinary fee",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if _, err := h.Store.EnsureSettings(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to bootstrap settings", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "logia-nueva":
		err = h.loadFreshLodgeScenario(ctx)
	case "medio-ano":
		err = h.loadMidYearScenario(ctx)
	case "cierre-ano":
		err = h.loadYearEndScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	if err := h.Cache.Refresh(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh cache", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFreshLodgeScenario(ctx context.Context) error {
	names := []struct {
		name   string
		degree treasury.Degree
		cargo  treasury.Office
	}{
		{"Carlos Mendoza Ruiz", treasury.DegreeMaestro, treasury.OfficeTesorero},
		{"Andrés Salazar Peña", treasury.DegreeMaestro, ""},
		{"Jorge Villacís Mora", treasury.DegreeCompanero, ""},
		{"Luis Cedeño Vera", treasury.DegreeAprendiz, ""},
	}
	for _, n := range names {
		if err := h.seedMember(ctx, n.name, n.degree, n.cargo); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadMidYearScenario(ctx context.Context) error {
	if err := h.loadFreshLodgeScenario(ctx); err != nil {
		return err
	}

	members, err := h.Store.ListMembers(ctx)
	if err != nil {
		return err
	}
	fee := treasury.DefaultSettings().MonthlyFeeBase
	info := fiscal.YearInfo(h.now())
	months := fiscal.Months(info.FiscalYear)

	// First member is current through month three; second paid month one only.
	for i, m := range months[:3] {
		p := h.seedDuesRow(members[0].ID, m, fee, treasury.PaymentRegular)
		p.PaidAt = monthDate(m, 5)
		if err := h.Store.SaveMonthlyPayment(ctx, p); err != nil {
			return err
		}
		if i == 0 {
			p2 := h.seedDuesRow(members[1].ID, m, fee, treasury.PaymentRegular)
			p2.PaidAt = monthDate(m, 12)
			if err := h.Store.SaveMonthlyPayment(ctx, p2); err != nil {
				return err
			}
		}
	}

	// Third member paid the whole first quarter in advance.
	groupID := uuid.NewString()
	paidAt := monthDate(months[0], 2)
	for _, m := range months[:3] {
		p := h.seedDuesRow(members[2].ID, m, fee, treasury.PaymentAdelantado)
		p.PaidAt = paidAt
		p.QuickPayGroupID = groupID
		if err := h.Store.SaveMonthlyPayment(ctx, p); err != nil {
			return err
		}
	}

	expenses := []treasury.Expense{
		{
			ID:          uuid.NewString(),
			Description: "Arriendo del templo",
			Amount:      decimal.NewFromInt(120),
			Category:    "local",
			ExpenseDate: monthDate(months[0], 10),
			CreatedAt:   h.now(),
		},
		{
			ID:          uuid.NewString(),
			Description: "Materiales de tenida",
			Amount:      decimal.NewFromInt(35),
			Category:    "ritual",
			ExpenseDate: monthDate(months[1], 18),
			CreatedAt:   h.now(),
		},
	}
	for _, e := range expenses {
		if err := h.Store.SaveExpense(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadYearEndScenario(ctx context.Context) error {
	if err := h.loadMidYearScenario(ctx); err != nil {
		return err
	}

	members, err := h.Store.ListMembers(ctx)
	if err != nil {
		return err
	}
	fee := treasury.DefaultSettings().MonthlyFeeBase
	info := fiscal.YearInfo(h.now())
	months := fiscal.Months(info.FiscalYear)

	// Fourth member settled the whole year as a discounted batch.
	groupID := uuid.NewString()
	paidAt := monthDate(months[0], 20)
	for i, m := range months {
		p := h.seedDuesRow(members[3].ID, m, fee, treasury.PaymentProntoPago)
		if i == len(months)-1 {
			p.Amount = decimal.Zero
			p.PaymentType = treasury.PaymentProntoPagoBenefit
		}
		p.PaidAt = paidAt
		p.QuickPayGroupID = groupID
		if err := h.Store.SaveMonthlyPayment(ctx, p); err != nil {
			return err
		}
	}

	extraFee := treasury.ExtraordinaryFee{
		ID:              uuid.NewString(),
		Name:            "Reparación del templo",
		Description:     "Cuota extraordinaria para reparar la cubierta",
		AmountPerMember: decimal.NewFromInt(100),
		DueDate:         monthDate(months[4], 1),
		IsMandatory:     true,
		CreatedAt:       h.now(),
	}
	if err := h.Store.SaveExtraordinaryFee(ctx, extraFee); err != nil {
		return err
	}

	// Two installments from the first member, one full payment from the fourth.
	extraPayments := []treasury.ExtraordinaryPayment{
		{ID: uuid.NewString(), ExtraordinaryFeeID: extraFee.ID, MemberID: members[0].ID, AmountPaid: decimal.NewFromInt(60), PaymentDate: monthDate(months[4], 8), CreatedAt: h.now()},
		{ID: uuid.NewString(), ExtraordinaryFeeID: extraFee.ID, MemberID: members[0].ID, AmountPaid: decimal.NewFromInt(40), PaymentDate: monthDate(months[5], 3), CreatedAt: h.now()},
		{ID: uuid.NewString(), ExtraordinaryFeeID: extraFee.ID, MemberID: members[3].ID, AmountPaid: decimal.NewFromInt(100), PaymentDate: monthDate(months[4], 8), CreatedAt: h.now()},
	}
	for _, p := range extraPayments {
		if err := h.Store.SaveExtraordinaryPayment(ctx, p); err != nil {
			return err
		}
	}

	degree := treasury.DegreeFee{
		ID:          uuid.NewString(),
		Description: "Exaltación H. Cedeño",
		Amount:      decimal.NewFromInt(80),
		Category:    treasury.DegreeFeeExaltacion,
		FeeDate:     monthDate(months[2], 15),
		CreatedAt:   h.now(),
	}
	return h.Store.SaveDegreeFee(ctx, degree)
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (h *Handler) seedMember(ctx context.Context, name string, degree treasury.Degree, cargo treasury.Office) error {
	return h.Store.SaveMember(ctx, treasury.Member{
		ID:          uuid.NewString(),
		FullName:    name,
		Status:      treasury.StatusActivo,
		Degree:      degree,
		CargoLogial: cargo,
		CreatedAt:   h.now(),
	})
}

func (h *Handler) seedDuesRow(memberID string, m fiscal.MonthYear, amount decimal.Decimal, paymentType treasury.PaymentType) treasury.MonthlyPayment {
	return treasury.MonthlyPayment{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		Month:       m.Month,
		Year:        m.Year,
		Amount:      amount,
		PaymentType: paymentType,
		CreatedAt:   h.now(),
	}
}

func monthDate(m fiscal.MonthYear, day int) string {
	return time.Date(m.Year, time.Month(m.Month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}
