/*
handlers_test.go - HTTP tests over an in-memory store

End-to-end through the router: JSON in, JSON out, real SQLite (:memory:)
underneath, real cache in between.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logia/treasury-engine/api"
	"github.com/logia/treasury-engine/cache"
	"github.com/logia/treasury-engine/fiscal"
	"github.com/logia/treasury-engine/store/sqlite"
)

type testEnv struct {
	router http.Handler
	store  *sqlite.Store
	cache  *cache.Cache
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := cache.New(store)
	require.NoError(t, c.Refresh(context.Background()))

	h := api.NewHandler(store, c)
	return &testEnv{router: api.NewRouter(h), store: store, cache: c}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func createMember(t *testing.T, e *testEnv, name string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/members", map[string]any{"full_name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](t, rec)["id"].(string)
}

func TestCreateAndListMembers(t *testing.T) {
	e := newEnv(t)

	id := createMember(t, e, "Juan Pérez")
	assert.NotEmpty(t, id)

	rec := e.do(t, http.MethodGet, "/api/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode[[]map[string]any](t, rec)
	require.Len(t, members, 1)
	assert.Equal(t, "Juan Pérez", members[0]["full_name"])
	assert.Equal(t, "activo", members[0]["status"])
	assert.Equal(t, "aprendiz", members[0]["degree"])
}

func TestCreateMember_ValidationFailure(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/members", map[string]any{"full_name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/members", map[string]any{
		"full_name": "X", "status": "expulsado",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuickPay_FullYear(t *testing.T) {
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")

	rec := e.do(t, http.MethodPost, "/api/payments/quick-pay", map[string]any{
		"member_id":        id,
		"amount_per_month": "50",
		"payment_date":     "2025-09-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	payments := resp["payments"].([]any)
	assert.Len(t, payments, 12, "11 paid rows plus the free month")
	assert.NotNil(t, resp["free_month"])
	group := resp["group_id"].(string)
	for _, p := range payments {
		assert.Equal(t, group, p.(map[string]any)["quick_pay_group_id"])
	}

	// The batch is persisted and visible through the cache.
	listRec := e.do(t, http.MethodGet, "/api/payments", nil)
	assert.Len(t, decode[[]map[string]any](t, listRec), 12)

	// Running it again finds nothing pending.
	rec = e.do(t, http.MethodPost, "/api/payments/quick-pay", map[string]any{
		"member_id":        id,
		"amount_per_month": "50",
		"payment_date":     "2025-09-02",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdvancePay_NotExactMultiple(t *testing.T) {
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")

	rec := e.do(t, http.MethodPost, "/api/payments/advance-pay", map[string]any{
		"member_id":    id,
		"total_amount": "125",
		"selected_months": []map[string]int{
			{"month": 7, "year": 2025}, {"month": 8, "year": 2025},
		},
		"payment_date": "2025-09-01",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "25.00", resp["remainder"])
	assert.Equal(t, float64(2), resp["months_covered"])
	assert.Equal(t, []any{"100.00", "150.00"}, resp["suggested_totals"].([]any))
}

func TestAdvancePay_HappyPath(t *testing.T) {
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")

	// Pick three months of whatever fiscal year is current when the test runs.
	var selected []map[string]int
	for _, my := range fiscal.Months(fiscal.YearInfo(time.Now()).FiscalYear)[3:6] {
		selected = append(selected, map[string]int{"month": my.Month, "year": my.Year})
	}
	rec := e.do(t, http.MethodPost, "/api/payments/advance-pay", map[string]any{
		"member_id":       id,
		"total_amount":    "150",
		"selected_months": selected,
		"payment_date":    "2025-09-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	payments := resp["payments"].([]any)
	require.Len(t, payments, 3)
	for _, p := range payments {
		row := p.(map[string]any)
		assert.Equal(t, "adelantado", row["payment_type"])
		assert.Equal(t, "50", row["amount"])
	}
}

func TestCreatePayment_DuplicateMonthConflicts(t *testing.T) {
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")

	body := map[string]any{
		"member_id": id, "month": 7, "year": 2025,
		"amount": "50", "paid_at": "2025-07-10",
	}
	rec := e.do(t, http.MethodPost, "/api/payments", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/payments", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdatePayment_KeysAreImmutableAndCacheStaysConsistent(t *testing.T) {
	// GIVEN a recorded dues row for July
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")
	rec := e.do(t, http.MethodPost, "/api/payments", map[string]any{
		"member_id": id, "month": 7, "year": 2025,
		"amount": "50", "paid_at": "2025-07-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payID := decode[api.MonthlyPaymentDTO](t, rec).ID

	// WHEN an edit tries to move the row to August
	rec = e.do(t, http.MethodPut, "/api/payments/"+payID, map[string]any{
		"member_id": id, "month": 8, "year": 2025,
		"amount": "50", "paid_at": "2025-07-10",
	})

	// THEN the request is rejected and both store and cache still say July
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	cached := decode[[]api.MonthlyPaymentDTO](t, rec2json(t, e, "/api/payments"))
	require.Len(t, cached, 1)
	assert.Equal(t, 7, cached[0].Month)
	persisted, err := e.store.ListMonthlyPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, 7, persisted[0].Month)

	// AND an in-place edit of the detail fields goes through on both sides
	rec = e.do(t, http.MethodPut, "/api/payments/"+payID, map[string]any{
		"member_id": id, "month": 7, "year": 2025,
		"amount": "75", "paid_at": "2025-07-15",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cached = decode[[]api.MonthlyPaymentDTO](t, rec2json(t, e, "/api/payments"))
	require.Len(t, cached, 1)
	assert.Equal(t, "75", cached[0].Amount)
	assert.Equal(t, 7, cached[0].Month)

	// AND a ghost row is a 404
	rec = e.do(t, http.MethodPut, "/api/payments/ghost", map[string]any{
		"member_id": id, "month": 7, "year": 2025,
		"amount": "75", "paid_at": "2025-07-15",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePayment_PreservesQuickPayGroup(t *testing.T) {
	// GIVEN a discounted full-year batch
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")
	rec := e.do(t, http.MethodPost, "/api/payments/quick-pay", map[string]any{
		"member_id": id, "amount_per_month": "50", "payment_date": "2025-07-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows := decode[[]api.MonthlyPaymentDTO](t, rec2json(t, e, "/api/payments"))
	require.NotEmpty(t, rows)
	target := rows[0]
	require.NotEmpty(t, target.QuickPayGroupID)

	// WHEN one row of the batch is edited (the request cannot carry the group)
	rec = e.do(t, http.MethodPut, "/api/payments/"+target.ID, map[string]any{
		"member_id": id, "month": target.Month, "year": target.Year,
		"amount": "55", "paid_at": "2025-07-12",
		"payment_type": "pronto_pago",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN the cached row keeps its batch membership
	rows = decode[[]api.MonthlyPaymentDTO](t, rec2json(t, e, "/api/payments"))
	for _, row := range rows {
		if row.ID == target.ID {
			assert.Equal(t, "55", row.Amount)
			assert.Equal(t, target.QuickPayGroupID, row.QuickPayGroupID)
		}
	}
}

func TestDeleteRequiresAdminHeader(t *testing.T) {
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")

	rec := e.do(t, http.MethodDelete, "/api/members/"+id, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/members/"+id, nil, "X-Admin", "true")
	assert.Equal(t, http.StatusOK, rec.Code)

	list := e.do(t, http.MethodGet, "/api/members", nil)
	assert.Len(t, decode[[]map[string]any](t, list), 0)
}

func TestMemberArrearsEndpoint(t *testing.T) {
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")

	rec := e.do(t, http.MethodGet, fmt.Sprintf("/api/members/%s/arrears", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[map[string]any](t, rec)
	assert.Len(t, resp["pending_months"].([]any), 12)
	assert.Equal(t, "600.00", resp["total_owed"])
	assert.Equal(t, "50.00", resp["effective_fee"])

	rec = e.do(t, http.MethodGet, "/api/members/ghost/arrears", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsGetAndUpdate(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[map[string]any](t, rec)
	assert.Equal(t, "Logia", cfg["institution_name"])
	assert.Equal(t, "50", cfg["monthly_fee_base"])

	// Update without an ID resolves against the persisted row.
	rec = e.do(t, http.MethodPut, "/api/settings", map[string]any{
		"institution_name": "Logia Luz del Pacífico",
		"monthly_fee_base": "60",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/settings", nil)
	cfg = decode[map[string]any](t, rec)
	assert.Equal(t, "Logia Luz del Pacífico", cfg["institution_name"])
	assert.Equal(t, "60", cfg["monthly_fee_base"])
}

func TestSummaryReflectsWrites(t *testing.T) {
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")

	rec := e.do(t, http.MethodPost, "/api/payments", map[string]any{
		"member_id": id, "month": 7, "year": 2025,
		"amount": "50", "paid_at": "2025-07-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/expenses", map[string]any{
		"description": "Velas", "amount": "20", "expense_date": "2025-07-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[map[string]any](t, rec)
	assert.Equal(t, "50.00", sum["total_income"])
	assert.Equal(t, "20.00", sum["total_expenses"])
	assert.Equal(t, "30.00", sum["balance"])
	assert.Equal(t, float64(1), sum["member_count"])
}

func TestExtraordinaryFeeLifecycle(t *testing.T) {
	e := newEnv(t)
	memberID := createMember(t, e, "Juan Pérez")

	rec := e.do(t, http.MethodPost, "/api/extraordinary-fees", map[string]any{
		"name": "Techo del templo", "amount_per_member": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	feeID := decode[map[string]any](t, rec)["id"].(string)

	rec = e.do(t, http.MethodPost, "/api/extraordinary-payments", map[string]any{
		"extraordinary_fee_id": feeID, "member_id": memberID,
		"amount_paid": "40", "payment_date": "2025-07-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The fee shows up as 60 pending on the member's position.
	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/members/%s/arrears", memberID), nil)
	resp := decode[map[string]any](t, rec)
	pendingExtra := resp["pending_extraordinary"].([]any)
	require.Len(t, pendingExtra, 1)
	assert.Equal(t, "60.00", pendingExtra[0].(map[string]any)["pending"])

	// Deleting the fee cascades everywhere.
	rec = e.do(t, http.MethodDelete, "/api/extraordinary-fees/"+feeID, nil, "X-Admin", "true")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/members/%s/arrears", memberID), nil)
	resp = decode[map[string]any](t, rec)
	assert.Empty(t, resp["pending_extraordinary"])
}

func TestRefreshEndpoint(t *testing.T) {
	e := newEnv(t)
	createMember(t, e, "Juan Pérez")

	rec := e.do(t, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), sum["member_count"])
}

func TestMonthlyReportEndpoint(t *testing.T) {
	e := newEnv(t)
	id := createMember(t, e, "Juan Pérez")
	createMember(t, e, "Pedro Gómez")

	rec := e.do(t, http.MethodPost, "/api/payments", map[string]any{
		"member_id": id, "month": 7, "year": 2025,
		"amount": "50", "paid_at": "2025-07-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/reports/monthly?month=7&year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decode[api.MonthlyReportDTO](t, rec)
	require.Len(t, rep.Debtors, 1)
	assert.Equal(t, "Pedro Gómez", rep.Debtors[0].FullName)
	assert.Equal(t, "50.00", rep.Totals.DuesIncome)
	assert.Equal(t, "2025-07-01", rep.Period.From)

	// Wire keys follow the same snake_case contract as the rest of the API.
	raw := decode[map[string]any](t, rec2json(t, e, "/api/reports/monthly?month=7&year=2025"))
	assert.Contains(t, raw, "debtors")
	assert.Contains(t, raw, "totals")
	assert.NotContains(t, raw, "Debtors")

	rec = e.do(t, http.MethodGet, "/api/reports/annual?year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	annual := decode[api.AnnualReportDTO](t, rec)
	require.Len(t, annual.Months, 12)
	assert.Equal(t, "50.00", annual.Totals.DuesIncome)
	assert.Equal(t, "Julio", annual.Months[6].MonthName)

	rec = e.do(t, http.MethodGet, "/api/reports/monthly?month=13&year=2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
