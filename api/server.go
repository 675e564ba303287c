/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:       Request logging
  2. Recoverer:    Panic recovery (500 instead of crash)
  3. RequestID:    Unique ID per request for tracing
  4. CORS:         Cross-origin requests for frontend
  5. requireAdmin: Destructive routes only

ROUTE GROUPS:
  /api/members/*               Roster and per-member arrears
  /api/payments/*              Dues rows plus batch allocators
  /api/expenses/*              Outgoing transactions
  /api/extraordinary-fees/*    One-off charges
  /api/extraordinary-payments/* Installments
  /api/degree-fees/*           Degree-advancement income
  /api/settings                Configuration singleton
  /api/summary, /api/reports/* Read model
  /api/birthdays               Greeting links
  /api/refresh                 Force cache refresh

ADMIN GATE:
  Deletes require the X-Admin: true header. This is an operator
  convenience gate, not authentication; front it with a real auth proxy
  in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Put("/{id}", h.UpdateMember)
			r.Get("/{id}/arrears", h.GetMemberArrears)
			r.With(requireAdmin).Delete("/{id}", h.DeleteMember)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Post("/quick-pay", h.QuickPay)
			r.Post("/advance-pay", h.AdvancePay)
			r.Put("/{id}", h.UpdatePayment)
			r.With(requireAdmin).Delete("/{id}", h.DeletePayment)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Put("/{id}", h.UpdateExpense)
			r.With(requireAdmin).Delete("/{id}", h.DeleteExpense)
		})

		r.Route("/extraordinary-fees", func(r chi.Router) {
			r.Get("/", h.ListExtraordinaryFees)
			r.Post("/", h.CreateExtraordinaryFee)
			r.With(requireAdmin).Delete("/{id}", h.DeleteExtraordinaryFee)
		})

		r.Route("/extraordinary-payments", func(r chi.Router) {
			r.Post("/", h.CreateExtraordinaryPayment)
			r.With(requireAdmin).Delete("/{id}", h.DeleteExtraordinaryPayment)
		})

		r.Route("/degree-fees", func(r chi.Router) {
			r.Get("/", h.ListDegreeFees)
			r.Post("/", h.CreateDegreeFee)
			r.With(requireAdmin).Delete("/{id}", h.DeleteDegreeFee)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/", h.UpdateSettings)
		})

		r.Get("/summary", h.GetSummary)
		r.Post("/refresh", h.Refresh)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly", h.MonthlyReport)
			r.Get("/annual", h.AnnualReport)
			r.Get("/receivables", h.Receivables)
		})

		r.Get("/birthdays", h.Birthdays)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// requireAdmin gates destructive routes behind the X-Admin header.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin") != "true" {
			writeError(w, http.StatusForbidden, "Admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
