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
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/wallets/*       Wallet management and per-wallet history
  /api/transactions/*  Ledger entries, transfers, edits
  /api/goals/*         Savings goals and top-ups
  /api/recurrences/*   Recurrence templates and materialization
  /api/receipts/*      Batch import of parsed receipt lines
  /api/categories/*    Category management

SECURITY NOTE:
  No authentication middleware currently. Callers self-identify via
  owner_id; ownership checks in the handlers keep owners apart but do
  not authenticate anyone.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Wallet routes
		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", h.ListWallets)
			r.Post("/", h.CreateWallet)
			r.Get("/{id}", h.GetWallet)
			r.Put("/{id}", h.UpdateWallet)
			r.Delete("/{id}", h.DeactivateWallet)
			r.Post("/{id}/restore", h.RestoreWallet)
			r.Get("/{id}/transactions", h.GetWalletTransactions)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateEntry)
			r.Post("/transfer", h.CreateTransfer)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		// Goal routes
		r.Route("/goals", func(r chi.Router) {
			r.Get("/", h.ListGoals)
			r.Post("/", h.CreateGoal)
			r.Get("/{id}", h.GetGoal)
			r.Post("/{id}/topup", h.TopUpGoal)
		})

		// Recurrence routes
		r.Route("/recurrences", func(r chi.Router) {
			r.Get("/", h.ListRecurrences)
			r.Post("/", h.CreateRecurrence)
			r.Get("/missing", h.ListMissing)
			r.Get("/{id}", h.GetRecurrence)
			r.Post("/{id}/toggle", h.ToggleRecurrence)
			r.Post("/{id}/process", h.ProcessRecurrence)
			r.Post("/{id}/generate", h.GenerateMissing)
		})

		// Receipt routes
		r.Route("/receipts", func(r chi.Router) {
			r.Post("/import", h.ImportReceipt)
		})

		// Category routes
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", h.CreateCategory)
		})
	})

	return r
}
