package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// The websocket outlives the request timeout.
		r.With(s.requireUser).Get("/live", s.handleLive)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
				r.Post("/verify", s.handleVerify)
				r.Post("/password-reset", s.handlePasswordReset)
				r.Post("/password-reset/confirm", s.handlePasswordResetConfirm)
				r.Get("/google", s.handleGoogleRedirect)
				r.Get("/google/callback", s.handleGoogleCallback)
				r.Post("/logout", s.handleLogout)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)

				r.Get("/me", s.handleMe)

				r.Get("/categories", s.handleCategories)

				r.Route("/transactions", func(r chi.Router) {
					r.Get("/", s.handleListTransactions)
					r.Post("/", s.handleCreateTransaction)
					r.Post("/import", s.handleImport)
					r.Put("/{id}", s.handleUpdateTransaction)
					r.Delete("/{id}", s.handleDeleteTransaction)
				})

				r.Route("/budgets", func(r chi.Router) {
					r.Get("/", s.handleListBudgets)
					r.Put("/{category}", s.handleSetBudget)
					r.Delete("/{category}", s.handleDeleteBudget)
				})

				r.Route("/reports", func(r chi.Router) {
					r.Get("/summary", s.handleSummary)
					r.Get("/categories", s.handleCategoryReport)
					r.Get("/weekly", s.handleWeekly)
					r.Get("/annual", s.handleAnnual)
				})

				r.Post("/advice", s.handleAdvice)
				r.Post("/chat", s.handleChat)
				r.Get("/export.csv", s.handleExportCSV)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
