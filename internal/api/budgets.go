package api

import (
	"net/http"
	"net/url"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type budgetsResponse struct {
	Month       string                        `json:"month"`
	Budgets     []model.Budget                `json:"budgets"`
	Utilization []analytics.BudgetUtilization `json:"utilization"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	userID := currentUser(r).ID
	if _, err := s.store.EnsureDefaultBudget(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	budgets, err := s.store.ListBudgets(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txns, err := s.store.ListTransactions(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetsResponse{
		Month:       month.Format(monthLayout),
		Budgets:     budgets,
		Utilization: analytics.BudgetReport(txns, budgets, analytics.MonthWindow(month)),
	})
}

// budgetCategoryParam accepts "total", a short key or an escaped display
// name such as Food%20%26%20Drinks.
func budgetCategoryParam(r *http.Request) (model.BudgetCategory, error) {
	raw := chi.URLParam(r, "category")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return model.ParseBudgetCategory(raw)
}

type budgetRequest struct {
	Limit *decimal.Decimal `json:"limit"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	category, err := budgetCategoryParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Limit == nil {
		s.writeError(w, r, common.NewUserError("A limit is required.", common.ErrInvalidInput))
		return
	}
	if err := model.ValidateBudget(category, *req.Limit); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpsertBudget(r.Context(), currentUser(r).ID, category, *req.Limit); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "limit": *req.Limit})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	category, err := budgetCategoryParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteBudget(r.Context(), currentUser(r).ID, category); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
