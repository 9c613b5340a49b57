package api

import (
	"net/http"
	"strconv"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/model"
)

// monthTransactions loads the user's rows for the ?month= window.
func (s *Server) monthTransactions(r *http.Request) (string, []model.Transaction, error) {
	month, err := s.monthParam(r)
	if err != nil {
		return "", nil, err
	}
	txns, err := s.store.ListTransactions(r.Context(), currentUser(r).ID)
	if err != nil {
		return "", nil, err
	}
	return month.Format(monthLayout), analytics.InMonth(txns, month), nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, txns, err := s.monthTransactions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month": month,
		"stats": analytics.Summarize(txns),
	})
}

// handleCategoryReport groups the month's rows that match ?type= and
// ?category= by category.
func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, txns, err := s.monthTransactions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	totals := analytics.CategoryTotals(criteria.Apply(txns), criteria.Type)
	if totals == nil {
		totals = []analytics.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":      month,
		"type":       criteria.Type,
		"category":   criteria.Category,
		"categories": totals,
	})
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, txns, err := s.monthTransactions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month": month,
		"weeks": analytics.WeeklyBuckets(criteria.Apply(txns)),
	})
}

// handleAnnual serves a calendar year, or the trailing twelve months when
// trailing=true.
func (s *Server) handleAnnual(w http.ResponseWriter, r *http.Request) {
	trailing, _ := strconv.ParseBool(r.URL.Query().Get("trailing"))
	year := 0
	if !trailing {
		var err error
		if year, err = s.yearParam(r); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	txns, err := s.store.ListTransactions(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if trailing {
		writeJSON(w, http.StatusOK, map[string]any{
			"trailing": true,
			"months":   analytics.TrailingTrend(txns, s.today()),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":   year,
		"months": analytics.YearTrend(txns, year, s.loc),
	})
}
