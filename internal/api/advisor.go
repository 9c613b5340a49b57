package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/export"
	"github.com/Veraticus/rupeeflow/internal/model"
)

type adviceRequest struct {
	Month string `json:"month"`
}

type chatRequest struct {
	Query   string           `json:"query"`
	History []model.ChatTurn `json:"history"`
}

func (s *Server) advisorUnavailable(w http.ResponseWriter) bool {
	if s.advisor != nil {
		return false
	}
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "The advisor is not configured."})
	return true
}

// handleAdvice advises on one month of transactions, the current month by
// default. An empty body is allowed.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if s.advisorUnavailable(w) {
		return
	}
	var req adviceRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	month := s.today()
	if req.Month != "" {
		var err error
		if month, err = s.parseMonth(req.Month); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	userID := currentUser(r).ID
	txns, err := s.store.ListTransactions(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	budgets, err := s.store.ListBudgets(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	advice := s.advisor.Advice(r.Context(), analytics.InMonth(txns, month), budgets)
	writeJSON(w, http.StatusOK, map[string]string{
		"month":  month.Format(monthLayout),
		"advice": advice,
	})
}

// handleChat answers one question against the full ledger.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.advisorUnavailable(w) {
		return
	}
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, r, common.NewUserError("Ask a question first.", common.ErrInvalidInput))
		return
	}
	txns, err := s.store.ListTransactions(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	reply := s.advisor.Chat(r.Context(), req.Query, txns, req.History)
	writeJSON(w, http.StatusOK, model.ChatTurn{Role: model.RoleModel, Text: reply})
}

// handleExportCSV streams the ledger, or one month of it, as a download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txns, err := s.store.ListTransactions(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		month, err := s.parseMonth(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		txns = analytics.InMonth(txns, month)
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, txns); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(s.today())))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
