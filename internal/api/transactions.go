package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// transactionRequest is the wire form of a create or edit. Category and
// type accept display names or short keys; Date accepts a plain date.
type transactionRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Title    string          `json:"title"`
	Category string          `json:"category"`
	Type     string          `json:"type"`
	Date     string          `json:"date"`
	Notes    string          `json:"notes"`
}

func (s *Server) newTransaction(req transactionRequest) (model.NewTransaction, error) {
	typ, err := model.ParseTransactionType(req.Type)
	if err != nil {
		return model.NewTransaction{}, err
	}
	category, err := model.ParseCategory(req.Category)
	if err != nil {
		return model.NewTransaction{}, err
	}
	date := s.today()
	if req.Date != "" {
		if date, err = s.parseDate(req.Date); err != nil {
			return model.NewTransaction{}, err
		}
	}
	in := model.NewTransaction{
		Title:    req.Title,
		Amount:   req.Amount,
		Category: category,
		Type:     typ,
		Date:     date,
		Notes:    req.Notes,
	}
	return in, in.Validate()
}

type listResponse struct {
	Transactions []model.Transaction `json:"transactions"`
	Stats        analytics.Stats     `json:"stats"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := s.filterParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txns, err := s.store.ListTransactions(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	matched := filter.Apply(txns)
	writeJSON(w, http.StatusOK, listResponse{
		Transactions: matched,
		Stats:        analytics.Summarize(matched),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := s.newTransaction(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txn, err := s.store.CreateTransaction(r.Context(), currentUser(r).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := s.newTransaction(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	update := model.TransactionUpdate{
		ID:       chi.URLParam(r, "id"),
		Title:    in.Title,
		Amount:   in.Amount,
		Category: in.Category,
		Type:     in.Type,
		Date:     in.Date,
		Notes:    in.Notes,
	}
	if err := s.store.UpdateTransaction(r.Context(), currentUser(r).ID, update); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

// handleDeleteTransaction succeeds whether or not the row existed.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteTransaction(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importResponse struct {
	Files    int `json:"files"`
	Parsed   int `json:"parsed"`
	Imported int `json:"imported"`
}

// handleImport takes one or more OFX statements as multipart "file" parts.
// Rows already present are skipped by the store.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Statement import is not available."})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, r, common.NewUserError("Upload one or more statement files.", fmt.Errorf("%w: %v", common.ErrInvalidInput, err)))
		return
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		s.writeError(w, r, common.NewUserError("Upload one or more statement files.", common.ErrInvalidInput))
		return
	}

	var parsed []model.NewTransaction
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		rows, err := s.importer.Parse(r.Context(), f)
		_ = f.Close()
		if err != nil {
			s.writeError(w, r, common.NewUserError(
				fmt.Sprintf("Could not read %s as an OFX statement.", fh.Filename),
				fmt.Errorf("%w: %v", common.ErrInvalidInput, err)))
			return
		}
		parsed = append(parsed, rows...)
	}

	imported, err := s.store.ImportTransactions(r.Context(), currentUser(r).ID, parsed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{
		Files:    len(headers),
		Parsed:   len(parsed),
		Imported: imported,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("type")
	if v == "" || v == model.FilterAll {
		writeJSON(w, http.StatusOK, model.Categories())
		return
	}
	typ, err := model.ParseTransactionType(v)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.CategoriesFor(typ))
}
