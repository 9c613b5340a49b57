package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error             string `json:"error"`
	NeedsVerification bool   `json:"needsVerification,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrEmailNotVerified):
		return http.StatusForbidden
	case errors.Is(err, common.ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, common.ErrRateLimit):
		return http.StatusTooManyRequests
	case isValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isValidation(err error) bool {
	return errors.Is(err, common.ErrInvalidInput) ||
		errors.Is(err, common.ErrInvalidToken) ||
		errors.Is(err, common.ErrWeakPassword) ||
		errors.Is(err, model.ErrInvalidTransaction) ||
		errors.Is(err, model.ErrInvalidBudget)
}

// writeError renders err as {"error": message}. Server errors are logged and
// their detail is withheld from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{
		NeedsVerification: status == http.StatusForbidden,
	}
	switch {
	case status == http.StatusInternalServerError:
		common.LogError(r.Context(), s.logger, err, "request failed", common.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		})
		resp.Error = common.UserMessage(err, "Something went wrong. Please try again.")
	case isDomainValidation(err):
		resp.Error = err.Error()
	default:
		resp.Error = common.UserMessage(err, http.StatusText(status))
	}
	writeJSON(w, status, resp)
}

func isDomainValidation(err error) bool {
	return errors.Is(err, model.ErrInvalidTransaction) || errors.Is(err, model.ErrInvalidBudget)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return common.NewUserError("The request body is not valid JSON.", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	return nil
}
