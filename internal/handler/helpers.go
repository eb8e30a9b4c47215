package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gaqno/financial-app-sub001/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseFilter reads from, to, status, type and group_id query params.
func parseFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	var f domain.TransactionFilter

	if v := q.Get("from"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return f, &domain.ErrValidation{Field: "from", Message: "must be YYYY-MM-DD"}
		}
		f.From = d
	}
	if v := q.Get("to"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return f, &domain.ErrValidation{Field: "to", Message: "must be YYYY-MM-DD"}
		}
		f.To = d
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, &domain.ErrInvalidRange{Start: f.From, End: f.To}
	}
	if v := q.Get("status"); v != "" {
		f.Status = domain.TransactionStatus(v)
		if !f.Status.Valid() {
			return f, &domain.ErrValidation{Field: "status", Message: "must be 'pending' or 'completed'"}
		}
	}
	if v := q.Get("type"); v != "" {
		f.Type = domain.TransactionType(v)
		if !f.Type.Valid() {
			return f, &domain.ErrValidation{Field: "type", Message: "must be 'income' or 'expense'"}
		}
	}
	f.GroupID = q.Get("group_id")
	return f, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var invalidRange *domain.ErrInvalidRange
	var conflict *domain.ErrConflict
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidRange):
		logger.Debug("invalid date range", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream store unavailable")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
