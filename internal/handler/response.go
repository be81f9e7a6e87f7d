package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ma-central/macsvc/internal/apperror"
)

// ErrorResponse is the standard error shape returned by all API endpoints.
// Error is a stable machine-readable code clients can switch on; Message is
// for humans.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and stable error code.
// Business-rule rejections from the ticket engine each get their own code
// so the clients can branch without parsing messages.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrSaleClosed):
		status, code = http.StatusConflict, "sale_ended"
	case errors.Is(err, apperror.ErrAlreadyIssued):
		status, code = http.StatusConflict, "already_issued"
	case errors.Is(err, apperror.ErrInsufficientBalance):
		status, code = http.StatusConflict, "insufficient_balance"
	case errors.Is(err, apperror.ErrAlreadyExpended):
		status, code = http.StatusConflict, "already_expended"
	case errors.Is(err, apperror.ErrPersistence):
		status, code = http.StatusServiceUnavailable, "persistence_failure"
	case errors.Is(err, apperror.ErrIssuanceFailed):
		status, code = http.StatusInternalServerError, "issuance_failed"
	}

	message := "An internal error occurred"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		// Typed errors carry a client-safe message; raw errors never reach
		// the response body.
		message = appErr.Message
	}

	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
