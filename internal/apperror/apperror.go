// Package apperror defines the error taxonomy shared by every layer of the
// service. Services return these; HTTP handlers translate them to status
// codes and stable machine-readable error strings.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors. errors.Is against one of these tells a caller which
// category a failure belongs to without inspecting messages.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")

	// Business-rule rejections from the ticket engine. These never mutate
	// state and are surfaced to clients as 4xx responses.
	ErrSaleClosed          = errors.New("sale closed")
	ErrAlreadyIssued       = errors.New("ticket already issued")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyExpended     = errors.New("ticket already expended")

	// Infrastructure failures. ErrPersistence is retryable by the caller;
	// ErrIssuanceFailed means a ticket write failed after a ledger debit and
	// a compensating refund was attempted.
	ErrPersistence    = errors.New("persistence failure")
	ErrIssuanceFailed = errors.New("issuance persistence failure")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated returns an AppError for requests with no valid session.
// HTTP handlers map this to 401 Unauthorized.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "valid authentication required",
	}
}

func SaleClosed(eventID int64) *AppError {
	return &AppError{
		Err:     ErrSaleClosed,
		Message: fmt.Sprintf("ticket sales have ended for event %d", eventID),
	}
}

func AlreadyIssued(holderID, eventID int64) *AppError {
	return &AppError{
		Err:     ErrAlreadyIssued,
		Message: fmt.Sprintf("user %d already holds a ticket for event %d", holderID, eventID),
	}
}

func InsufficientBalance(userID int64) *AppError {
	return &AppError{
		Err:     ErrInsufficientBalance,
		Message: fmt.Sprintf("user %d has insufficient points for this purchase", userID),
	}
}

func AlreadyExpended(ticketID string) *AppError {
	return &AppError{
		Err:     ErrAlreadyExpended,
		Message: fmt.Sprintf("ticket %s has already been redeemed", ticketID),
	}
}

// Persistence wraps an underlying store error. The original error stays on
// the chain for logging; the message shown to clients stays generic.
func Persistence(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %w", ErrPersistence, op, err),
		Message: "the operation could not be completed, try again",
	}
}

// IssuanceFailed wraps a ticket-write error that occurred after the ledger
// debit had already been applied. By the time this is returned a
// compensating refund has been attempted.
func IssuanceFailed(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrIssuanceFailed, err),
		Message: "ticket could not be issued",
	}
}
