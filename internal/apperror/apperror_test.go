package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("event", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("username", "username is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "taken-name"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated(),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "SaleClosed wraps ErrSaleClosed",
			err:       SaleClosed(7),
			target:    ErrSaleClosed,
			wantMatch: true,
		},
		{
			name:      "AlreadyIssued wraps ErrAlreadyIssued",
			err:       AlreadyIssued(3, 7),
			target:    ErrAlreadyIssued,
			wantMatch: true,
		},
		{
			name:      "InsufficientBalance wraps ErrInsufficientBalance",
			err:       InsufficientBalance(3),
			target:    ErrInsufficientBalance,
			wantMatch: true,
		},
		{
			name:      "AlreadyExpended wraps ErrAlreadyExpended",
			err:       AlreadyExpended("cv37rs3pp9olc6atsptg"),
			target:    ErrAlreadyExpended,
			wantMatch: true,
		},
		{
			name:      "Persistence wraps ErrPersistence",
			err:       Persistence("updating points", errors.New("disk I/O error")),
			target:    ErrPersistence,
			wantMatch: true,
		},
		{
			name:      "IssuanceFailed wraps ErrIssuanceFailed",
			err:       IssuanceFailed(errors.New("insert failed")),
			target:    ErrIssuanceFailed,
			wantMatch: true,
		},
		{
			name:      "SaleClosed does NOT match ErrAlreadyIssued",
			err:       SaleClosed(7),
			target:    ErrAlreadyIssued,
			wantMatch: false,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("ticket", "abc"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

// Category checks must survive another layer of wrapping — services wrap
// repository errors with fmt.Errorf("%w", ...) before returning them.
func TestErrorsIsThroughWrapping(t *testing.T) {
	inner := InsufficientBalance(9)
	wrapped := fmt.Errorf("issuing ticket: %w", inner)

	if !errors.Is(wrapped, ErrInsufficientBalance) {
		t.Error("wrapped error should still match ErrInsufficientBalance")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As should extract *AppError from the chain")
	}
	if appErr.Message == "" {
		t.Error("extracted AppError should keep its message")
	}
}

// Persistence keeps the underlying store error on the chain so it can be
// logged, while the client-facing message stays generic.
func TestPersistenceKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Persistence("adjusting points", cause)

	if !errors.Is(err, cause) {
		t.Error("Persistence should keep the cause on the error chain")
	}
	if err.Message != "the operation could not be completed, try again" {
		t.Errorf("Message = %q, want generic retry message", err.Message)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("password", "password must be at least 8 characters")

	if err.Field != "password" {
		t.Errorf("Field = %q, want %q", err.Field, "password")
	}
}
