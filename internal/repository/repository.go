// Package repository declares the storage interfaces consumed by the
// service layer. The sqlite subpackage is the only implementation; tests
// substitute hand-written fakes.
package repository

import (
	"context"

	"github.com/ma-central/macsvc/internal/model"
)

type UserRepository interface {
	// Create inserts a new user. Returns apperror.ErrConflict when the
	// username or student ID is already taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByStudentID(ctx context.Context, studentID string) (*model.User, error)
	Delete(ctx context.Context, id int64) error

	// AdjustPoints applies a signed delta to the user's point balance.
	// Positive deltas raise score and lifetime together, unconditionally.
	// Negative deltas are a conditional decrement: the check and the
	// subtraction happen in one statement, and applied=false means the
	// balance was too low (a business outcome, not an error).
	AdjustPoints(ctx context.Context, id int64, delta int64) (applied bool, err error)

	// RefundPoints returns previously debited points to the user's score
	// without touching lifetime. Lifetime records points earned; a refund
	// is not an earning, so routing it through AdjustPoints would inflate
	// the leaderboard.
	RefundPoints(ctx context.Context, id int64, amount int64) error

	// TopByLifetime returns the leaderboard, ordered by lifetime descending.
	TopByLifetime(ctx context.Context, limit int) ([]model.UserPoints, error)
}

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	ListAll(ctx context.Context) ([]model.Event, error)
	ListFuture(ctx context.Context, nowMillis int64) ([]model.Event, error)
	Delete(ctx context.Context, id int64) error
}

type TicketRepository interface {
	// Create inserts a ticket. The UNIQUE(holder_id, event_id) constraint
	// is the backstop against concurrent duplicate issuance: a second
	// insert for the same pair returns apperror.ErrConflict.
	Create(ctx context.Context, ticket *model.Ticket) error
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	ListByHolder(ctx context.Context, holderID int64) ([]model.Ticket, error)
	ListValidByHolder(ctx context.Context, holderID int64) ([]model.Ticket, error)
	CountForHolderEvent(ctx context.Context, holderID, eventID int64) (int, error)

	// MarkExpended performs the one-way expended 0→1 transition. Returns
	// apperror.ErrAlreadyExpended on a repeat, apperror.ErrNotFound for an
	// unknown ticket.
	MarkExpended(ctx context.Context, id string) error
}
