// Package service contains the business logic layer: credential store,
// points ledger, catalog reader, and the ticket issuance workflow. Handlers
// parse HTTP and call in here; repositories do the SQL. Nothing in this
// package imports net/http or database/sql.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/metrics"
	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/repository"
)

// LedgerService owns every mutation of user point balances. No other code
// path writes score or lifetime.
type LedgerService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewLedgerService(users repository.UserRepository, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		users:  users,
		logger: logger,
	}
}

// Adjust applies a signed delta to a user's balance.
//
// Positive deltas credit score and lifetime together and always apply.
// Negative deltas are conditional: applied=false means the balance was too
// low — a business outcome the caller must handle, distinct from an error,
// which means the store itself failed. The check-and-decrement is a single
// atomic statement in the repository; this layer never reads a balance and
// then writes one.
func (s *LedgerService) Adjust(ctx context.Context, userID, delta int64) (bool, error) {
	applied, err := s.users.AdjustPoints(ctx, userID, delta)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, err
		}
		metrics.LedgerAdjustments.WithLabelValues(direction(delta), "error").Inc()
		s.logger.Error("ledger adjustment failed",
			slog.Int64("user_id", userID),
			slog.Int64("delta", delta),
			slog.String("error", err.Error()),
		)
		return false, apperror.Persistence("adjusting points", err)
	}

	if !applied {
		metrics.LedgerAdjustments.WithLabelValues(direction(delta), "insufficient").Inc()
		return false, nil
	}

	metrics.LedgerAdjustments.WithLabelValues(direction(delta), "applied").Inc()
	s.logger.Info("points adjusted",
		slog.Int64("user_id", userID),
		slog.Int64("delta", delta),
	)
	return true, nil
}

// Refund returns amount points to the user's spendable score after a debit
// whose dependent write failed. Lifetime is untouched: the refund restores
// a balance, it does not award points, and the leaderboard must not move.
func (s *LedgerService) Refund(ctx context.Context, userID, amount int64) error {
	if err := s.users.RefundPoints(ctx, userID, amount); err != nil {
		metrics.LedgerAdjustments.WithLabelValues("refund", "error").Inc()
		s.logger.Error("ledger refund failed",
			slog.Int64("user_id", userID),
			slog.Int64("amount", amount),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return apperror.Persistence("refunding points", err)
	}

	metrics.LedgerAdjustments.WithLabelValues("refund", "applied").Inc()
	s.logger.Info("points refunded",
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount),
	)
	return nil
}

// Leaderboard returns the top users by cumulative lifetime points.
func (s *LedgerService) Leaderboard(ctx context.Context, limit int) ([]model.UserPoints, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultBoardLimit
	}

	board, err := s.users.TopByLifetime(ctx, limit)
	if err != nil {
		s.logger.Error("leaderboard query failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing leaderboard: %w", err)
	}
	return board, nil
}

func direction(delta int64) string {
	if delta < 0 {
		return "debit"
	}
	return "credit"
}
