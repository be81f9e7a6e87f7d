package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/metrics"
	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/pass"
	"github.com/ma-central/macsvc/internal/repository"
)

// TicketService orchestrates the issuance workflow: catalog lookup, ledger
// adjustment, and ticket persistence, plus redemption and pass generation.
//
// The correctness story for concurrent issuance has two layers. First, an
// idempotency pre-check rejects a holder who already has a ticket without
// touching the ledger. Second — because two requests can both pass that
// check — the tickets table's UNIQUE(holder_id, event_id) constraint lets
// exactly one of the racing inserts through; the loser's debit is refunded
// and it reports AlreadyIssued. Either way at most one ticket exists and
// the ledger moved exactly once.
type TicketService struct {
	catalog *CatalogService
	ledger  *LedgerService
	tickets repository.TicketRepository
	users   repository.UserRepository
	logger  *slog.Logger

	// now is a field so tests can pin the clock.
	now func() time.Time
}

func NewTicketService(
	catalog *CatalogService,
	ledger *LedgerService,
	tickets repository.TicketRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *TicketService {
	return &TicketService{
		catalog: catalog,
		ledger:  ledger,
		tickets: tickets,
		users:   users,
		logger:  logger,
		now:     time.Now,
	}
}

// Issue runs the full issuance workflow for (holderID, eventID).
//
// The event's point value is the signed ledger delta: negative for a paid
// event (conditional debit, may fail with InsufficientBalance), positive
// for a reward event (unconditional credit to score and lifetime).
//
// Failure semantics:
//   - UnknownEvent / SaleClosed / AlreadyIssued / InsufficientBalance:
//     business rejections, no state was mutated.
//   - Persistence: the store failed before any mutation; safe to retry.
//   - IssuanceFailed: the ticket write failed after the ledger moved; a
//     compensating reverse adjustment was attempted, and if that failed too
//     the inconsistency is logged for manual reconciliation.
func (s *TicketService) Issue(ctx context.Context, holderID, eventID int64) (*model.Ticket, error) {
	event, err := s.catalog.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeUnknownEvent).Inc()
			return nil, err
		}
		metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperror.Persistence("fetching event", err)
	}

	now := s.now()
	nowMillis := now.UnixMilli()

	if !event.SaleOpen(nowMillis) {
		metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeSaleClosed).Inc()
		return nil, apperror.SaleClosed(eventID)
	}

	// Idempotency pre-check. The unique constraint below closes the race
	// window this check leaves open.
	existing, err := s.tickets.CountForHolderEvent(ctx, holderID, eventID)
	if err != nil {
		metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperror.Persistence("checking existing tickets", err)
	}
	if existing > 0 {
		metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeAlreadyIssued).Inc()
		return nil, apperror.AlreadyIssued(holderID, eventID)
	}

	applied, err := s.ledger.Adjust(ctx, holderID, event.PointValue)
	if err != nil {
		metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	if !applied {
		metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeInsufficientBalance).Inc()
		return nil, apperror.InsufficientBalance(holderID)
	}

	ticket := &model.Ticket{
		ID:           xid.New().String(),
		Serial:       model.TicketSerial(eventID, holderID, nowMillis),
		EventID:      eventID,
		HolderID:     holderID,
		SingleEntry:  true,
		Expended:     false,
		CreationDate: nowMillis,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		// The ledger already moved; undo it before reporting failure.
		s.compensate(ctx, holderID, eventID, event.PointValue, err)

		if errors.Is(err, apperror.ErrConflict) {
			// Lost the insert race to a concurrent request for the same
			// (holder, event) pair.
			metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeAlreadyIssued).Inc()
			return nil, apperror.AlreadyIssued(holderID, eventID)
		}
		metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperror.IssuanceFailed(err)
	}

	metrics.IssuanceTotal.WithLabelValues(metrics.OutcomeIssued).Inc()
	s.logger.Info("ticket issued",
		slog.String("ticket_id", ticket.ID),
		slog.Int64("event_id", eventID),
		slog.Int64("holder_id", holderID),
		slog.Int64("delta", event.PointValue),
	)
	return ticket, nil
}

// compensate reverses a ledger adjustment whose dependent ticket write
// failed. Undoing a purchase debit is a score-only refund — the points were
// never earned, so lifetime must not move. Undoing a reward credit is a
// conditional debit, which can itself be rejected if the holder already
// spent the reward. A failed or unapplied reversal is a real inconsistency:
// it is logged loudly for manual reconciliation, never dropped.
func (s *TicketService) compensate(ctx context.Context, holderID, eventID, delta int64, cause error) {
	var err error
	if delta < 0 {
		err = s.ledger.Refund(ctx, holderID, -delta)
	} else {
		var applied bool
		applied, err = s.ledger.Adjust(ctx, holderID, -delta)
		if err == nil && !applied {
			err = errors.New("reward reversal rejected: balance already spent")
		}
	}
	if err != nil {
		s.logger.Error("ticket refund failed; manual reconciliation required",
			slog.Int64("holder_id", holderID),
			slog.Int64("event_id", eventID),
			slog.Int64("unreversed_delta", delta),
			slog.Any("cause", cause),
			slog.Any("refund_error", err),
		)
	}
}

// Redeem performs the one-way Valid → Expended transition for a ticket.
// The first call succeeds; every later call reports AlreadyExpended.
func (s *TicketService) Redeem(ctx context.Context, ticketID string) error {
	err := s.tickets.MarkExpended(ctx, ticketID)
	switch {
	case err == nil:
		metrics.RedemptionTotal.WithLabelValues(metrics.OutcomeRedeemed).Inc()
		s.logger.Info("ticket redeemed", slog.String("ticket_id", ticketID))
		return nil
	case errors.Is(err, apperror.ErrAlreadyExpended):
		metrics.RedemptionTotal.WithLabelValues(metrics.OutcomeAlreadyExpended).Inc()
		return err
	case errors.Is(err, apperror.ErrNotFound):
		metrics.RedemptionTotal.WithLabelValues(metrics.OutcomeUnknownTicket).Inc()
		return err
	default:
		metrics.RedemptionTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return apperror.Persistence("redeeming ticket", err)
	}
}

// GetByID fetches one ticket.
func (s *TicketService) GetByID(ctx context.Context, ticketID string) (*model.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// ListForHolder returns all of a holder's tickets, newest first.
func (s *TicketService) ListForHolder(ctx context.Context, holderID int64) ([]model.Ticket, error) {
	return s.tickets.ListByHolder(ctx, holderID)
}

// ListValidForHolder returns the holder's unredeemed tickets, newest first.
func (s *TicketService) ListValidForHolder(ctx context.Context, holderID int64) ([]model.Ticket, error) {
	return s.tickets.ListValidByHolder(ctx, holderID)
}

// PassPayload assembles the wallet pass document for a ticket. The triple
// handed to the pass builder is read-only; nothing here mutates state.
func (s *TicketService) PassPayload(ctx context.Context, ticketID string) ([]byte, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	event, err := s.catalog.GetByID(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	holder, err := s.users.GetByID(ctx, ticket.HolderID)
	if err != nil {
		return nil, err
	}
	return pass.Payload(ticket, event, holder)
}
