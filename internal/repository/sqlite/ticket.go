package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/repository"
)

// ticketDB is *DB under the ticket repository method set.
type ticketDB DB

var _ repository.TicketRepository = (*ticketDB)(nil)

const ticketColumns = "id, serial, event_id, holder_id, single_entry, expended, creation_date"

// Create inserts a ticket row. The UNIQUE(holder_id, event_id) constraint
// turns a concurrent duplicate issuance into a Conflict here instead of a
// second ticket — this is the last line of defence behind the workflow's
// idempotency pre-check.
func (db *ticketDB) Create(ctx context.Context, ticket *model.Ticket) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tickets (id, serial, event_id, holder_id, single_entry, expended, creation_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ticket.ID,
		ticket.Serial,
		ticket.EventID,
		ticket.HolderID,
		ticket.SingleEntry,
		ticket.Expended,
		ticket.CreationDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("ticket", ticket.ID)
		}
		return fmt.Errorf("sqlite: inserting ticket %s: %w", ticket.ID, err)
	}

	return nil
}

func (db *ticketDB) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	var t model.Ticket

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id,
	).Scan(
		&t.ID,
		&t.Serial,
		&t.EventID,
		&t.HolderID,
		&t.SingleEntry,
		&t.Expended,
		&t.CreationDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("ticket", id)
		}
		return nil, fmt.Errorf("sqlite: getting ticket %s: %w", id, err)
	}

	return &t, nil
}

func (db *ticketDB) ListByHolder(ctx context.Context, holderID int64) ([]model.Ticket, error) {
	return db.listTickets(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE holder_id = ? ORDER BY creation_date DESC`,
		holderID)
}

func (db *ticketDB) ListValidByHolder(ctx context.Context, holderID int64) ([]model.Ticket, error) {
	return db.listTickets(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE holder_id = ? AND expended = 0 ORDER BY creation_date DESC`,
		holderID)
}

func (db *ticketDB) listTickets(ctx context.Context, query string, args ...any) ([]model.Ticket, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying tickets: %w", err)
	}
	defer rows.Close()

	tickets := []model.Ticket{}
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(
			&t.ID,
			&t.Serial,
			&t.EventID,
			&t.HolderID,
			&t.SingleEntry,
			&t.Expended,
			&t.CreationDate,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning ticket row: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tickets: %w", err)
	}

	return tickets, nil
}

func (db *ticketDB) CountForHolderEvent(ctx context.Context, holderID, eventID int64) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE holder_id = ? AND event_id = ?`,
		holderID, eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting tickets for holder %d event %d: %w", holderID, eventID, err)
	}
	return count, nil
}

// MarkExpended flips expended 0→1 in a single conditional UPDATE. The WHERE
// clause makes the transition one-way at the store level: a ticket already
// redeemed matches zero rows no matter how the calls interleave.
func (db *ticketDB) MarkExpended(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE tickets SET expended = 1 WHERE id = ? AND expended = 0`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: redeeming ticket %s: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: redeeming ticket %s: %w", id, err)
	}
	if rows == 1 {
		return nil
	}

	// Zero rows: already expended or never issued.
	if _, err := db.GetByID(ctx, id); err != nil {
		return err
	}
	return apperror.AlreadyExpended(id)
}
