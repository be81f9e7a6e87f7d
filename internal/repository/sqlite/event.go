package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/repository"
)

const eventColumns = "id, start_time, end_time, title, human_location, latitude, longitude, details, image, point_value, last_sale_date"

// Events returns the event repository view of the database. Views exist
// because *DB's method set is taken by the user repository (Create, Delete,
// GetByID) and events/tickets need the same natural names.
func (db *DB) Events() repository.EventRepository {
	return (*eventDB)(db)
}

// Tickets returns the ticket repository view of the database.
func (db *DB) Tickets() repository.TicketRepository {
	return (*ticketDB)(db)
}

// eventDB is *DB under a different method set so that event operations can
// use the natural names without colliding with user methods.
type eventDB DB

var _ repository.EventRepository = (*eventDB)(nil)

func (db *eventDB) Create(ctx context.Context, event *model.Event) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (start_time, end_time, title, human_location, latitude, longitude, details, image, point_value, last_sale_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.StartTime,
		event.EndTime,
		event.Title,
		event.HumanLocation,
		event.Latitude,
		event.Longitude,
		event.Details,
		event.Image,
		event.PointValue,
		event.LastSaleDate,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting event %q: %w", event.Title, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new event id: %w", err)
	}
	event.ID = id

	return nil
}

func (db *eventDB) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id,
	).Scan(
		&e.ID,
		&e.StartTime,
		&e.EndTime,
		&e.Title,
		&e.HumanLocation,
		&e.Latitude,
		&e.Longitude,
		&e.Details,
		&e.Image,
		&e.PointValue,
		&e.LastSaleDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("event", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting event %d: %w", id, err)
	}

	return &e, nil
}

func (db *eventDB) ListAll(ctx context.Context) ([]model.Event, error) {
	return db.listEvents(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY start_time DESC`)
}

func (db *eventDB) ListFuture(ctx context.Context, nowMillis int64) ([]model.Event, error) {
	return db.listEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE start_time > ? ORDER BY start_time DESC`,
		nowMillis)
}

func (db *eventDB) listEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID,
			&e.StartTime,
			&e.EndTime,
			&e.Title,
			&e.HumanLocation,
			&e.Latitude,
			&e.Longitude,
			&e.Details,
			&e.Image,
			&e.PointValue,
			&e.LastSaleDate,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}

	return events, nil
}

func (db *eventDB) Delete(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting event %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting event %d: %w", id, err)
	}
	if rows == 0 {
		return apperror.NotFound("event", strconv.FormatInt(id, 10))
	}
	return nil
}
