package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/repository"
)

// Validation constants shared across the service layer.
const (
	MaxTitleLength    = 200
	MaxDetailsLength  = 10000
	DefaultBoardLimit = 50
	MaxListLimit      = 500
)

// CatalogService is the read side of the event catalog plus the admin-only
// write side-channel. The issuance workflow is handed the read interface
// only; nothing on the purchase path can mutate an event.
type CatalogService struct {
	events repository.EventRepository
	logger *slog.Logger
}

func NewCatalogService(events repository.EventRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		events: events,
		logger: logger,
	}
}

// GetByID fetches one event. Lookup is by primary key, so an ambiguous
// match cannot occur; a missing row is the only failure mode.
func (s *CatalogService) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// ListAll returns every event, newest start time first.
func (s *CatalogService) ListAll(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		s.logger.Error("listing events failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// ListFuture returns events that start after now, newest first.
func (s *CatalogService) ListFuture(ctx context.Context, now time.Time) ([]model.Event, error) {
	events, err := s.events.ListFuture(ctx, now.UnixMilli())
	if err != nil {
		s.logger.Error("listing future events failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing future events: %w", err)
	}
	return events, nil
}

// CreateEvent is the admin side-channel for adding catalog entries.
func (s *CatalogService) CreateEvent(ctx context.Context, event *model.Event) (*model.Event, error) {
	event.Title = strings.TrimSpace(event.Title)

	if event.Title == "" {
		return nil, apperror.ValidationFailed("title", "event title is required")
	}
	if len(event.Title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("event title must be %d characters or less", MaxTitleLength))
	}
	if len(event.Details) > MaxDetailsLength {
		return nil, apperror.ValidationFailed("details",
			fmt.Sprintf("event details must be %d characters or less", MaxDetailsLength))
	}
	if event.EndTime < event.StartTime {
		return nil, apperror.ValidationFailed("end_time", "event cannot end before it starts")
	}

	if err := s.events.Create(ctx, event); err != nil {
		s.logger.Error("creating event failed",
			slog.String("title", event.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating event: %w", err)
	}

	s.logger.Info("event created",
		slog.Int64("id", event.ID),
		slog.String("title", event.Title),
		slog.Int64("point_value", event.PointValue),
	)
	return event, nil
}

// DeleteEvent is the admin side-channel for removing catalog entries.
// Tickets for the event are removed with it so no ticket is ever left
// pointing at a missing event.
func (s *CatalogService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("event deleted", slog.Int64("id", id))
	return nil
}
