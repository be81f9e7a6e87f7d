package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/service"
)

// EventHandler serves the catalog read endpoints and the admin-only
// management side-channel.
type EventHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewEventHandler(catalog *service.CatalogService, logger *slog.Logger) *EventHandler {
	return &EventHandler{catalog: catalog, logger: logger}
}

// HandleAll returns the whole catalog, newest start time first.
//
// HTTP: GET /api/v1/events/all
func (h *EventHandler) HandleAll(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleFuture returns events starting after the current time.
//
// HTTP: GET /api/v1/events/future
func (h *EventHandler) HandleFuture(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.ListFuture(r.Context(), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGetByID returns one event by ID.
//
// HTTP: GET /api/v1/events/{event_id}
func (h *EventHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "event_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	event, err := h.catalog.GetByID(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleManageCreate adds a catalog entry. Admin only.
//
// HTTP: POST /api/v1/manage/events
func (h *EventHandler) HandleManageCreate(w http.ResponseWriter, r *http.Request) {
	var event model.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	created, err := h.catalog.CreateEvent(r.Context(), &event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleManageDelete removes a catalog entry and its tickets. Admin only.
//
// HTTP: DELETE /api/v1/manage/events/{event_id}
func (h *EventHandler) HandleManageDelete(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "event_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	if err := h.catalog.DeleteEvent(r.Context(), eventID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
