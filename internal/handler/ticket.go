package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/auth"
	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/service"
)

// TicketHandler serves issuance, listing, redemption, and wallet pass
// download.
type TicketHandler struct {
	tickets    *service.TicketService
	passTokens *auth.PassTokenService
	logger     *slog.Logger
}

func NewTicketHandler(tickets *service.TicketService, passTokens *auth.PassTokenService, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		tickets:    tickets,
		passTokens: passTokens,
		logger:     logger,
	}
}

type issuedResponse struct {
	Ticket *model.Ticket `json:"ticket"`
	// PassToken authorizes a wallet pass download without a session cookie.
	// Empty when pass signing is not configured.
	PassToken string `json:"pass_token,omitempty"`
}

// HandleCreateFor issues a ticket for a user. Admin only: issuance is a
// staff-operated action, not self-serve purchase.
//
// HTTP: GET /api/v1/tickets_create/{user_id}/{event_id}
func (h *TicketHandler) HandleCreateFor(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	eventID, err := strconv.ParseInt(chi.URLParam(r, "event_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	ticket, err := h.tickets.Issue(r.Context(), userID, eventID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := issuedResponse{Ticket: ticket}
	if h.passTokens != nil {
		token, err := h.passTokens.Generate(ticket.ID)
		if err != nil {
			// The ticket exists either way; a missing token only blocks the
			// wallet shortcut, not the issuance.
			h.logger.Error("pass token generation failed",
				slog.String("ticket_id", ticket.ID),
				slog.String("error", err.Error()),
			)
		} else {
			resp.PassToken = token
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleMine returns every ticket held by the calling user, newest first.
//
// HTTP: GET /api/v1/tickets/mine
func (h *TicketHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated())
		return
	}

	tickets, err := h.tickets.ListForHolder(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

// HandleMineValid returns the calling user's unredeemed tickets.
//
// HTTP: GET /api/v1/tickets/mine/valid
func (h *TicketHandler) HandleMineValid(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated())
		return
	}

	tickets, err := h.tickets.ListValidForHolder(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

// HandleRedeem marks a ticket expended. Admin only; the first call wins and
// every repeat gets already_expended. POST because it mutates state — a GET
// here could be triggered by a link prefetcher.
//
// HTTP: POST /api/v1/tickets/redeem/{ticket_id}
func (h *TicketHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")
	if ticketID == "" {
		http.Error(w, "Invalid ticket ID", http.StatusBadRequest)
		return
	}

	if err := h.tickets.Redeem(r.Context(), ticketID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "redeemed", "ticket_id": ticketID})
}

// HandlePass serves the wallet pass document for a ticket.
//
// HTTP: GET /api/v1/passes/{ticket_id}?token=...
//
// Two ways in: a session whose user holds the ticket (or is an admin), or a
// signed pass token in the query string. Wallet apps fetch passes with a
// bare GET and carry no cookies, which is what the token path is for.
func (h *TicketHandler) HandlePass(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")
	if ticketID == "" {
		http.Error(w, "Invalid ticket ID", http.StatusBadRequest)
		return
	}

	if !h.authorizePass(r, ticketID) {
		writeError(w, apperror.Unauthenticated())
		return
	}

	payload, err := h.tickets.PassPayload(r.Context(), ticketID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("writing pass payload failed", slog.String("error", err.Error()))
	}
}

// authorizePass decides whether this request may download the pass for
// ticketID. Token validation binds the token to one specific ticket, so a
// leaked token cannot be replayed against another.
func (h *TicketHandler) authorizePass(r *http.Request, ticketID string) bool {
	if token := r.URL.Query().Get("token"); token != "" && h.passTokens != nil {
		subject, err := h.passTokens.Validate(token)
		if err == nil && subject == ticketID {
			return true
		}
		return false
	}

	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return false
	}
	if user.Role.IsAdmin() {
		return true
	}

	ticket, err := h.tickets.GetByID(r.Context(), ticketID)
	if err != nil {
		return false
	}
	return ticket.HolderID == user.ID
}
