package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ma-central/macsvc/internal/service"
)

// BoardHandler serves the lifetime-points leaderboard.
type BoardHandler struct {
	ledger *service.LedgerService
	logger *slog.Logger
}

func NewBoardHandler(ledger *service.LedgerService, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{ledger: ledger, logger: logger}
}

// HandleLifetimeTop returns the top users by cumulative lifetime points.
// An optional ?limit= query parameter caps the result; out-of-range values
// fall back to the service default.
//
// HTTP: GET /api/v1/board/lifetime/top
func (h *BoardHandler) HandleLifetimeTop(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	board, err := h.ledger.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}
