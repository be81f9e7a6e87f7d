package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/auth"
	"github.com/ma-central/macsvc/internal/service"
	"github.com/ma-central/macsvc/internal/session"
)

// AuthHandler owns the account endpoints: create, login, logout, whoami,
// and delete. Login is where the session registry is populated; the
// snapshot stored there is a copy of the user at that instant, which is why
// whoami re-reads the store instead of echoing the snapshot.
type AuthHandler struct {
	authSvc    *service.AuthService
	sessions   *session.Registry
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(authSvc *service.AuthService, sessions *session.Registry, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc:    authSvc,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

type createRequest struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// userLite is the public projection of a user returned by account
// endpoints. No hash, no role escalation surface.
type userLite struct {
	ID        int64  `json:"id"`
	StudentID string `json:"student_id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Lifetime  int64  `json:"lifetime"`
	Score     int64  `json:"score"`
}

// HandleCreate registers a new account.
//
// HTTP: POST /api/v1/auth/create
func (h *AuthHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	user, err := h.authSvc.Register(r.Context(), req.StudentID, req.FullName, req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, userLite{
		ID:        user.ID,
		StudentID: user.StudentID,
		Username:  user.Username,
		FullName:  user.FullName,
		Lifetime:  user.Lifetime,
		Score:     user.Score,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials, establishes a session, and sets the
// session cookie.
//
// HTTP: POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	user, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token := session.NewToken()
	h.sessions.Establish(token, *user)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "id": user.ID})
}

// HandleLogout revokes the session and clears the cookie.
//
// HTTP: GET /api/v1/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.sessions.Revoke(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

type whoamiResponse struct {
	ID       int64 `json:"id"`
	Score    int64 `json:"score"`
	Lifetime int64 `json:"lifetime"`
}

// HandleWhoami confirms the session and returns current point totals.
//
// HTTP: GET /api/v1/auth/whoami
//
// The session snapshot is identity only; score and lifetime come from a
// fresh read so a ledger change since login is always visible.
func (h *AuthHandler) HandleWhoami(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated())
		return
	}

	user, err := h.authSvc.GetByID(r.Context(), snapshot.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, whoamiResponse{
		ID:       user.ID,
		Score:    user.Score,
		Lifetime: user.Lifetime,
	})
}

// HandleDelete removes the calling user's account after re-verifying the
// password, then revokes every session the account holds.
//
// HTTP: POST /api/v1/auth/delete
//
// The body's username must match the session: otherwise the deleted
// account and the revoked sessions would belong to different users, and
// the named account's live sessions would outlast it.
func (h *AuthHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated())
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.Username != snapshot.Username {
		writeError(w, apperror.Forbidden("accounts can only be deleted by their owner"))
		return
	}

	if err := h.authSvc.Delete(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, err)
		return
	}

	h.sessions.RevokeUser(snapshot.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
