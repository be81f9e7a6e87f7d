package auth

import (
	"context"
	"net/http"

	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/session"
)

// CookieName is the session cookie set at login and read on every
// authenticated request.
const CookieName = "macsvc_session"

// contextKey is unexported so only this package can read or write the user
// snapshot in a request context.
type contextKey string

const userKey contextKey = "user"

// RequireSession resolves the session cookie through the registry and
// stores the user snapshot in the request context. Requests with no cookie,
// an unknown token, or an expired session get 401 and stop here.
func RequireSession(registry *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, registry)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin allows only admin sessions through. Must be mounted inside
// RequireSession; a request that reaches it without a snapshot in context
// is rejected as unauthenticated rather than assumed ordinary.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}
			if !user.Role.IsAdmin() {
				http.Error(w, `{"error":"forbidden","message":"admin role required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalSession attaches the user snapshot when a valid session cookie is
// present but never blocks the request. Used on the pass download endpoint,
// which also accepts a signed token in place of a session.
func OptionalSession(registry *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := resolveUser(r, registry); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext retrieves the session snapshot placed by the middleware.
// The snapshot carries identity and role only — re-read the store for
// anything balance-sensitive.
func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userKey).(model.User)
	return user, ok && user.ID != 0
}

func resolveUser(r *http.Request, registry *session.Registry) (model.User, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return model.User{}, err
	}
	return registry.Resolve(cookie.Value)
}

func writeUnauthorized(w http.ResponseWriter) {
	http.Error(w, `{"error":"unauthenticated","message":"valid authentication required"}`, http.StatusUnauthorized)
}
