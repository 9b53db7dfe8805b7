package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukapos/dukapos/internal/platform/httpx"
	"github.com/dukapos/dukapos/internal/shared"
)

// SessionCookie is the cookie used as a fallback token carrier for browsers.
const SessionCookie = "duka_session"

// Middleware resolves session tokens into request-scoped claims.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAuth rejects requests without a valid session and stores the
// resolved claims in the request context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing session token")
			return
		}
		claims, err := m.Service.Resolve(r.Context(), token)
		if err != nil {
			if err != ErrSessionNotFound && m.Logger != nil {
				m.Logger.Error("resolve session", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired session")
			return
		}
		ctx := shared.ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOwner gates a route to the OWNER role. Must run inside RequireAuth.
func (m Middleware) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := shared.ClaimsFromContext(r.Context())
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing session token")
			return
		}
		if !claims.IsOwner() {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFromRequest extracts the session token from the Authorization header
// or the session cookie.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
