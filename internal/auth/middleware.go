package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// APIKeyHeader is the header carrying the admin API key
	APIKeyHeader = "X-API-Key"

	// sessionContextKey is the context key for the authenticated session ID
	sessionContextKey contextKey = "session"
)

// SessionMiddleware validates the Bearer token on incoming requests and
// stores the session ID in the request context.
func SessionMiddleware(manager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			claims, err := manager.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			sessionID, err := claims.GetSessionID()
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware rejects requests without the configured admin API key.
// When no admin key is configured, all admin routes are disabled.
func AdminMiddleware(adminAPIKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminAPIKey == "" {
				writeForbidden(w, "admin API not enabled")
				return
			}
			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" {
				writeUnauthorized(w, "missing API key")
				return
			}
			if key != adminAPIKey {
				writeForbidden(w, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext extracts the authenticated session ID from context
func SessionFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(sessionContextKey).(uuid.UUID)
	return id, ok
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

func writeForbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
