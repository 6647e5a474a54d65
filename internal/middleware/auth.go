// Package middleware provides HTTP middleware for the REST API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"devtrack/internal/auth"
	"devtrack/internal/jwtauth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	userIDKey contextKey = "user_id"
	claimsKey contextKey = "claims"
)

// TokenVerifier validates a session token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwtauth.Claims, error)
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id from the request context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// Claims returns the verified session claims from the request context.
func Claims(ctx context.Context) (*jwtauth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtauth.Claims)
	return c, ok
}

// RequireAuth returns middleware that rejects requests without a valid
// session token and attaches the caller's user id to the request.
//
// Error responses:
//   - 401 Unauthorized: missing, malformed, expired or otherwise invalid token
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearerToken(r)
			if err != nil {
				auth.WriteUnauthorized(w)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.DebugContext(r.Context(), "session token rejected", "error", err)
				auth.WriteUnauthorized(w)
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID())
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
