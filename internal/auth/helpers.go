// Package auth provides request authentication helpers for the REST API.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

// SessionCookie is the cookie the identity provider's browser SDK stores
// the session token in.
const SessionCookie = "__session"

// Sentinel errors for token extraction failures.
// These can be used for debugging/logging but should NOT be exposed in responses.
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthScheme = errors.New("invalid authorization scheme: expected Bearer")
	ErrEmptyToken        = errors.New("empty bearer token")
)

// ExtractBearerToken extracts the session token from an
// "Authorization: Bearer <token>" header. Without an Authorization header
// it falls back to the session cookie sent by same-site browser requests.
func ExtractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			return c.Value, nil
		}
		return "", ErrMissingAuthHeader
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", ErrInvalidAuthScheme
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// APIError is the JSON error body returned by every endpoint.
type APIError struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error message and type.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// WriteJSONError writes {"error": {"message": "<message>", "type": "<errorType>"}}.
func WriteJSONError(w http.ResponseWriter, status int, message, errorType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
		},
	}); err != nil {
		slog.Error("failed to write JSON error response", "error", err)
	}
}

// WriteUnauthorized writes a 401 for a missing, malformed or invalid token.
func WriteUnauthorized(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusUnauthorized, "unauthorized", "authentication_error")
}

// WriteForbidden writes a 403 for an authenticated caller lacking access.
func WriteForbidden(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusForbidden, "forbidden", "authorization_error")
}
