package handler

import (
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"devtrack/internal/auth"
	"devtrack/internal/middleware"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	errorType := "invalid_request_error"
	switch {
	case status == http.StatusNotFound:
		errorType = "not_found_error"
	case status == http.StatusConflict:
		errorType = "conflict_error"
	case status >= http.StatusInternalServerError:
		errorType = "server_error"
	}
	auth.WriteJSONError(w, status, message, errorType)
}

// decodeJSON reads a bounded JSON body into v and writes the error
// response itself when it fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// callerID returns the authenticated user. Routes are mounted behind
// RequireAuth, so a missing id is answered with 401.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		auth.WriteUnauthorized(w)
		return "", false
	}
	return userID, true
}
