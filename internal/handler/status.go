package handler

import (
	"net/http"

	"devtrack/internal/config"
)

// Version is the reported service version.
const Version = "1.0.0"

func statusHandler(cfg *config.Config, functions int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":        "devtrack",
			"version":        Version,
			"status":         "operational",
			"environment":    cfg.Environment,
			"events_enabled": cfg.Events.Enabled(),
			"functions":      functions,
		})
	}
}
