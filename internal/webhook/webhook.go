// Package webhook exposes the event-sync handlers on a single HTTP endpoint
// for the event bus to deliver to.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"devtrack/internal/auth"
	"devtrack/internal/event"
)

// MaxBodyBytes bounds a single delivery.
const MaxBodyBytes = 1 << 20

// EventHandler applies one event. A returned error asks the bus to retry.
type EventHandler interface {
	Handle(ctx context.Context, e event.Event) error
}

// Handler serves POST deliveries and GET introspection.
type Handler struct {
	verifier *Verifier
	events   EventHandler
	logger   *slog.Logger
}

func NewHandler(verifier *Verifier, events EventHandler, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifier, events: events, logger: logger}
}

type deliveryResponse struct {
	Status string `json:"status"`
	Event  string `json:"event,omitempty"`
}

type introspection struct {
	Enabled   bool     `json:"enabled"`
	Functions []string `json:"functions"`
	Count     int      `json:"function_count"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.deliver(w, r)
	case http.MethodGet:
		h.describe(w)
	default:
		w.Header().Set("Allow", "GET, POST")
		auth.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed", "invalid_request_error")
	}
}

// Functions lists the events the endpoint serves, or none when disabled.
func (h *Handler) Functions() []string {
	if !h.verifier.Enabled() {
		return []string{}
	}
	return event.Names
}

func (h *Handler) describe(w http.ResponseWriter) {
	fns := h.Functions()
	writeJSON(w, http.StatusOK, introspection{Enabled: h.verifier.Enabled(), Functions: fns, Count: len(fns)})
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			auth.WriteJSONError(w, http.StatusRequestEntityTooLarge, "request body too large", "invalid_request_error")
			return
		}
		auth.WriteJSONError(w, http.StatusBadRequest, "failed to read request body", "invalid_request_error")
		return
	}

	if err := h.verifier.Verify(r.Header.Get(SignatureHeader), body); err != nil {
		h.logger.WarnContext(ctx, "rejected webhook delivery", "error", err)
		auth.WriteJSONError(w, http.StatusUnauthorized, "invalid signature", "authentication_error")
		return
	}

	env, err := event.DecodeEnvelope(body)
	if err != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error(), "invalid_request_error")
		return
	}

	ev, err := event.Decode(env.Name, env.Data)
	if errors.Is(err, event.ErrUnknownEvent) {
		h.logger.InfoContext(ctx, "ignoring unsubscribed event", "event", env.Name)
		writeJSON(w, http.StatusAccepted, deliveryResponse{Status: "ignored", Event: env.Name})
		return
	}
	if err != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error(), "invalid_request_error")
		return
	}

	if err := h.events.Handle(ctx, ev); err != nil {
		h.logger.ErrorContext(ctx, "event handler failed, delivery will be retried",
			"event", env.Name, "delivery_id", env.ID, "error", err)
		auth.WriteJSONError(w, http.StatusInternalServerError, "event handler failed", "server_error")
		return
	}

	writeJSON(w, http.StatusOK, deliveryResponse{Status: "ok", Event: ev.Name()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
