// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/normalize"
	"github.com/Shivanand-hulikatti/spotlight/internal/service"
)

// EventHandler holds the HTTP handlers for the events API.
type EventHandler struct {
	svc *service.EventService
	log *logrus.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *logrus.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeFailure maps a service error onto the error envelope. Anything not
// in the domain taxonomy is logged and reported as a 500 with fallback.
func writeFailure(w http.ResponseWriter, r *http.Request, log *logrus.Logger, err error, fallback string) {
	var verr *normalize.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "Validation failed", Errors: verr.Errors})
	case errors.Is(err, model.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, model.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password.")
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "You can only modify events you created")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, model.ErrEmailTaken):
		writeError(w, http.StatusConflict, "This email is already registered.")
	default:
		log.WithError(err).WithField("path", r.URL.Path).Error(fallback)
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: fallback, Details: err.Error()})
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// ListEvents handles GET /api/events
// Query params: city, state, type, genre, date_from, date_to, search,
// created_by, sort.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.ListFilter{
		City:      q.Get("city"),
		State:     q.Get("state"),
		Type:      q.Get("type"),
		Genre:     q.Get("genre"),
		DateFrom:  q.Get("date_from"),
		DateTo:    q.Get("date_to"),
		Search:    q.Get("search"),
		CreatedBy: q.Get("created_by"),
		Sort:      q.Get("sort"),
	}

	events, err := h.svc.ListEvents(r.Context(), f)
	if err != nil {
		writeFailure(w, r, h.log, err, "Failed to fetch events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, model.EventListResponse{Success: true, Count: len(events), Events: events})
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, h.log, err, "Failed to fetch event")
		return
	}

	writeJSON(w, http.StatusOK, model.EventResponse{Success: true, Event: event})
}

// CreateEvent handles POST /api/events
// The signed-in user becomes the owner.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), UserFrom(r.Context()), in)
	if err != nil {
		writeFailure(w, r, h.log, err, "Failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, model.EventResponse{Success: true, Message: "Event created successfully", Event: event})
}

// UpdateEvent handles PUT /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeFailure(w, r, h.log, err, "Failed to update event")
		return
	}

	writeJSON(w, http.StatusOK, model.EventResponse{Success: true, Message: "Event updated successfully", Event: event})
}

// DeleteEvent handles DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, r, h.log, err, "Failed to delete event")
		return
	}

	writeJSON(w, http.StatusOK, model.StatusResponse{Success: true, Message: "Event deleted successfully"})
}

// Stats handles GET /api/stats
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeFailure(w, r, h.log, err, "Failed to fetch statistics")
		return
	}

	writeJSON(w, http.StatusOK, model.StatsResponse{Success: true, Stats: stats})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck returns the GET /api/health handler for the named service.
func HealthCheck(serviceName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
			Service:   serviceName,
		})
	}
}

// NotFound answers unknown routes with the JSON envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "Route not found", Path: r.URL.Path})
}
