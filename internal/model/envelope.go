package model

import "time"

// ErrorResponse is the shared JSON error envelope.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Path    string   `json:"path,omitempty"`
}

// HealthResponse answers GET /api/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

// EventListResponse answers GET /api/events.
type EventListResponse struct {
	Success bool    `json:"success"`
	Count   int     `json:"count"`
	Events  []Event `json:"events"`
}

// EventResponse wraps a single event.
type EventResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Event   *Event `json:"event,omitempty"`
}

// StatsResponse answers GET /api/stats.
type StatsResponse struct {
	Success bool   `json:"success"`
	Stats   *Stats `json:"stats"`
}

// AuthResponse is returned by register, login and me.
type AuthResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Token   string `json:"token,omitempty"`
}

// StatusResponse carries only the outcome flag and an optional message.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// EventNotice is published to the message broker when an event changes.
type EventNotice struct {
	NoticeID      string    `json:"notice_id"`
	CorrelationID string    `json:"correlation_id"`
	Kind          string    `json:"kind"`
	Timestamp     time.Time `json:"timestamp"`
	Event         Event     `json:"event"`
}

// Notice kinds, also used as routing keys.
const (
	NoticeEventCreated = "event.created"
	NoticeEventUpdated = "event.updated"
	NoticeEventDeleted = "event.deleted"
)
