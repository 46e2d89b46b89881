// Package model defines the core domain types for the music events listing.
package model

import "time"

// DateLayout is the calendar-date form used for Event.Date.
const DateLayout = "2006-01-02"

// TimeLayout is the 24-hour clock form used for Event.Time.
const TimeLayout = "15:04"

// Event types offered by the submission form. The set is open: stored
// events may carry any other value.
const (
	TypeOpenMic    = "Open Mic"
	TypeShowcase   = "Showcase"
	TypeGigNight   = "Gig Night"
	TypeJamSession = "Jam Session"
	TypeFestival   = "Festival"
)

// Provenance tags for Event.Source.
const (
	SourceManual  = "manual"
	SourceScraper = "scraper"
)

// EventTypes lists the well-known event types in display order.
var EventTypes = []string{TypeOpenMic, TypeShowcase, TypeGigNight, TypeJamSession, TypeFestival}

// Event is a single music-performance listing.
// Optional text fields are empty strings when absent, never omitted.
type Event struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	VenueName    string     `json:"venue_name"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Type         string     `json:"type"`
	Genre        string     `json:"genre"`
	Description  string     `json:"description"`
	ContactEmail string     `json:"contact_email"`
	ContactPhone string     `json:"contact_phone"`
	Website      string     `json:"website"`
	Source       string     `json:"source"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Day parses Date as a calendar day in UTC.
func (e *Event) Day() (time.Time, error) {
	return time.Parse(DateLayout, e.Date)
}

// OwnedBy reports whether userID authored the event. Anonymous and seeded
// events are owned by nobody.
func (e *Event) OwnedBy(userID string) bool {
	return e.CreatedBy != "" && e.CreatedBy == userID
}

// EventInput is the raw, not yet normalized payload for creating or
// updating an event. Every field is free text as typed by a user or read
// from a fixture.
type EventInput struct {
	Name         string `json:"name" yaml:"name"`
	VenueName    string `json:"venue_name" yaml:"venue_name"`
	City         string `json:"city" yaml:"city"`
	State        string `json:"state" yaml:"state"`
	Date         string `json:"date" yaml:"date"`
	Time         string `json:"time" yaml:"time"`
	Type         string `json:"type" yaml:"type"`
	Genre        string `json:"genre" yaml:"genre"`
	Description  string `json:"description" yaml:"description"`
	ContactEmail string `json:"contact_email" yaml:"contact_email"`
	ContactPhone string `json:"contact_phone" yaml:"contact_phone"`
	Website      string `json:"website" yaml:"website"`
	Source       string `json:"source,omitempty" yaml:"source"`
}

// Fields returns the input as a field-key to value mapping, the shape the
// normalizer consumes.
func (in EventInput) Fields() map[string]string {
	return map[string]string{
		FieldName:         in.Name,
		FieldVenueName:    in.VenueName,
		FieldCity:         in.City,
		FieldState:        in.State,
		FieldDate:         in.Date,
		FieldTime:         in.Time,
		FieldType:         in.Type,
		FieldGenre:        in.Genre,
		FieldDescription:  in.Description,
		FieldContactEmail: in.ContactEmail,
		FieldContactPhone: in.ContactPhone,
		FieldWebsite:      in.Website,
		FieldSource:       in.Source,
	}
}

// InputFromFields is the inverse of EventInput.Fields.
func InputFromFields(f map[string]string) EventInput {
	return EventInput{
		Name:         f[FieldName],
		VenueName:    f[FieldVenueName],
		City:         f[FieldCity],
		State:        f[FieldState],
		Date:         f[FieldDate],
		Time:         f[FieldTime],
		Type:         f[FieldType],
		Genre:        f[FieldGenre],
		Description:  f[FieldDescription],
		ContactEmail: f[FieldContactEmail],
		ContactPhone: f[FieldContactPhone],
		Website:      f[FieldWebsite],
		Source:       f[FieldSource],
	}
}

// Input converts a stored event back to its editable form.
func (e *Event) Input() EventInput {
	return EventInput{
		Name:         e.Name,
		VenueName:    e.VenueName,
		City:         e.City,
		State:        e.State,
		Date:         e.Date,
		Time:         e.Time,
		Type:         e.Type,
		Genre:        e.Genre,
		Description:  e.Description,
		ContactEmail: e.ContactEmail,
		ContactPhone: e.ContactPhone,
		Website:      e.Website,
		Source:       e.Source,
	}
}

// Field keys shared by forms, JSON payloads and validation messages.
const (
	FieldName         = "name"
	FieldVenueName    = "venue_name"
	FieldCity         = "city"
	FieldState        = "state"
	FieldDate         = "date"
	FieldTime         = "time"
	FieldType         = "type"
	FieldGenre        = "genre"
	FieldDescription  = "description"
	FieldContactEmail = "contact_email"
	FieldContactPhone = "contact_phone"
	FieldWebsite      = "website"
	FieldSource       = "source"
)

// ListFilter narrows a listing. Zero values impose no constraint.
type ListFilter struct {
	City      string
	State     string
	Type      string
	Genre     string
	DateFrom  string
	DateTo    string
	Search    string
	CreatedBy string
	Sort      string
}

// CityCount is one row of the top-cities aggregate.
type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// Stats summarises the stored events.
type Stats struct {
	TotalEvents  int            `json:"totalEvents"`
	EventsByType map[string]int `json:"eventsByType"`
	TopCities    []CityCount    `json:"topCities"`
}

// User is an account known to the identity service.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the payload for signing in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
