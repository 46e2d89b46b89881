// Package render projects events into presentation-agnostic display units.
//
// Every free-text field is HTML-escaped while the card is built, so any
// adapter that interpolates card fields into markup is safe by
// construction. Adapters live next to the projection: HTML for the web
// frontend and Text for the terminal client.
package render

import (
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
)

// Placeholders shown when a date or time cannot be displayed.
const (
	TimeTBA = "Time TBA"
	DateTBA = "Date TBA"
)

// ListState distinguishes the empty states of a listing.
type ListState int

const (
	// NotSearched means no load or search has completed yet.
	NotSearched ListState = iota
	// NoResults means a search completed and matched nothing.
	NoResults
	// Results means at least one card is available.
	Results
)

// StateOf returns the list state for a completed search with n results,
// or NotSearched when no search has run.
func StateOf(searched bool, n int) ListState {
	switch {
	case !searched:
		return NotSearched
	case n == 0:
		return NoResults
	default:
		return Results
	}
}

// ActionKind names a call to action on a card.
type ActionKind string

const (
	ActionEmail   ActionKind = "email"
	ActionWebsite ActionKind = "website"
)

// Action is a button-like affordance. Href is escaped.
type Action struct {
	Kind  ActionKind
	Label string
	Href  string
}

// Card is the display unit for one event. All string fields are already
// HTML-escaped.
type Card struct {
	ID          string
	Title       string
	Location    string
	Tags        [2]string
	When        string
	Description string
	Email       string
	EmailHref   string
	Phone       string
	Actions     []Action
}

// Cards projects events, in order, into display units.
func Cards(events []model.Event) []Card {
	cards := make([]Card, 0, len(events))
	for i := range events {
		cards = append(cards, NewCard(&events[i]))
	}
	return cards
}

// NewCard builds the display unit for a single event.
func NewCard(e *model.Event) Card {
	c := Card{
		ID:          Escape(e.ID),
		Title:       Escape(e.Name),
		Location:    Escape(e.City) + ", " + Escape(e.State),
		Tags:        [2]string{Escape(e.Type), Escape(e.Genre)},
		When:        FormatDate(e.Date) + " at " + FormatTime(e.Time),
		Description: Escape(e.Description),
		Phone:       Escape(e.ContactPhone),
	}
	if e.ContactEmail != "" {
		c.Email = Escape(e.ContactEmail)
		c.EmailHref = "mailto:" + c.Email
		c.Actions = append(c.Actions, Action{Kind: ActionEmail, Label: "Contact Venue", Href: c.EmailHref})
	}
	if e.Website != "" {
		c.Actions = append(c.Actions, Action{Kind: ActionWebsite, Label: "Visit Website", Href: Escape(e.Website)})
	}
	return c
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape replaces the five HTML-significant characters with entities.
func Escape(s string) string {
	return escaper.Replace(s)
}

// FormatDate renders a YYYY-MM-DD date as "Wednesday, October 22, 2025".
func FormatDate(s string) string {
	d, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return DateTBA
	}
	return d.Format("Monday, January 2, 2006")
}

// FormatTime renders a 24-hour HH:MM time as "7:00 PM". Missing or
// malformed times render as TimeTBA.
func FormatTime(s string) string {
	t, err := time.Parse(model.TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return TimeTBA
	}
	return t.Format("3:04 PM")
}
