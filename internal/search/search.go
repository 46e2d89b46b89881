// Package search filters and orders an in-memory collection of events.
//
// The same semantics back the server-side listing, so a client filtering
// locally and a client asking the API for a filtered list see the same
// result.
package search

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
)

// SortKey selects the ordering of a result.
type SortKey string

const (
	SortDate SortKey = "date"
	SortName SortKey = "name"
	SortCity SortKey = "city"
)

// ParseSortKey maps user input to a SortKey, defaulting to SortDate.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortName:
		return SortName
	case SortCity:
		return SortCity
	default:
		return SortDate
	}
}

// Criteria describes one search.
type Criteria struct {
	Term  string
	Type  string
	Genre string
	Sort  SortKey
}

// Empty reports whether the criteria constrain nothing.
func (c Criteria) Empty() bool {
	return strings.TrimSpace(c.Term) == "" && c.Type == "" && c.Genre == ""
}

// Matches reports whether e satisfies the text term, the type constraint
// and the genre constraint.
func Matches(e *model.Event, c Criteria) bool {
	if c.Type != "" && e.Type != c.Type {
		return false
	}
	if c.Genre != "" && e.Genre != c.Genre {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(c.Term))
	if term == "" {
		return true
	}
	for _, field := range []string{e.Name, e.City, e.State, e.Genre, e.Description} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Apply returns the matching events in the order selected by c.Sort.
// The input slice is left untouched and the result is never nil.
func Apply(events []model.Event, c Criteria) []model.Event {
	out := make([]model.Event, 0, len(events))
	for i := range events {
		if Matches(&events[i], c) {
			out = append(out, events[i])
		}
	}
	Sort(out, c.Sort)
	return out
}

// Sorted returns a sorted copy of events.
func Sorted(events []model.Event, key SortKey) []model.Event {
	out := slices.Clone(events)
	if out == nil {
		out = []model.Event{}
	}
	Sort(out, key)
	return out
}

// Sort orders events in place. Equal elements keep their relative order.
func Sort(events []model.Event, key SortKey) {
	switch key {
	case SortName:
		col := collate.New(language.English)
		slices.SortStableFunc(events, func(a, b model.Event) int {
			return col.CompareString(a.Name, b.Name)
		})
	case SortCity:
		col := collate.New(language.English)
		slices.SortStableFunc(events, func(a, b model.Event) int {
			return col.CompareString(a.City, b.City)
		})
	default:
		days := make(map[string]time.Time, len(events))
		for i := range events {
			if d, err := events[i].Day(); err == nil {
				days[events[i].Date] = d
			}
		}
		slices.SortStableFunc(events, func(a, b model.Event) int {
			return compareDays(days, a.Date, b.Date)
		})
	}
}

// compareDays orders parseable dates ascending and puts unparseable ones last.
func compareDays(days map[string]time.Time, a, b string) int {
	da, okA := days[a]
	db, okB := days[b]
	switch {
	case okA && okB:
		return da.Compare(db)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return 0
	}
}

// Upcoming counts the events dated on or after the calendar day of now.
// Unparseable dates are not counted.
func Upcoming(events []model.Event, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n := 0
	for i := range events {
		if d, err := events[i].Day(); err == nil && !d.Before(today) {
			n++
		}
	}
	return n
}
