// Package normalize trims, defaults and validates raw event fields before
// they are stored. The same rules serve the submission form, the HTTP API
// and the seeder; only the required-field set and the default provenance
// tag differ between them.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	websitePattern = regexp.MustCompile(`^https?://.+`)
)

// Rules parameterizes Normalize.
type Rules struct {
	// Required fields are reported, in this order, when blank.
	Required []string
	// DefaultSource is used when the input carries no provenance tag.
	DefaultSource string
}

// FormRules apply to events typed into the submission form.
var FormRules = Rules{
	Required: []string{
		model.FieldName,
		model.FieldCity,
		model.FieldState,
		model.FieldDate,
		model.FieldTime,
		model.FieldType,
		model.FieldGenre,
		model.FieldContactEmail,
		model.FieldDescription,
	},
	DefaultSource: model.SourceManual,
}

// APIRules apply to POST and PUT /api/events. Venue is optional because
// form submissions reach the store through the API.
var APIRules = Rules{
	Required: []string{
		model.FieldName,
		model.FieldCity,
		model.FieldState,
		model.FieldDate,
		model.FieldType,
		model.FieldGenre,
	},
	DefaultSource: model.SourceManual,
}

// SeedRules apply to fixture records loaded by the seeder.
var SeedRules = Rules{
	Required: []string{
		model.FieldName,
		model.FieldVenueName,
		model.FieldCity,
		model.FieldState,
		model.FieldDate,
		model.FieldType,
		model.FieldGenre,
	},
	DefaultSource: model.SourceScraper,
}

// ValidationError lists every problem found in an input, in rule order.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// Normalize validates raw and returns the trimmed, defaulted event.
// Missing required fields are all reported together; the format checks
// that follow stop at the first failure.
func Normalize(raw map[string]string, rules Rules) (model.Event, error) {
	f := make(map[string]string, len(raw))
	for k, v := range raw {
		f[k] = strings.TrimSpace(v)
	}

	var errs []string
	for _, field := range rules.Required {
		if f[field] == "" {
			errs = append(errs, fmt.Sprintf("%s is required", field))
		}
	}
	if len(errs) > 0 {
		return model.Event{}, &ValidationError{Errors: errs}
	}

	if msg := checkFormats(f); msg != "" {
		return model.Event{}, &ValidationError{Errors: []string{msg}}
	}

	source := f[model.FieldSource]
	if source == "" {
		source = rules.DefaultSource
	}

	return model.Event{
		Name:         f[model.FieldName],
		VenueName:    f[model.FieldVenueName],
		City:         f[model.FieldCity],
		State:        f[model.FieldState],
		Date:         f[model.FieldDate],
		Time:         f[model.FieldTime],
		Type:         f[model.FieldType],
		Genre:        f[model.FieldGenre],
		Description:  f[model.FieldDescription],
		ContactEmail: f[model.FieldContactEmail],
		ContactPhone: f[model.FieldContactPhone],
		Website:      f[model.FieldWebsite],
		Source:       source,
	}, nil
}

// NormalizeInput is Normalize over a typed payload.
func NormalizeInput(in model.EventInput, rules Rules) (model.Event, error) {
	return Normalize(in.Fields(), rules)
}

func checkFormats(f map[string]string) string {
	if email := f[model.FieldContactEmail]; email != "" && !ValidEmail(email) {
		return "contact_email must be a valid email address"
	}
	if site := f[model.FieldWebsite]; site != "" && !ValidWebsite(site) {
		return "website must start with http:// or https://"
	}
	if d := f[model.FieldDate]; d != "" {
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return "date must be a valid calendar date (YYYY-MM-DD)"
		}
	}
	if t := f[model.FieldTime]; t != "" {
		if _, err := time.Parse(model.TimeLayout, t); err != nil {
			return "time must be a 24-hour clock time (HH:MM)"
		}
	}
	return ""
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidWebsite reports whether s has an http or https scheme prefix.
func ValidWebsite(s string) bool {
	return websitePattern.MatchString(s)
}
