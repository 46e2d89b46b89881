package render

import (
	"fmt"
	"html"
	"io"
)

// Text writes a listing for a terminal. Card fields are unescaped on the
// way out because a terminal does not interpret entities.
func Text(w io.Writer, cards []Card, state ListState) error {
	switch state {
	case NotSearched:
		_, err := fmt.Fprintln(w, "Search for events to get started.")
		return err
	case NoResults:
		_, err := fmt.Fprintln(w, "No events match your search.")
		return err
	}

	for i, c := range cards {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		lines := []string{
			fmt.Sprintf("%s  [%s]", c.Title, c.ID),
			"  " + c.Location,
			fmt.Sprintf("  %s | %s", c.Tags[0], c.Tags[1]),
			"  " + c.When,
		}
		if c.Description != "" {
			lines = append(lines, "  "+c.Description)
		}
		if c.Email != "" {
			lines = append(lines, "  email: "+c.Email)
		}
		if c.Phone != "" {
			lines = append(lines, "  phone: "+c.Phone)
		}
		for _, a := range c.Actions {
			if a.Kind == ActionWebsite {
				lines = append(lines, "  web:   "+a.Href)
			}
		}
		for _, l := range lines {
			if _, err := fmt.Fprintln(w, html.UnescapeString(l)); err != nil {
				return err
			}
		}
	}
	return nil
}
