package render

import (
	"bytes"
	"html"
	"html/template"
	"io"
)

// Card text fields are escaped by NewCard, so the template receives them as
// template.HTML and must not escape them a second time. Links go back to
// plain strings so html/template can filter their schemes.
var listTemplate = template.Must(template.New("list").Parse(`
{{- if eq .State 0 -}}
<p class="hint">Search for events to get started.</p>
{{- else if eq .State 1 -}}
<div class="no-results">No events match your search.</div>
{{- else -}}
<div class="results-grid">
{{- range .Cards}}
  <div class="event-card" id="event-{{.ID}}">
    <div class="event-header">
      <h3 class="event-name">{{.Title}}</h3>
      <p class="event-location">{{.Location}}</p>
    </div>
    <div class="event-meta">
      <span class="tag tag-type">{{index .Tags 0}}</span>
      <span class="tag tag-genre">{{index .Tags 1}}</span>
    </div>
    <p class="event-date">{{.When}}</p>
    {{- if .Description}}
    <p class="event-description">{{.Description}}</p>
    {{- end}}
    <div class="event-contact">
      {{- if .Email}}<div><a href="{{.EmailHref}}">{{.Email}}</a></div>{{end}}
      {{- if .Phone}}<div>{{.Phone}}</div>{{end}}
    </div>
    <div class="event-actions">
    {{- range .Actions}}
      <a class="btn btn-small btn-{{.Kind}}" href="{{.Href}}"{{if eq .Kind "website"}} target="_blank" rel="noopener noreferrer"{{end}}>{{.Label}}</a>
    {{- end}}
    </div>
  </div>
{{- end}}
</div>
{{- end}}
`))

type htmlCard struct {
	ID, Title, Location, When, Description, Email, Phone template.HTML
	EmailHref                                            string
	Tags                                                 [2]template.HTML
	Actions                                              []htmlAction
}

type htmlAction struct {
	Kind  string
	Label string
	Href  string
}

// HTML writes the markup for a listing in the given state.
func HTML(w io.Writer, cards []Card, state ListState) error {
	view := struct {
		State ListState
		Cards []htmlCard
	}{State: state, Cards: make([]htmlCard, 0, len(cards))}

	for _, c := range cards {
		hc := htmlCard{
			ID:          template.HTML(c.ID),
			Title:       template.HTML(c.Title),
			Location:    template.HTML(c.Location),
			When:        template.HTML(c.When),
			Description: template.HTML(c.Description),
			Email:       template.HTML(c.Email),
			Phone:       template.HTML(c.Phone),
			EmailHref:   html.UnescapeString(c.EmailHref),
			Tags:        [2]template.HTML{template.HTML(c.Tags[0]), template.HTML(c.Tags[1])},
		}
		for _, a := range c.Actions {
			hc.Actions = append(hc.Actions, htmlAction{Kind: string(a.Kind), Label: a.Label, Href: html.UnescapeString(a.Href)})
		}
		view.Cards = append(view.Cards, hc)
	}
	return listTemplate.Execute(w, view)
}

// HTMLFragment is HTML rendered into a value that page templates can embed.
func HTMLFragment(cards []Card, state ListState) (template.HTML, error) {
	var buf bytes.Buffer
	if err := HTML(&buf, cards, state); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
