// Package web serves the server-rendered frontend: the searchable listing,
// the submission form, sign-in and the owner dashboard.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/handler"
	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/normalize"
	"github.com/Shivanand-hulikatti/spotlight/internal/render"
	"github.com/Shivanand-hulikatti/spotlight/internal/search"
	"github.com/Shivanand-hulikatti/spotlight/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// SubmitFailed is shown when a valid submission could not be stored.
const SubmitFailed = "Failed to submit event. Please try again."

var pages = map[string]*template.Template{
	"index":     parsePage("index.html"),
	"login":     parsePage("login.html"),
	"dashboard": parsePage("dashboard.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

// notices maps the ?notice= codes used in redirects to toast text.
var notices = map[string]struct{ kind, text string }{
	"submitted":  {"success", "Event submitted successfully!"},
	"registered": {"success", "Account created successfully!"},
	"logged_in":  {"success", "Welcome back!"},
	"logged_out": {"success", "Logged out successfully"},
	"deleted":    {"success", "Event deleted successfully"},
	"confirm":    {"error", "Please confirm the deletion."},
	"forbidden":  {"error", "You can only delete events you created."},
	"missing":    {"error", "Event not found."},
	"failed":     {"error", "Something went wrong. Please try again."},
}

// Handler serves the frontend pages.
type Handler struct {
	events *service.EventService
	auth   *service.AuthService
	authH  *handler.AuthHandler
	log    *logrus.Logger
	now    func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(events *service.EventService, auth *service.AuthService, authH *handler.AuthHandler, log *logrus.Logger) *Handler {
	return &Handler{events: events, auth: auth, authH: authH, log: log, now: time.Now}
}

// Register mounts the page routes on r. r must already run the session
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/submit", h.Submit)
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Post("/register", h.RegisterUser)
	r.Post("/logout", h.Logout)
	r.Get("/dashboard", h.Dashboard)
	r.Post("/dashboard/events/{id}/delete", h.DeleteEvent)
}

type page struct {
	Title      string
	User       *model.User
	Notice     string
	NoticeKind string
}

func (h *Handler) newPage(r *http.Request, title string) page {
	p := page{Title: title, User: handler.UserFrom(r.Context())}
	if n, ok := notices[r.URL.Query().Get("notice")]; ok {
		p.Notice, p.NoticeKind = n.text, n.kind
	}
	return p
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages[name].ExecuteTemplate(w, "layout", data); err != nil {
		h.log.WithError(err).WithField("page", name).Error("render page")
	}
}

// ─── Listing and submission ───────────────────────────────────────────────────

type formState struct {
	Values map[string]string
	Errors []string
}

type indexPage struct {
	page
	Criteria     search.Criteria
	SortKey      string
	Searched     bool
	Count        int
	List         template.HTML
	Types        []string
	Genres       []string
	Form         formState
	AuthRequired bool
}

// Index handles GET /
// The stored events are filtered in memory with the same engine the
// terminal client uses. With no criteria every event is listed; the hint
// shows only when the events could not be loaded.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.index(w, r, http.StatusOK, formState{Values: map[string]string{}}, false)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request, status int, form formState, authRequired bool) {
	all, err := h.events.ListEvents(r.Context(), model.ListFilter{})
	loaded := err == nil
	if !loaded {
		h.log.WithError(err).Error("load events for listing")
		all = []model.Event{}
	}

	q := r.URL.Query()
	crit := search.Criteria{
		Term:  q.Get("q"),
		Type:  q.Get("type"),
		Genre: q.Get("genre"),
		Sort:  search.ParseSortKey(q.Get("sort")),
	}
	shown := search.Apply(all, crit)
	list, err := render.HTMLFragment(render.Cards(shown), render.StateOf(loaded, len(shown)))
	if err != nil {
		h.log.WithError(err).Error("render listing")
	}

	data := indexPage{
		page:         h.newPage(r, "Events"),
		Criteria:     crit,
		SortKey:      string(crit.Sort),
		Searched:     loaded,
		Count:        len(shown),
		List:         list,
		Types:        model.EventTypes,
		Genres:       genres(all),
		Form:         form,
		AuthRequired: authRequired,
	}
	if form.Errors != nil || authRequired {
		data.Notice, data.NoticeKind = "", ""
	}
	h.renderPage(w, status, "index", data)
}

func genres(events []model.Event) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range events {
		if e.Genre != "" && !seen[e.Genre] {
			seen[e.Genre] = true
			out = append(out, e.Genre)
		}
	}
	slices.Sort(out)
	return out
}

var formFields = []string{
	model.FieldName, model.FieldVenueName, model.FieldCity, model.FieldState, model.FieldDate,
	model.FieldTime, model.FieldType, model.FieldGenre, model.FieldDescription,
	model.FieldContactEmail, model.FieldContactPhone, model.FieldWebsite,
}

// Submit handles POST /submit
// Validation runs before the sign-in check so a rejected form never asks
// the user to log in. Entered values survive every failure.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	values := make(map[string]string, len(formFields))
	for _, f := range formFields {
		values[f] = r.PostForm.Get(f)
	}

	ev, err := normalize.Normalize(values, normalize.FormRules)
	if err != nil {
		var verr *normalize.ValidationError
		if !errors.As(err, &verr) {
			h.log.WithError(err).Error("normalize submission")
			verr = &normalize.ValidationError{Errors: []string{SubmitFailed}}
		}
		h.index(w, r, http.StatusBadRequest, formState{Values: values, Errors: verr.Errors}, false)
		return
	}

	user := handler.UserFrom(r.Context())
	if user == nil {
		h.index(w, r, http.StatusUnauthorized, formState{Values: values}, true)
		return
	}

	if _, err := h.events.CreateEvent(r.Context(), user, ev.Input()); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Warn("submission failed")
		h.index(w, r, http.StatusInternalServerError, formState{Values: values, Errors: []string{SubmitFailed}}, false)
		return
	}
	http.Redirect(w, r, "/?notice=submitted", http.StatusSeeOther)
}

// ─── Sign-in ──────────────────────────────────────────────────────────────────

type loginPage struct {
	page
	Next   string
	Name   string
	Email  string
	Errors []string
}

// LoginPage handles GET /login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, "login", loginPage{page: h.newPage(r, "Login"), Next: safeNext(r.URL.Query().Get("next"))})
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req := model.LoginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
	next := safeNext(r.FormValue("next"))

	_, token, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.renderPage(w, http.StatusUnauthorized, "login", loginPage{
			page: h.newPage(r, "Login"), Next: next, Email: req.Email, Errors: authMessages(err, "Login failed. Please try again."),
		})
		return
	}
	h.authH.SetCookie(w, token)
	http.Redirect(w, r, withNotice(next, "logged_in"), http.StatusSeeOther)
}

// RegisterUser handles POST /register
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	req := model.RegisterRequest{Name: r.FormValue("name"), Email: r.FormValue("email"), Password: r.FormValue("password")}
	next := safeNext(r.FormValue("next"))

	_, token, err := h.auth.Register(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, model.ErrEmailTaken) {
			status = http.StatusConflict
		}
		h.renderPage(w, status, "login", loginPage{
			page: h.newPage(r, "Login"), Next: next, Name: req.Name, Email: req.Email, Errors: authMessages(err, "Registration failed. Please try again."),
		})
		return
	}
	h.authH.SetCookie(w, token)
	http.Redirect(w, r, withNotice(next, "registered"), http.StatusSeeOther)
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), handler.TokenFrom(r.Context())); err != nil {
		h.log.WithError(err).Warn("logout failed")
	}
	h.authH.ClearCookie(w)
	http.Redirect(w, r, "/?notice=logged_out", http.StatusSeeOther)
}

func authMessages(err error, fallback string) []string {
	var verr *normalize.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Errors
	case errors.Is(err, model.ErrEmailTaken):
		return []string{"This email is already registered."}
	case errors.Is(err, model.ErrInvalidCredentials):
		return []string{"Invalid email or password."}
	default:
		return []string{fallback}
	}
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

func withNotice(target, code string) string {
	u, err := url.Parse(target)
	if err != nil {
		return "/?notice=" + code
	}
	q := u.Query()
	q.Set("notice", code)
	u.RawQuery = q.Encode()
	return u.String()
}

// ─── Dashboard ────────────────────────────────────────────────────────────────

type dashboardRow struct {
	ID, Title, Location, When template.HTML
	RawID                     string
}

type dashboardPage struct {
	page
	Total    int
	Upcoming int
	Rows     []dashboardRow
}

// Dashboard handles GET /dashboard
// It lists the signed-in user's events with totals and delete controls.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := handler.UserFrom(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login?next=/dashboard", http.StatusSeeOther)
		return
	}

	mine, err := h.events.ListEvents(r.Context(), model.ListFilter{CreatedBy: user.ID})
	if err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("load dashboard")
		http.Redirect(w, r, "/?notice=failed", http.StatusSeeOther)
		return
	}

	data := dashboardPage{
		page:     h.newPage(r, "Dashboard"),
		Total:    len(mine),
		Upcoming: search.Upcoming(mine, h.now()),
	}
	for i, c := range render.Cards(mine) {
		data.Rows = append(data.Rows, dashboardRow{
			ID:       template.HTML(c.ID),
			Title:    template.HTML(c.Title),
			Location: template.HTML(c.Location),
			When:     template.HTML(c.When),
			RawID:    mine[i].ID,
		})
	}
	h.renderPage(w, http.StatusOK, "dashboard", data)
}

// DeleteEvent handles POST /dashboard/events/{id}/delete
// Nothing is deleted unless the form carries confirm=yes.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	user := handler.UserFrom(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login?next=/dashboard", http.StatusSeeOther)
		return
	}
	if r.FormValue("confirm") != "yes" {
		http.Redirect(w, r, "/dashboard?notice=confirm", http.StatusSeeOther)
		return
	}

	notice := "deleted"
	if err := h.events.DeleteEvent(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		switch {
		case errors.Is(err, model.ErrForbidden):
			notice = "forbidden"
		case errors.Is(err, model.ErrNotFound):
			notice = "missing"
		default:
			h.log.WithError(err).WithField("user_id", user.ID).Error("delete event")
			notice = "failed"
		}
	}
	http.Redirect(w, r, "/dashboard?notice="+notice, http.StatusSeeOther)
}
