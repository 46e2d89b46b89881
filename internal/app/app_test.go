package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/render"
	"github.com/Shivanand-hulikatti/spotlight/internal/search"
)

type fakeStore struct {
	mu         sync.Mutex
	events     []model.Event
	failCreate error
	deleted    []string

	// slow makes List block for that city until release is closed.
	slow    string
	started chan struct{}
	release chan struct{}
}

func (s *fakeStore) List(_ context.Context, f model.ListFilter) ([]model.Event, error) {
	if s.slow != "" && f.City == s.slow {
		close(s.started)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Event{}
	for _, e := range s.events {
		if f.CreatedBy != "" && e.CreatedBy != f.CreatedBy {
			continue
		}
		if f.City != "" && e.City != f.City {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, in model.EventInput) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	ev := model.Event{ID: "ev-" + in.Name, Name: in.Name, City: in.City, Date: in.Date, Type: in.Type, Genre: in.Genre, CreatedBy: "u1"}
	s.events = append(s.events, ev)
	return &ev, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	s.events = slices.DeleteFunc(s.events, func(e model.Event) bool { return e.ID == id })
	return nil
}

type fakeIdentity struct {
	mu   sync.Mutex
	user *model.User
	subs []func(*model.User)
}

func (f *fakeIdentity) Register(_ context.Context, name, email, _ string) (*model.User, error) {
	f.set(&model.User{ID: "u1", Name: name, Email: email})
	return f.Current(), nil
}

func (f *fakeIdentity) Login(_ context.Context, email, _ string) (*model.User, error) {
	f.set(&model.User{ID: "u1", Name: "Ana", Email: email})
	return f.Current(), nil
}

func (f *fakeIdentity) Logout(context.Context) error {
	f.set(nil)
	return nil
}

func (f *fakeIdentity) Current() *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeIdentity) Subscribe(fn func(*model.User)) func() {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	u := f.user
	f.mu.Unlock()
	fn(u)
	return func() {}
}

func (f *fakeIdentity) set(u *model.User) {
	f.mu.Lock()
	f.user = u
	subs := slices.Clone(f.subs)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(u)
	}
}

func newController(t *testing.T, events ...model.Event) (*Controller, *fakeStore, *fakeIdentity) {
	t.Helper()
	st := &fakeStore{events: events}
	id := &fakeIdentity{}
	c := NewController(st, id)
	t.Cleanup(c.Close)
	return c, st, id
}

func filledForm() *Form {
	f := NewForm()
	for k, v := range map[string]string{
		model.FieldName: "Jazz Night", model.FieldCity: "Austin", model.FieldState: "TX",
		model.FieldDate: "2025-10-22", model.FieldTime: "19:00", model.FieldType: model.TypeOpenMic,
		model.FieldGenre: "Jazz", model.FieldContactEmail: "jazz@example.com", model.FieldDescription: "Bring your horn",
	} {
		f.Set(k, v)
	}
	return f
}

func TestSubmit_EndToEnd(t *testing.T) {
	c, st, id := newController(t, model.Event{ID: "1", Name: "Blues Jam", City: "Austin", Date: "2025-10-20", Type: model.TypeJamSession, Genre: "Blues"})
	ctx := context.Background()

	if err := c.Load(ctx, model.ListFilter{}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	loaded := c.Snapshot()
	if got := render.StateOf(loaded.Searched, len(loaded.Filtered)); got != render.Results || len(loaded.Filtered) != 1 {
		t.Fatalf("loaded list not shown: state=%v filtered=%d", got, len(loaded.Filtered))
	}

	var seen []State
	c.OnChange(func(s State) { seen = append(seen, s) })

	var phases []Phase
	c.OnPhase(func(p Phase) { phases = append(phases, p) })

	form := filledForm()
	out := c.Submit(ctx, form)
	if out.Phase != PhaseUnauthenticated || !out.AuthRequired {
		t.Fatalf("anonymous submit: %+v", out)
	}
	if form.Values[model.FieldName] != "Jazz Night" {
		t.Error("values lost on auth prompt")
	}
	if form.Notice != NoticeLoginFirst {
		t.Errorf("notice = %q", form.Notice)
	}

	if _, err := id.Login(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	phases = nil
	out = c.Submit(ctx, form)
	if out.Phase != PhaseSucceeded || out.Event == nil {
		t.Fatalf("signed-in submit: %+v", out)
	}
	want := []Phase{PhaseValidating, PhaseAuthorizing, PhasePersisting, PhaseSucceeded, PhaseIdle}
	if !slices.Equal(phases, want) {
		t.Errorf("phases = %v, want %v", phases, want)
	}
	if len(form.Values) != 0 || form.Notice != NoticeSubmitted {
		t.Errorf("form not reset: %+v %q", form.Values, form.Notice)
	}
	if len(st.events) != 2 {
		t.Errorf("store has %d events", len(st.events))
	}

	after := c.Snapshot()
	if len(after.All) != 2 {
		t.Errorf("state not updated: %+v", after.All)
	}
	var matches int
	for _, e := range after.Filtered {
		if e.ID == out.Event.ID {
			matches++
		}
	}
	if out.Event.ID == "" || matches != 1 {
		t.Errorf("new event id %q listed %d times in %+v", out.Event.ID, matches, after.Filtered)
	}
	cards := render.Cards(after.Filtered)
	if len(cards) != 2 || render.StateOf(after.Searched, len(cards)) != render.Results {
		t.Errorf("rendered %d cards, want 2", len(cards))
	}
	if len(seen) == 0 || len(seen[len(seen)-1].Filtered) != 2 {
		t.Errorf("observer did not see the new event: %d notifications", len(seen))
	}
}

func TestSubmit_Rejected(t *testing.T) {
	c, st, _ := newController(t)
	form := filledForm()
	form.Set(model.FieldCity, "")
	form.Set(model.FieldContactEmail, "nope")

	var phases []Phase
	c.OnPhase(func(p Phase) { phases = append(phases, p) })

	out := c.Submit(context.Background(), form)
	if out.Phase != PhaseRejected || len(out.Errors) == 0 {
		t.Fatalf("expected rejection, got %+v", out)
	}
	if !slices.Equal(form.Errors, out.Errors) {
		t.Errorf("form errors %v, outcome errors %v", form.Errors, out.Errors)
	}
	if form.Values[model.FieldName] != "Jazz Night" {
		t.Error("values lost on rejection")
	}
	if !slices.Equal(phases, []Phase{PhaseValidating, PhaseRejected, PhaseIdle}) {
		t.Errorf("phases = %v", phases)
	}
	if len(st.events) != 0 {
		t.Error("rejected form reached the store")
	}
}

func TestSubmit_StoreFailure(t *testing.T) {
	c, st, id := newController(t)
	_, _ = id.Login(context.Background(), "ana@example.com", "x")
	st.failCreate = errors.New("connection reset")

	form := filledForm()
	out := c.Submit(context.Background(), form)
	if out.Phase != PhaseFailed || out.Err == nil {
		t.Fatalf("expected failure, got %+v", out)
	}
	if form.Notice != NoticeSubmitFailed {
		t.Errorf("notice = %q", form.Notice)
	}
	if form.Values[model.FieldName] != "Jazz Night" {
		t.Error("values lost on failure")
	}
	if form.Submitting() {
		t.Error("form still submitting")
	}
}

func TestSubmit_ExpiredSessionAsksForLogin(t *testing.T) {
	c, st, id := newController(t)
	_, _ = id.Login(context.Background(), "ana@example.com", "x")
	st.failCreate = model.ErrUnauthenticated

	out := c.Submit(context.Background(), filledForm())
	if out.Phase != PhaseUnauthenticated || !out.AuthRequired {
		t.Errorf("expected auth prompt, got %+v", out)
	}
}

func TestSubmit_OneInFlight(t *testing.T) {
	c, _, id := newController(t)
	_, _ = id.Login(context.Background(), "ana@example.com", "x")
	form := filledForm()

	var inner Outcome
	c.OnPhase(func(p Phase) {
		if p == PhasePersisting {
			if !form.Submitting() {
				t.Error("Submitting() false while persisting")
			}
			inner = c.Submit(context.Background(), form)
		}
	})

	if out := c.Submit(context.Background(), form); out.Phase != PhaseSucceeded {
		t.Fatalf("outer submit: %+v", out)
	}
	if !errors.Is(inner.Err, ErrSubmissionInFlight) {
		t.Errorf("second submit = %+v", inner)
	}
}

func TestLoad_StaleResponseDiscarded(t *testing.T) {
	c, st, _ := newController(t,
		model.Event{ID: "1", Name: "Slow", City: "Denver"},
		model.Event{ID: "2", Name: "Fast", City: "Austin"},
	)
	st.slow = "Denver"
	st.started = make(chan struct{})
	st.release = make(chan struct{})

	errc := make(chan error, 1)
	go func() { errc <- c.Load(context.Background(), model.ListFilter{City: "Denver"}) }()
	<-st.started

	if err := c.Load(context.Background(), model.ListFilter{City: "Austin"}); err != nil {
		t.Fatalf("newer load: %v", err)
	}
	close(st.release)

	select {
	case err := <-errc:
		if !errors.Is(err, ErrStale) {
			t.Errorf("older load = %v, want ErrStale", err)
		}
	case <-time.After(time.Second):
		t.Fatal("older load never returned")
	}
	if all := c.Snapshot().All; len(all) != 1 || all[0].Name != "Fast" {
		t.Errorf("stale result applied: %+v", all)
	}
}

func TestSearch_LocalAndReappliedOnLoad(t *testing.T) {
	c, st, _ := newController(t,
		model.Event{ID: "1", Name: "Blues Jam", City: "Austin", Genre: "Blues"},
		model.Event{ID: "2", Name: "Jazz Night", City: "Denver", Genre: "Jazz"},
	)
	if err := c.Load(context.Background(), model.ListFilter{}); err != nil {
		t.Fatal(err)
	}

	var renders int
	c.OnChange(func(State) { renders++ })

	if s := c.Snapshot(); !s.Searched || len(s.Filtered) != 2 {
		t.Errorf("load did not list every event: %+v", s)
	}
	got := c.Search(search.Criteria{Term: "austin"})
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("search = %+v", got)
	}

	st.events = append(st.events, model.Event{ID: "3", Name: "Austin Folk", City: "Austin"})
	if err := c.Load(context.Background(), model.ListFilter{}); err != nil {
		t.Fatal(err)
	}
	if f := c.Snapshot().Filtered; len(f) != 2 {
		t.Errorf("criteria not reapplied: %+v", f)
	}
	if renders != 2 {
		t.Errorf("renders = %d, want 2", renders)
	}
}

func TestDashboard(t *testing.T) {
	c, _, id := newController(t,
		model.Event{ID: "1", CreatedBy: "u1", Date: "2025-01-01"},
		model.Event{ID: "2", CreatedBy: "u1", Date: "2025-12-01"},
		model.Event{ID: "3", CreatedBy: "u2", Date: "2025-12-01"},
	)
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	if _, err := c.Dashboard(context.Background()); !errors.Is(err, model.ErrUnauthenticated) {
		t.Fatalf("anonymous dashboard: %v", err)
	}
	_, _ = id.Login(context.Background(), "ana@example.com", "x")

	d, err := c.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Total != 2 || d.Upcoming != 1 {
		t.Errorf("total=%d upcoming=%d", d.Total, d.Upcoming)
	}
}

func TestDeleteOwn(t *testing.T) {
	yes := func(model.Event) bool { return true }
	no := func(model.Event) bool { return false }

	tests := []struct {
		name    string
		id      string
		confirm func(model.Event) bool
		want    error
		deleted bool
	}{
		{"own event", "1", yes, nil, true},
		{"declined", "1", no, ErrCancelled, false},
		{"someone else's", "3", yes, model.ErrForbidden, false},
		{"unknown", "9", yes, model.ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, st, id := newController(t,
				model.Event{ID: "1", CreatedBy: "u1"},
				model.Event{ID: "3", CreatedBy: "u2"},
			)
			_, _ = id.Login(context.Background(), "ana@example.com", "x")
			if err := c.Load(context.Background(), model.ListFilter{}); err != nil {
				t.Fatal(err)
			}

			err := c.DeleteOwn(context.Background(), tt.id, tt.confirm)
			if !errors.Is(err, tt.want) {
				t.Fatalf("DeleteOwn = %v, want %v", err, tt.want)
			}
			if got := len(st.deleted) == 1; got != tt.deleted {
				t.Errorf("deleted = %v, want %v", got, tt.deleted)
			}
			if tt.deleted && len(c.Snapshot().All) != 1 {
				t.Error("deleted event still in state")
			}
		})
	}
}

func TestDeleteOwn_Anonymous(t *testing.T) {
	c, _, _ := newController(t, model.Event{ID: "1", CreatedBy: "u1"})
	err := c.DeleteOwn(context.Background(), "1", func(model.Event) bool { return true })
	if !errors.Is(err, model.ErrUnauthenticated) {
		t.Errorf("got %v", err)
	}
}

func TestController_NotSearchedUntilLoaded(t *testing.T) {
	c, _, _ := newController(t, model.Event{ID: "1", Name: "Blues Jam"})
	if s := c.Snapshot(); s.Searched || render.StateOf(s.Searched, len(s.Filtered)) != render.NotSearched {
		t.Errorf("state before any load: %+v", s)
	}
}

func TestController_TracksUser(t *testing.T) {
	c, _, id := newController(t)
	if c.Snapshot().User != nil {
		t.Fatal("user before login")
	}
	_, _ = id.Login(context.Background(), "ana@example.com", "x")
	if u := c.Snapshot().User; u == nil || u.Email != "ana@example.com" {
		t.Errorf("user = %+v", u)
	}
	_ = id.Logout(context.Background())
	if c.Snapshot().User != nil {
		t.Error("user kept after logout")
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseUnauthenticated.String() != "unauthenticated" || Phase(99).String() != "unknown" {
		t.Error("unexpected phase names")
	}
}
