package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/normalize"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeAPI answers the subset of the API the tests use. A single account
// ana@example.com / secret1 exists with token "tok-ana".
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	ana := &model.User{ID: "u-ana", Name: "Ana", Email: "ana@example.com"}
	authed := func(r *http.Request) bool { return r.Header.Get("Authorization") == "Bearer tok-ana" }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		events := []model.Event{{ID: "1", Name: "Jazz", City: "Austin", CreatedBy: r.URL.Query().Get("created_by")}}
		writeJSON(w, http.StatusOK, model.EventListResponse{Success: true, Count: 1, Events: events})
	})
	mux.HandleFunc("POST /api/events", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{Error: "Authentication required"})
			return
		}
		var in model.EventInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.City == "" {
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "Validation failed", Errors: []string{"city is required"}})
			return
		}
		writeJSON(w, http.StatusCreated, model.EventResponse{Success: true, Event: &model.Event{ID: "new", Name: in.Name, City: in.City, CreatedBy: ana.ID}})
	})
	mux.HandleFunc("DELETE /api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case !authed(r):
			writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{Error: "Authentication required"})
		case r.PathValue("id") == "theirs":
			writeJSON(w, http.StatusForbidden, model.ErrorResponse{Error: "You can only modify events you created"})
		case r.PathValue("id") == "gone":
			writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "Event not found"})
		default:
			writeJSON(w, http.StatusOK, model.StatusResponse{Success: true})
		}
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != ana.Email || req.Password != "secret1" {
			writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid email or password."})
			return
		}
		writeJSON(w, http.StatusOK, model.AuthResponse{Success: true, User: ana, Token: "tok-ana"})
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: "This email is already registered."})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.StatusResponse{Success: true})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{Error: "Authentication required"})
			return
		}
		writeJSON(w, http.StatusOK, model.AuthResponse{Success: true, User: ana})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginCreateDelete(t *testing.T) {
	srv := fakeAPI(t)
	c := New(srv.URL, 5*time.Second, nil)
	ctx := context.Background()

	if _, err := c.Create(ctx, model.EventInput{Name: "x", City: "Austin"}); !errors.Is(err, model.ErrUnauthenticated) {
		t.Fatalf("anonymous create: %v", err)
	}

	user, err := c.Login(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.Current() == nil || c.Current().ID != user.ID {
		t.Fatalf("current user not set")
	}

	ev, err := c.Create(ctx, model.EventInput{Name: "Jazz", City: "Austin"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ev.ID != "new" || ev.CreatedBy != "u-ana" {
		t.Errorf("unexpected event %+v", ev)
	}

	_, err = c.Create(ctx, model.EventInput{Name: "Jazz"})
	var verr *normalize.ValidationError
	if !errors.As(err, &verr) || verr.Errors[0] != "city is required" {
		t.Errorf("expected server validation errors, got %v", err)
	}

	tests := []struct {
		id   string
		want error
	}{
		{"mine", nil},
		{"theirs", model.ErrForbidden},
		{"gone", model.ErrNotFound},
	}
	for _, tt := range tests {
		if err := c.Delete(ctx, tt.id); !errors.Is(err, tt.want) {
			t.Errorf("Delete(%s) = %v, want %v", tt.id, err, tt.want)
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	c := New(fakeAPI(t).URL, 5*time.Second, nil)
	_, err := c.Login(context.Background(), "ana@example.com", "nope")
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Invalid email or password." {
		t.Errorf("server message lost: %v", err)
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	c := New(fakeAPI(t).URL, 5*time.Second, nil)
	if _, err := c.Register(context.Background(), "Ana", "ana@example.com", "secret1"); !errors.Is(err, model.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestList_SendsFilters(t *testing.T) {
	c := New(fakeAPI(t).URL, 5*time.Second, nil)
	events, err := c.List(context.Background(), model.ListFilter{CreatedBy: "u-ana"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 || events[0].CreatedBy != "u-ana" {
		t.Errorf("created_by not forwarded: %+v", events)
	}
}

func TestSubscribe(t *testing.T) {
	c := New(fakeAPI(t).URL, 5*time.Second, nil)
	ctx := context.Background()

	var seen []*model.User
	cancel := c.Subscribe(func(u *model.User) { seen = append(seen, u) })

	if _, err := c.Login(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	cancel()
	if _, err := c.Login(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if len(seen) != 3 || seen[0] != nil || seen[1] == nil || seen[2] != nil {
		t.Errorf("unexpected notifications %v", seen)
	}
}

func TestRestore_FromSessionFile(t *testing.T) {
	srv := fakeAPI(t)
	path := filepath.Join(t.TempDir(), "session")
	ctx := context.Background()

	first := New(srv.URL, 5*time.Second, FileTokens{Path: path})
	if _, err := first.Login(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	second := New(srv.URL, 5*time.Second, FileTokens{Path: path})
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if u := second.Current(); u == nil || u.Email != "ana@example.com" {
		t.Fatalf("session not restored: %+v", u)
	}

	if err := second.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	third := New(srv.URL, 5*time.Second, FileTokens{Path: path})
	if err := third.Restore(ctx); err != nil || third.Current() != nil {
		t.Errorf("logged-out session restored: %v %+v", err, third.Current())
	}
}

func TestRestore_StaleTokenIsDiscarded(t *testing.T) {
	tokens := &MemoryTokens{}
	_ = tokens.Save("expired")
	c := New(fakeAPI(t).URL, 5*time.Second, tokens)

	if err := c.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if c.Current() != nil {
		t.Error("stale token produced a user")
	}
	if tok, _ := tokens.Load(); tok != "" {
		t.Errorf("stale token kept: %q", tok)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := fakeAPI(t)
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, nil)
	_, err := c.List(context.Background(), model.ListFilter{})
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure reported as API error: %v", err)
	}
}
