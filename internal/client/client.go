// Package client talks to the Spotlight HTTP API. A Client serves as both
// the persistence and the identity collaborator of the terminal app.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/normalize"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Errors  []string

	kind error
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("api %d: %s: %s", e.Status, e.Message, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// Unwrap exposes the domain error matching the status so callers can use
// errors.Is with the model sentinels.
func (e *APIError) Unwrap() error {
	return e.kind
}

func newAPIError(status int, body model.ErrorResponse) *APIError {
	e := &APIError{Status: status, Message: body.Error, Errors: body.Errors}
	switch status {
	case http.StatusBadRequest:
		if len(body.Errors) > 0 {
			e.kind = &normalize.ValidationError{Errors: body.Errors}
		}
	case http.StatusUnauthorized:
		e.kind = model.ErrUnauthenticated
	case http.StatusForbidden:
		e.kind = model.ErrForbidden
	case http.StatusNotFound:
		e.kind = model.ErrNotFound
	case http.StatusConflict:
		e.kind = model.ErrEmailTaken
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore

	mu        sync.Mutex
	token     string
	user      *model.User
	listeners map[int]func(*model.User)
	nextID    int
}

// New returns a Client for the API at baseURL. tokens may be nil, in which
// case sessions last only as long as the Client.
func New(baseURL string, timeout time.Duration, tokens TokenStore) *Client {
	if tokens == nil {
		tokens = &MemoryTokens{}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		tokens:    tokens,
		listeners: map[int]func(*model.User){},
	}
}

// ─── Transport ────────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb model.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&eb)
		return newAPIError(resp.StatusCode, eb)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// ─── Persistence ──────────────────────────────────────────────────────────────

// List fetches events matching f.
func (c *Client) List(ctx context.Context, f model.ListFilter) ([]model.Event, error) {
	q := url.Values{}
	for k, v := range map[string]string{
		"city": f.City, "state": f.State, "type": f.Type, "genre": f.Genre,
		"date_from": f.DateFrom, "date_to": f.DateTo, "search": f.Search,
		"created_by": f.CreatedBy, "sort": f.Sort,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	path := "/api/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp model.EventListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Events == nil {
		resp.Events = []model.Event{}
	}
	return resp.Events, nil
}

// Get fetches one event.
func (c *Client) Get(ctx context.Context, id string) (*model.Event, error) {
	var resp model.EventResponse
	if err := c.do(ctx, http.MethodGet, "/api/events/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Event, nil
}

// Create stores a new event owned by the signed-in user.
func (c *Client) Create(ctx context.Context, in model.EventInput) (*model.Event, error) {
	var resp model.EventResponse
	if err := c.do(ctx, http.MethodPost, "/api/events", in, &resp); err != nil {
		return nil, err
	}
	if resp.Event == nil {
		return nil, errors.New("create event: empty response")
	}
	return resp.Event, nil
}

// Delete removes an event owned by the signed-in user.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/events/"+url.PathEscape(id), nil, nil)
}

// Stats fetches listing aggregates.
func (c *Client) Stats(ctx context.Context) (*model.Stats, error) {
	var resp model.StatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

// ─── Identity ─────────────────────────────────────────────────────────────────

// Restore resumes a saved session. A token the server no longer accepts is
// discarded without error.
func (c *Client) Restore(ctx context.Context) error {
	token, err := c.tokens.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if token == "" {
		return nil
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		if errors.Is(err, model.ErrUnauthenticated) {
			c.setSession("", nil)
			return c.tokens.Clear()
		}
		return err
	}
	c.setSession(token, resp.User)
	return nil
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	var resp model.AuthResponse
	req := model.RegisterRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return c.signedIn(resp)
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var resp model.AuthResponse
	req := model.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			apiErr.kind = model.ErrInvalidCredentials
		}
		return nil, err
	}
	return c.signedIn(resp)
}

// Logout ends the session locally even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.setSession("", nil)
	if cerr := c.tokens.Clear(); cerr != nil && err == nil {
		err = fmt.Errorf("clear session: %w", cerr)
	}
	return err
}

// Current returns the signed-in user or nil.
func (c *Client) Current() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Subscribe registers fn for sign-in state changes. fn is called at once
// with the current user.
func (c *Client) Subscribe(fn func(*model.User)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	user := c.user
	c.mu.Unlock()

	fn(user)
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) signedIn(resp model.AuthResponse) (*model.User, error) {
	if resp.User == nil || resp.Token == "" {
		return nil, errors.New("auth: incomplete response")
	}
	if err := c.tokens.Save(resp.Token); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.setSession(resp.Token, resp.User)
	return resp.User, nil
}

func (c *Client) setSession(token string, user *model.User) {
	c.mu.Lock()
	c.token = token
	c.user = user
	fns := make([]func(*model.User), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}
