// Package app holds the client-side application: the listing state, the
// submission pipeline and the owner dashboard. It talks to the backend only
// through the Persistence and Identity interfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/search"
)

// Persistence stores events.
type Persistence interface {
	List(ctx context.Context, f model.ListFilter) ([]model.Event, error)
	Create(ctx context.Context, in model.EventInput) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// Identity manages the signed-in user.
type Identity interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	Logout(ctx context.Context) error
	Current() *model.User
	Subscribe(fn func(*model.User)) (cancel func())
}

// ErrStale is returned by a load that was overtaken by a newer one. Its
// result is discarded.
var ErrStale = errors.New("superseded by a newer request")

// ErrCancelled is returned when the user declines a confirmation.
var ErrCancelled = errors.New("cancelled")

// State is the listing as the user sees it.
type State struct {
	All      []model.Event
	Filtered []model.Event
	Criteria search.Criteria
	// Searched is set once a load or search has completed.
	Searched bool
	User     *model.User
}

// Controller owns the application state. All methods are safe for
// concurrent use; observers are called without the lock held.
type Controller struct {
	store    Persistence
	identity Identity
	now      func() time.Time

	mu       sync.Mutex
	state    State
	loadSeq  uint64
	onChange func(State)
	onPhase  func(Phase)

	unsubscribe func()
}

// NewController wires a controller to its collaborators and starts tracking
// the signed-in user.
func NewController(store Persistence, identity Identity) *Controller {
	c := &Controller{store: store, identity: identity, now: time.Now}
	c.unsubscribe = identity.Subscribe(func(u *model.User) {
		c.mu.Lock()
		c.state.User = u
		c.mu.Unlock()
		c.changed()
	})
	return c
}

// Close stops tracking the identity collaborator.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// OnChange sets the observer called after every state change.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// OnPhase sets the observer called on every submission phase transition.
func (c *Controller) OnPhase(fn func(Phase)) {
	c.mu.Lock()
	c.onPhase = fn
	c.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.All = slices.Clone(s.All)
	s.Filtered = slices.Clone(s.Filtered)
	return s
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	s := c.snapshotLocked()
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// refilterLocked re-applies the current criteria to All.
func (c *Controller) refilterLocked() {
	if c.state.Searched {
		c.state.Filtered = search.Apply(c.state.All, c.state.Criteria)
	} else {
		c.state.Filtered = nil
	}
}

// Load replaces All with the events matching f and re-applies the current
// criteria, so a first load shows every event. Only the most recent load
// may apply its result; an older one returns ErrStale and changes nothing.
func (c *Controller) Load(ctx context.Context, f model.ListFilter) error {
	c.mu.Lock()
	c.loadSeq++
	token := c.loadSeq
	c.mu.Unlock()

	events, err := c.store.List(ctx, f)

	c.mu.Lock()
	if token != c.loadSeq {
		c.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("load events: %w", err)
	}
	c.state.All = events
	c.state.Searched = true
	c.refilterLocked()
	c.mu.Unlock()

	c.changed()
	return nil
}

// Search filters the loaded events locally and returns the result.
func (c *Controller) Search(crit search.Criteria) []model.Event {
	c.mu.Lock()
	c.state.Criteria = crit
	c.state.Searched = true
	c.refilterLocked()
	out := slices.Clone(c.state.Filtered)
	c.mu.Unlock()

	c.changed()
	return out
}

// Dashboard summarises the signed-in user's events.
type Dashboard struct {
	Events   []model.Event
	Total    int
	Upcoming int
}

// Dashboard loads the signed-in user's events.
func (c *Controller) Dashboard(ctx context.Context) (*Dashboard, error) {
	user := c.identity.Current()
	if user == nil {
		return nil, model.ErrUnauthenticated
	}
	events, err := c.store.List(ctx, model.ListFilter{CreatedBy: user.ID})
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	return &Dashboard{
		Events:   events,
		Total:    len(events),
		Upcoming: search.Upcoming(events, c.now()),
	}, nil
}

// DeleteOwn deletes one of the signed-in user's events after confirm
// approves it.
func (c *Controller) DeleteOwn(ctx context.Context, id string, confirm func(model.Event) bool) error {
	user := c.identity.Current()
	if user == nil {
		return model.ErrUnauthenticated
	}

	ev, err := c.find(ctx, user, id)
	if err != nil {
		return err
	}
	if !ev.OwnedBy(user.ID) {
		return model.ErrForbidden
	}
	if !confirm(*ev) {
		return ErrCancelled
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	c.mu.Lock()
	c.state.All = slices.DeleteFunc(c.state.All, func(e model.Event) bool { return e.ID == id })
	c.refilterLocked()
	c.mu.Unlock()
	c.changed()
	return nil
}

// find looks id up in the loaded events, then among the user's own.
func (c *Controller) find(ctx context.Context, user *model.User, id string) (*model.Event, error) {
	c.mu.Lock()
	for _, e := range c.state.All {
		if e.ID == id {
			c.mu.Unlock()
			return &e, nil
		}
	}
	c.mu.Unlock()

	mine, err := c.store.List(ctx, model.ListFilter{CreatedBy: user.ID})
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	for _, e := range mine {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, model.ErrNotFound
}
