// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/normalize"
	"github.com/Shivanand-hulikatti/spotlight/internal/search"
)

// EventStore is the persistence the event service needs.
type EventStore interface {
	List(ctx context.Context, f model.ListFilter) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Create(ctx context.Context, ev model.Event) (*model.Event, error)
	Update(ctx context.Context, id string, ev model.Event) (*model.Event, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*model.Stats, error)
}

// Recorder receives business counters. *metrics.Metrics satisfies it.
type Recorder interface {
	EventChanged(kind string)
	ValidationFailed()
	AuthAttempt(action string, ok bool)
}

// ChangeNotifier is told about every stored-event mutation.
type ChangeNotifier interface {
	EventChanged(ctx context.Context, kind string, ev model.Event, correlationID string)
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events   EventStore
	rec      Recorder
	notifier ChangeNotifier
	log      *logrus.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, rec Recorder, notifier ChangeNotifier, log *logrus.Logger) *EventService {
	return &EventService{events: events, rec: rec, notifier: notifier, log: log}
}

// ListEvents returns the events matching f. The store orders by date; any
// other sort key is applied here with the same collation the client uses.
func (s *EventService) ListEvents(ctx context.Context, f model.ListFilter) ([]model.Event, error) {
	var errs []string
	if f.DateFrom != "" && !validDate(f.DateFrom) {
		errs = append(errs, "date_from must be a valid calendar date (YYYY-MM-DD)")
	}
	if f.DateTo != "" && !validDate(f.DateTo) {
		errs = append(errs, "date_to must be a valid calendar date (YYYY-MM-DD)")
	}
	if len(errs) > 0 {
		return nil, &normalize.ValidationError{Errors: errs}
	}

	events, err := s.events.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if key := search.ParseSortKey(f.Sort); key != search.SortDate {
		search.Sort(events, key)
	}
	return events, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.ErrNotFound
	}
	return s.events.GetByID(ctx, id)
}

// CreateEvent validates the input and stores it owned by user.
func (s *EventService) CreateEvent(ctx context.Context, user *model.User, in model.EventInput) (*model.Event, error) {
	if user == nil {
		return nil, model.ErrUnauthenticated
	}
	ev, err := normalize.NormalizeInput(in, normalize.APIRules)
	if err != nil {
		s.rec.ValidationFailed()
		return nil, err
	}
	ev.CreatedBy = user.ID

	created, err := s.events.Create(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.WithFields(logrus.Fields{"event_id": created.ID, "user_id": user.ID}).Info("event created")
	s.changed(ctx, model.NoticeEventCreated, *created)
	return created, nil
}

// UpdateEvent replaces an event the user owns. A blank source keeps the
// stored one.
func (s *EventService) UpdateEvent(ctx context.Context, user *model.User, id string, in model.EventInput) (*model.Event, error) {
	existing, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Source) == "" {
		in.Source = existing.Source
	}
	ev, err := normalize.NormalizeInput(in, normalize.APIRules)
	if err != nil {
		s.rec.ValidationFailed()
		return nil, err
	}

	updated, err := s.events.Update(ctx, id, ev)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.log.WithFields(logrus.Fields{"event_id": id, "user_id": user.ID}).Info("event updated")
	s.changed(ctx, model.NoticeEventUpdated, *updated)
	return updated, nil
}

// DeleteEvent removes an event the user owns.
func (s *EventService) DeleteEvent(ctx context.Context, user *model.User, id string) error {
	existing, err := s.owned(ctx, user, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.log.WithFields(logrus.Fields{"event_id": id, "user_id": user.ID}).Info("event deleted")
	s.changed(ctx, model.NoticeEventDeleted, *existing)
	return nil
}

// Stats returns listing aggregates.
func (s *EventService) Stats(ctx context.Context) (*model.Stats, error) {
	stats, err := s.events.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// owned loads id and checks that user may modify it. Events without an
// owner are never modifiable.
func (s *EventService) owned(ctx context.Context, user *model.User, id string) (*model.Event, error) {
	if user == nil {
		return nil, model.ErrUnauthenticated
	}
	existing, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.OwnedBy(user.ID) {
		return nil, model.ErrForbidden
	}
	return existing, nil
}

func (s *EventService) changed(ctx context.Context, kind string, ev model.Event) {
	s.rec.EventChanged(kind)
	s.notifier.EventChanged(ctx, kind, ev, chimiddleware.GetReqID(ctx))
}

func validDate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}
