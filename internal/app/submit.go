package app

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/normalize"
)

// Phase is a step of the submission pipeline.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseRejected
	PhaseAuthorizing
	PhaseUnauthenticated
	PhasePersisting
	PhaseFailed
	PhaseSucceeded
)

var phaseNames = [...]string{"idle", "validating", "rejected", "authorizing", "unauthenticated", "persisting", "failed", "succeeded"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Notices shown after a submission.
const (
	NoticeSubmitted    = "Event submitted successfully!"
	NoticeSubmitFailed = "Failed to submit event. Please try again."
	NoticeLoginFirst   = "Please login to submit events"
)

// ErrSubmissionInFlight is returned when a form is submitted again before
// the previous submission finished.
var ErrSubmissionInFlight = errors.New("submission already in progress")

// Form is the submission form. Values are keyed by the model.Field*
// constants.
type Form struct {
	Values map[string]string
	Errors []string
	Notice string

	mu         sync.Mutex
	submitting bool
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{Values: map[string]string{}}
}

// Set records one field value.
func (f *Form) Set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Values[field] = value
}

// Submitting reports whether a submission is in flight. The submit control
// should be disabled while it is true.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

func (f *Form) begin() (map[string]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return nil, false
	}
	f.submitting = true
	f.Errors = nil
	f.Notice = ""
	return maps.Clone(f.Values), true
}

func (f *Form) finish(errs []string, notice string, clear bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors = errs
	f.Notice = notice
	if clear {
		f.Values = map[string]string{}
	}
	f.submitting = false
}

// Outcome reports how a submission ended.
type Outcome struct {
	Phase        Phase
	Event        *model.Event
	Errors       []string
	AuthRequired bool
	Err          error
}

// Submit runs the form through validation, the sign-in gate and
// persistence. Entered values are kept unless the event was stored. Every
// path ends back in PhaseIdle.
func (c *Controller) Submit(ctx context.Context, form *Form) Outcome {
	values, ok := form.begin()
	if !ok {
		return Outcome{Phase: PhaseIdle, Err: ErrSubmissionInFlight}
	}
	defer c.phase(PhaseIdle)

	c.phase(PhaseValidating)
	ev, err := normalize.Normalize(values, normalize.FormRules)
	if err != nil {
		var verr *normalize.ValidationError
		errs := []string{err.Error()}
		if errors.As(err, &verr) {
			errs = verr.Errors
		}
		form.finish(errs, "", false)
		c.phase(PhaseRejected)
		return Outcome{Phase: PhaseRejected, Errors: errs, Err: err}
	}

	c.phase(PhaseAuthorizing)
	if c.identity.Current() == nil {
		return c.unauthenticated(form)
	}

	c.phase(PhasePersisting)
	created, err := c.store.Create(ctx, ev.Input())
	if err != nil {
		if errors.Is(err, model.ErrUnauthenticated) {
			return c.unauthenticated(form)
		}
		form.finish(nil, NoticeSubmitFailed, false)
		c.phase(PhaseFailed)
		return Outcome{Phase: PhaseFailed, Err: err}
	}

	c.mu.Lock()
	c.state.All = append(c.state.All, *created)
	c.refilterLocked()
	c.mu.Unlock()
	c.changed()

	form.finish(nil, NoticeSubmitted, true)
	c.phase(PhaseSucceeded)
	return Outcome{Phase: PhaseSucceeded, Event: created}
}

func (c *Controller) unauthenticated(form *Form) Outcome {
	form.finish(nil, NoticeLoginFirst, false)
	c.phase(PhaseUnauthenticated)
	return Outcome{Phase: PhaseUnauthenticated, AuthRequired: true, Err: model.ErrUnauthenticated}
}

func (c *Controller) phase(p Phase) {
	c.mu.Lock()
	fn := c.onPhase
	c.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}
