// Package lead holds the lead-capture state machines: the contact form, the
// lead modal, the newsletter signup and the page shell that owns the modal.
//
// A form instance is either editing or submitted. Submitted is terminal for
// the instance; a fresh instance is created for every page render and every
// modal open. While the sink call is in flight the instance is submitting and
// rejects a second submit.
package lead

import (
	"context"
	"sync"
	"time"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// Sink receives a lead once per successful submission.
type Sink interface {
	Deliver(ctx context.Context, lead domain.Lead) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, lead domain.Lead) error

func (f SinkFunc) Deliver(ctx context.Context, lead domain.Lead) error {
	return f(ctx, lead)
}

// State is the lifecycle of a single form instance.
type State int

const (
	StateEditing State = iota
	StateSubmitting
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadySubmitted   = domain.Conflict("lead.submit", "This form has already been sent.")
	ErrSubmissionInFlight = domain.Conflict("lead.submit", "Your message is already being sent.")
)

// machine is the submission lifecycle shared by every lead form. The owning
// type keeps its field values behind mu as well.
type machine struct {
	mu        sync.Mutex
	key       string
	state     State
	fieldErrs *domain.ValidationError
	failure   error
	now       func() time.Time
}

// editable must be called with mu held.
func (m *machine) editable() error {
	switch m.state {
	case StateSubmitted:
		return ErrAlreadySubmitted
	case StateSubmitting:
		return ErrSubmissionInFlight
	}
	return nil
}

// submit runs check and build under the lock, then calls the sink without it.
// A failed check leaves the state untouched. A failed delivery returns the
// instance to editing with the entered data intact.
func (m *machine) submit(ctx context.Context, op string, sink Sink, check func() *domain.ValidationError, build func() domain.Lead) error {
	m.mu.Lock()
	if err := m.editable(); err != nil {
		m.mu.Unlock()
		return err
	}
	if ve := check(); ve != nil {
		ve.Op = op
		m.fieldErrs = ve
		m.mu.Unlock()
		return ve
	}
	m.fieldErrs = nil
	m.failure = nil

	l := build()
	l.ReceivedAt = m.now()
	if l.Key == "" {
		l.Key = domain.DeriveLeadKey(l)
	}
	m.key = l.Key
	m.state = StateSubmitting
	m.mu.Unlock()

	err := sink.Deliver(ctx, l)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateEditing
		if domain.ErrorCode(err) == domain.ECONFLICT {
			m.failure = err
		} else {
			m.failure = domain.SubmissionFailed(err, op)
		}
		return m.failure
	}
	m.state = StateSubmitted
	return nil
}

// Key is the idempotency key rendered into the form's hidden field.
func (m *machine) Key() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key
}

func (m *machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Submitted reports whether the confirmation view should be shown.
func (m *machine) Submitted() bool {
	return m.State() == StateSubmitted
}

// FieldErrors returns the errors of the last rejected submit, or nil.
func (m *machine) FieldErrors() *domain.ValidationError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fieldErrs
}

// Failure returns the delivery error of the last submit, or nil.
func (m *machine) Failure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// FailureMessage is the visitor-facing text for Failure.
func (m *machine) FailureMessage() string {
	return domain.ErrorMessage(m.Failure())
}

// SetClock replaces the clock used to stamp leads.
func (m *machine) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
