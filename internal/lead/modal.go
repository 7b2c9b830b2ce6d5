package lead

import (
	"context"
	"time"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// Modal is one opening of the lead modal. Closing discards the instance, so
// the email and submitted state never survive a reopen.
type Modal struct {
	machine
	payload domain.ModalPayload
	email   string
}

func NewModal(payload domain.ModalPayload, key string) *Modal {
	return &Modal{machine: machine{key: key, now: time.Now}, payload: payload}
}

// Header names what the visitor is asking for.
func (m *Modal) Header() string {
	if m.payload.Kind == domain.ModalKindSchedule {
		return "Tour request"
	}
	return "Property info"
}

func (m *Modal) Payload() domain.ModalPayload {
	return m.payload
}

// Listing returns the preview to show, or nil when the payload has none.
func (m *Modal) Listing() *domain.ListingSummary {
	return m.payload.Listing
}

func (m *Modal) SetEmail(email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	m.email = email
	return nil
}

func (m *Modal) Email() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email
}

// Submit sends {email, payload} to the sink.
func (m *Modal) Submit(ctx context.Context, sink Sink) error {
	return m.submit(ctx, "lead.modal.submit", sink,
		func() *domain.ValidationError {
			return requireEmail(m.email)
		},
		func() domain.Lead {
			payload := m.payload
			if payload.Listing != nil {
				listing := *payload.Listing
				payload.Listing = &listing
			}
			return domain.Lead{
				Key:     m.key,
				Source:  domain.LeadSourceModal,
				Email:   m.email,
				Payload: &payload,
			}
		},
	)
}
