package lead

import (
	"context"
	"time"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// Contact form field names, matching the rendered inputs.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldPhone   = "phone"
	FieldSubject = "subject"
	FieldMessage = "message"
)

// ContactForm is the page contact form.
type ContactForm struct {
	machine
	data domain.LeadFormData
}

// NewContactForm returns an empty form in the editing state. An empty key
// makes the submit derive one from the entered data.
func NewContactForm(key string) *ContactForm {
	return &ContactForm{machine: machine{key: key, now: time.Now}}
}

// Update sets a single field.
func (f *ContactForm) Update(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editable(); err != nil {
		return err
	}

	switch field {
	case FieldName:
		f.data.Name = value
	case FieldEmail:
		f.data.Email = value
	case FieldPhone:
		f.data.Phone = value
	case FieldSubject:
		f.data.Subject = value
	case FieldMessage:
		f.data.Message = value
	default:
		return domain.Invalid("lead.contact.update", "unknown field "+field)
	}
	return nil
}

// Data returns a copy of the current field values.
func (f *ContactForm) Data() domain.LeadFormData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// Submit validates the required fields and hands the data to the sink.
func (f *ContactForm) Submit(ctx context.Context, sink Sink) error {
	return f.submit(ctx, "lead.contact.submit", sink,
		func() *domain.ValidationError {
			return validateStruct(f.data)
		},
		func() domain.Lead {
			data := f.data
			return domain.Lead{
				Key:    f.key,
				Source: domain.LeadSourceContact,
				Form:   &data,
			}
		},
	)
}
