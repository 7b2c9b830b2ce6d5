package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentTelHref(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{name: "formatted US number", phone: "(251) 752-2814", want: "tel:2517522814"},
		{name: "dots and plus", phone: "+1.251.752.2814", want: "tel:12517522814"},
		{name: "already digits", phone: "2517522814", want: "tel:2517522814"},
		{name: "empty", phone: "", want: "tel:"},
		{name: "non-ASCII digits dropped", phone: "251 ٧٥٢ 2814", want: "tel:2512814"},
		{name: "fullwidth digits dropped", phone: "２５１-752-2814", want: "tel:7522814"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Agent{Phone: tt.phone}.TelHref())
		})
	}
}

func TestAgentMailtoHref(t *testing.T) {
	a := Agent{Email: "agent@example.com"}
	assert.Equal(t, "mailto:agent@example.com", a.MailtoHref())
}

func TestParseModalKind(t *testing.T) {
	tests := []struct {
		in     string
		want   ModalKind
		wantOK bool
	}{
		{"valuation", ModalKindValuation, true},
		{"schedule", ModalKindSchedule, true},
		{" Info ", ModalKindInfo, true},
		{"", "", false},
		{"buy", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseModalKind(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestDeriveLeadKey(t *testing.T) {
	base := Lead{
		Source: LeadSourceContact,
		Form:   &LeadFormData{Name: "Ann", Email: "ann@example.com", Message: "Hi"},
	}

	t.Run("identical content shares a key", func(t *testing.T) {
		other := Lead{
			Source: LeadSourceContact,
			Form:   &LeadFormData{Name: "Ann ", Email: "ANN@example.com", Message: "Hi"},
		}
		assert.Equal(t, DeriveLeadKey(base), DeriveLeadKey(other))
	})

	t.Run("different message changes the key", func(t *testing.T) {
		other := Lead{
			Source: LeadSourceContact,
			Form:   &LeadFormData{Name: "Ann", Email: "ann@example.com", Message: "Hello"},
		}
		assert.NotEqual(t, DeriveLeadKey(base), DeriveLeadKey(other))
	})

	t.Run("source is part of the key", func(t *testing.T) {
		a := Lead{Source: LeadSourceModal, Email: "ann@example.com"}
		b := Lead{Source: LeadSourceNewsletter, Email: "ann@example.com"}
		assert.NotEqual(t, DeriveLeadKey(a), DeriveLeadKey(b))
	})

	t.Run("derived key is a valid lead key", func(t *testing.T) {
		assert.True(t, ValidLeadKey(DeriveLeadKey(base)))
		assert.True(t, ValidLeadKey(NewLeadKey()))
		assert.False(t, ValidLeadKey("not-a-key"))
	})
}

func TestLeadContactEmail(t *testing.T) {
	assert.Equal(t, "a@example.com", Lead{Form: &LeadFormData{Email: "a@example.com"}}.ContactEmail())
	assert.Equal(t, "b@example.com", Lead{Email: "b@example.com"}.ContactEmail())
}

func TestSearchLinkSummary(t *testing.T) {
	s := SearchLink{ID: "SRCH-1", Title: "Daphne", Description: "New this week", ImageURL: "https://img"}
	assert.Equal(t, ListingSummary{Address: "Daphne", Meta: "New this week", ImageURL: "https://img"}, s.Summary())
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "invalid",
			err:         Invalid("lead.bind", "Email is required"),
			wantCode:    EINVALID,
			wantMessage: "Email is required",
		},
		{
			name:        "submission failed keeps a visitor message",
			err:         SubmissionFailed(errors.New("smtp down"), "lead.contact.submit"),
			wantCode:    ESUBMISSION,
			wantMessage: "Sorry, your message could not be sent. Please try again.",
		},
		{
			name:        "wrapped coded error",
			err:         fmt.Errorf("handler: %w", Conflict("sink.idempotent", "already in progress")),
			wantCode:    ECONFLICT,
			wantMessage: "already in progress",
		},
		{
			name:        "internal hides details",
			err:         Internal(errors.New("secret dsn"), "op", "boom"),
			wantCode:    EINTERNAL,
			wantMessage: internalMessage,
		},
		{
			name:        "plain error is internal",
			err:         errors.New("plain"),
			wantCode:    EINTERNAL,
			wantMessage: internalMessage,
		},
		{
			name:        "validation error",
			err:         NewValidationError("lead.contact.submit", "name", "Name is required"),
			wantCode:    EINVALID,
			wantMessage: "Please fill in the required fields.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, ErrorCode(tt.err))
			assert.Equal(t, tt.wantMessage, ErrorMessage(tt.err))
		})
	}
}

func TestValidationErrorFields(t *testing.T) {
	ve := NewValidationError("op", "name", "Name is required")
	ve = AddFieldError(ve, "email", "Email is required")

	assert.True(t, ve.Has("name"))
	assert.True(t, ve.Has("email"))
	assert.False(t, ve.Has("phone"))
	assert.Equal(t, "Email is required", ve.Get("email"))
	assert.Equal(t, "op: validation failed: [email name]", ve.Error())

	var nilVE *ValidationError
	assert.False(t, nilVE.Has("name"))
	assert.Equal(t, "", nilVE.Get("name"))
}
