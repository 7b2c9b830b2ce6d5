package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadSource identifies which form produced a lead.
type LeadSource string

const (
	LeadSourceContact    LeadSource = "contact"
	LeadSourceModal      LeadSource = "modal"
	LeadSourceNewsletter LeadSource = "newsletter"
)

func (s LeadSource) String() string {
	return string(s)
}

// LeadFormData is the contact form's field set. Phone, subject and message
// are optional; name and email are required.
type LeadFormData struct {
	Name    string `json:"name" form:"name" validate:"required"`
	Email   string `json:"email" form:"email" validate:"required"`
	Phone   string `json:"phone,omitempty" form:"phone"`
	Subject string `json:"subject,omitempty" form:"subject"`
	Message string `json:"message,omitempty" form:"message"`
}

// ModalKind tags the reason the lead modal was opened.
type ModalKind string

const (
	ModalKindValuation ModalKind = "valuation"
	ModalKindSchedule  ModalKind = "schedule"
	ModalKindInfo      ModalKind = "info"
)

// ParseModalKind returns the kind for a query value, reporting false for
// anything unrecognized.
func ParseModalKind(s string) (ModalKind, bool) {
	switch k := ModalKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ModalKindValuation, ModalKindSchedule, ModalKindInfo:
		return k, true
	default:
		return "", false
	}
}

// ListingSummary is the property preview shown in the lead modal.
type ListingSummary struct {
	Address  string `json:"address"`
	Meta     string `json:"meta,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ModalPayload describes what the visitor asked about. Valuation payloads
// never carry a listing; schedule and info payloads usually do.
type ModalPayload struct {
	Kind    ModalKind       `json:"kind"`
	Listing *ListingSummary `json:"listing,omitempty"`
}

// ValuationPayload is the payload for the "request your free valuation" action.
func ValuationPayload() ModalPayload {
	return ModalPayload{Kind: ModalKindValuation}
}

// SchedulePayload requests a tour of a listing.
func SchedulePayload(listing ListingSummary) ModalPayload {
	return ModalPayload{Kind: ModalKindSchedule, Listing: &listing}
}

// InfoPayload requests more information about a listing.
func InfoPayload(listing ListingSummary) ModalPayload {
	return ModalPayload{Kind: ModalKindInfo, Listing: &listing}
}

// Lead is the envelope handed to a lead sink. Exactly one of Form (contact)
// or Email (modal, newsletter) carries the visitor's details.
type Lead struct {
	Key        string        `json:"key"`
	Source     LeadSource    `json:"source"`
	Form       *LeadFormData `json:"form,omitempty"`
	Email      string        `json:"email,omitempty"`
	Payload    *ModalPayload `json:"payload,omitempty"`
	ReceivedAt time.Time     `json:"receivedAt"`
}

// ContactEmail returns the address the agent should reply to.
func (l Lead) ContactEmail() string {
	if l.Form != nil {
		return l.Form.Email
	}
	return l.Email
}

// leadNamespace scopes derived lead keys so they never collide with keys
// generated elsewhere.
var leadNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:gulfcoast:lead"))

// NewLeadKey returns a fresh key for a newly rendered form.
func NewLeadKey() string {
	return uuid.NewString()
}

// DeriveLeadKey builds a deterministic key from the lead content, so two
// identical submissions without a form key still share one key.
func DeriveLeadKey(l Lead) string {
	parts := []string{string(l.Source), strings.ToLower(strings.TrimSpace(l.Email))}
	if l.Form != nil {
		parts = append(parts,
			strings.TrimSpace(l.Form.Name),
			strings.ToLower(strings.TrimSpace(l.Form.Email)),
			strings.TrimSpace(l.Form.Phone),
			strings.TrimSpace(l.Form.Subject),
			strings.TrimSpace(l.Form.Message),
		)
	}
	if l.Payload != nil {
		parts = append(parts, string(l.Payload.Kind))
		if l.Payload.Listing != nil {
			parts = append(parts, l.Payload.Listing.Address, l.Payload.Listing.Meta)
		}
	}
	return uuid.NewSHA1(leadNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// ValidLeadKey reports whether s looks like a key this site issued.
func ValidLeadKey(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
