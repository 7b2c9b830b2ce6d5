package handler

import (
	"net/url"

	"github.com/DukeRupert/gulfcoast/internal/content"
	"github.com/DukeRupert/gulfcoast/internal/domain"
	"github.com/DukeRupert/gulfcoast/internal/lead"
)

// =============================================================================
// Template Data Types
// =============================================================================

// HomePageData is the data for the single public page.
type HomePageData struct {
	Site        *content.Site
	SearchLinks []domain.SearchLink
	Nav         NavView
	Contact     ContactView
	Modal       ModalView
	Newsletter  NewsletterView
}

// navSections are the page anchors listed in the mobile menu, in order.
var navSections = []string{"buy", "sell", "areas", "listings", "testimonials", "contact"}

// NavView is the mobile menu: a toggle and, when open, the section links.
type NavView struct {
	Open bool
	// ToggleHref is the no-JS link for the toggle.
	ToggleHref string
	Sections   []string
}

// NextMenu is the menu query value the toggle requests.
func (v NavView) NextMenu() string {
	if v.Open {
		return "closed"
	}
	return lead.MenuOpen
}

func newNavView(shell *lead.Shell) NavView {
	return NavView{
		Open:       shell.MenuOpen(),
		ToggleHref: shell.MenuToggleHref(),
		Sections:   navSections,
	}
}

// formState is what every lead form partial shows besides its fields.
type formState struct {
	CSRFToken string
	Key       string
	Submitted bool
	Errors    *domain.ValidationError
	Failure   string
}

// FieldError returns the message to show under the named input.
func (s formState) FieldError(name string) string {
	return s.Errors.Get(name)
}

type submittable interface {
	Key() string
	Submitted() bool
	FieldErrors() *domain.ValidationError
	Failure() error
}

func newFormState(f submittable, csrfToken string) formState {
	s := formState{
		CSRFToken: csrfToken,
		Key:       f.Key(),
		Submitted: f.Submitted(),
		Errors:    f.FieldErrors(),
	}
	if err := f.Failure(); err != nil {
		s.Failure = domain.ErrorMessage(err)
	}
	return s
}

// ContactView is the data for the contact_form partial.
type ContactView struct {
	formState
	Data  domain.LeadFormData
	Agent domain.Agent
}

func newContactView(f *lead.ContactForm, csrfToken string, agent domain.Agent) ContactView {
	return ContactView{
		formState: newFormState(f, csrfToken),
		Data:      f.Data(),
		Agent:     agent,
	}
}

// ModalView is the data for the lead_modal partial. A closed modal renders
// only its empty container.
type ModalView struct {
	formState
	Open    bool
	Header  string
	Listing *domain.ListingSummary
	Payload url.Values // echoed as hidden fields
	Email   string
	// CloseHref is the no-JS link for the close control.
	CloseHref string
}

func newModalView(m *lead.Modal, csrfToken, closeHref string) ModalView {
	if m == nil {
		return ModalView{CloseHref: closeHref}
	}
	return ModalView{
		formState: newFormState(m, csrfToken),
		Open:      true,
		Header:    m.Header(),
		Listing:   m.Listing(),
		Payload:   lead.PayloadValues(m.Payload()),
		Email:     m.Email(),
		CloseHref: closeHref,
	}
}

// NewsletterView is the data for the newsletter_form partial.
type NewsletterView struct {
	formState
	Email string
}

func newNewsletterView(n *lead.Newsletter, csrfToken string) NewsletterView {
	return NewsletterView{
		formState: newFormState(n, csrfToken),
		Email:     n.Email(),
	}
}
