package lead

import (
	"net/url"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// Query parameters carrying shell state through plain links.
const (
	ParamMenu  = "menu"
	ParamModal = "modal"

	MenuOpen = "open"
)

// Shell is the page-level UI state: the mobile menu and the single lead
// modal. Opening the modal while it is open replaces it with a fresh one.
type Shell struct {
	menuOpen bool
	modal    *Modal
}

// ParseShell restores shell state from a page URL such as
// /?menu=open or /?modal=schedule&address=... . Unknown values are ignored.
func ParseShell(q url.Values) *Shell {
	s := &Shell{menuOpen: q.Get(ParamMenu) == MenuOpen}

	if kind := q.Get(ParamModal); kind != "" {
		params := url.Values{
			ParamKind:    {kind},
			ParamAddress: {q.Get(ParamAddress)},
			ParamMeta:    {q.Get(ParamMeta)},
			ParamImage:   {q.Get(ParamImage)},
		}
		if payload, err := ParseModalPayload(params); err == nil {
			s.OpenModal(payload)
		}
	}
	return s
}

func (s *Shell) MenuOpen() bool {
	return s.menuOpen
}

func (s *Shell) ToggleMenu() {
	s.menuOpen = !s.menuOpen
}

// OpenModal shows the modal for payload and returns the new instance.
func (s *Shell) OpenModal(payload domain.ModalPayload) *Modal {
	s.modal = NewModal(payload, domain.NewLeadKey())
	return s.modal
}

func (s *Shell) CloseModal() {
	s.modal = nil
}

// Modal returns the open modal, or nil when closed.
func (s *Shell) Modal() *Modal {
	return s.modal
}

func (s *Shell) ModalOpen() bool {
	return s.modal != nil
}

// Query encodes the shell state as page query parameters.
func (s *Shell) Query() url.Values {
	var payload *domain.ModalPayload
	if s.modal != nil {
		p := s.modal.Payload()
		payload = &p
	}
	return pageQuery(s.menuOpen, payload)
}

// Href is the page link for the current state.
func (s *Shell) Href() string {
	return pageHref(s.Query())
}

// ModalHref is the page link with a modal open for payload. No modal
// instance is created.
func ModalHref(payload domain.ModalPayload) string {
	return pageHref(pageQuery(false, &payload))
}

func pageQuery(menuOpen bool, payload *domain.ModalPayload) url.Values {
	q := url.Values{}
	if menuOpen {
		q.Set(ParamMenu, MenuOpen)
	}
	if payload != nil {
		for k, v := range PayloadValues(*payload) {
			if k == ParamKind {
				q[ParamModal] = v
				continue
			}
			q[k] = v
		}
	}
	return q
}

func pageHref(q url.Values) string {
	if len(q) > 0 {
		return "/?" + q.Encode()
	}
	return "/"
}

// MenuToggleHref is the no-JS link for the menu button: the current page
// with the menu flipped.
func (s *Shell) MenuToggleHref() string {
	next := Shell{menuOpen: !s.menuOpen, modal: s.modal}
	return next.Href()
}

// ModalCloseHref is the no-JS link for the modal close control.
func (s *Shell) ModalCloseHref() string {
	next := Shell{menuOpen: s.menuOpen}
	return next.Href()
}
