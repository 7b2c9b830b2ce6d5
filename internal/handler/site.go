// Package handler contains the HTTP handlers for the agent site.
//
// The page is rendered once in full; the mobile menu, the lead modal and the
// lead forms are re-rendered as htmx partials. Every interaction also works
// as a plain link or form post that re-renders the page.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/DukeRupert/gulfcoast/internal/content"
	"github.com/DukeRupert/gulfcoast/internal/csrf"
	"github.com/DukeRupert/gulfcoast/internal/domain"
	"github.com/DukeRupert/gulfcoast/internal/lead"
	"github.com/DukeRupert/gulfcoast/internal/listing"
	"github.com/DukeRupert/gulfcoast/internal/metrics"
	"github.com/DukeRupert/gulfcoast/internal/middleware"
)

// Limiter decides whether a client may submit another lead.
type Limiter interface {
	Allow(key string) bool
	RetryAfter(key string) time.Duration
}

// =============================================================================
// Handler Configuration
// =============================================================================

// SiteHandler serves the page and the lead endpoints.
type SiteHandler struct {
	site     *content.Site
	listings listing.Source
	sink     lead.Sink
	limiter  Limiter
	renderer TemplateRenderer
	logger   *slog.Logger
	isSecure bool
}

// SiteHandlerConfig holds the SiteHandler's dependencies.
type SiteHandlerConfig struct {
	Site     *content.Site
	Listings listing.Source
	Sink     lead.Sink
	Limiter  Limiter
	Renderer TemplateRenderer
	Logger   *slog.Logger
	IsSecure bool // marks the CSRF cookie Secure
}

func NewSiteHandler(cfg SiteHandlerConfig) *SiteHandler {
	listings := cfg.Listings
	if listings == nil {
		listings = listing.NewStatic(cfg.Site.SearchLinks)
	}
	return &SiteHandler{
		site:     cfg.Site,
		listings: listings,
		sink:     cfg.Sink,
		limiter:  cfg.Limiter,
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
		isSecure: cfg.IsSecure,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the site routes. Lead posts are CSRF protected.
//
// Routes:
// - GET  /                   -> Home
// - GET  /nav/mobile         -> MobileNav (partial)
// - GET  /leads/modal        -> OpenModal (partial)
// - GET  /leads/modal/close  -> CloseModal (partial)
// - POST /leads/modal        -> SubmitModal
// - POST /leads/contact      -> SubmitContact
// - POST /leads/newsletter   -> SubmitNewsletter
// - GET  /health             -> Health
// - GET  anything else       -> NotFound
func (h *SiteHandler) RegisterRoutes(mux *http.ServeMux) {
	protect := csrf.Protect(http.HandlerFunc(h.csrfFailed))

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /nav/mobile", h.MobileNav)
	mux.HandleFunc("GET /leads/modal", h.OpenModal)
	mux.HandleFunc("GET /leads/modal/close", h.CloseModal)
	mux.Handle("POST /leads/modal", protect(http.HandlerFunc(h.SubmitModal)))
	mux.Handle("POST /leads/contact", protect(http.HandlerFunc(h.SubmitContact)))
	mux.Handle("POST /leads/newsletter", protect(http.HandlerFunc(h.SubmitNewsletter)))
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /", h.NotFound)
}

// =============================================================================
// GET / - Page
// =============================================================================

// Home renders the page. The query carries shell state for visitors
// without JavaScript: /?menu=open, /?modal=valuation.
func (h *SiteHandler) Home(w http.ResponseWriter, r *http.Request) {
	token, ok := h.ensureToken(w, r)
	if !ok {
		return
	}

	shell := lead.ParseShell(r.URL.Query())
	data := h.pageData(r, shell, token)
	h.renderer.RenderHTTP(w, http.StatusOK, "public/home", data)
}

// pageData builds the page with fresh forms; callers replace the view of
// the form that was just posted.
func (h *SiteHandler) pageData(r *http.Request, shell *lead.Shell, token string) HomePageData {
	links, err := h.listings.SearchLinks(r.Context())
	if err != nil {
		h.logger.Warn("listing source failed, using configured links", "error", err)
		links = h.site.SearchLinks
	}

	return HomePageData{
		Site:        h.site,
		SearchLinks: links,
		Nav:         newNavView(shell),
		Contact:     newContactView(lead.NewContactForm(domain.NewLeadKey()), token, h.site.Agent),
		Modal:       newModalView(shell.Modal(), token, shell.ModalCloseHref()),
		Newsletter:  newNewsletterView(lead.NewNewsletter(domain.NewLeadKey()), token),
	}
}

// =============================================================================
// GET /nav/mobile - Mobile Menu
// =============================================================================

// MobileNav renders the mobile menu in the requested state.
func (h *SiteHandler) MobileNav(w http.ResponseWriter, r *http.Request) {
	shell := lead.ParseShell(r.URL.Query())
	h.renderer.RenderPartial(w, http.StatusOK, "mobile_nav", newNavView(shell))
}

// =============================================================================
// Lead Modal
// =============================================================================

// OpenModal renders a fresh modal for the payload in the query. Opening
// replaces whatever modal was showing.
func (h *SiteHandler) OpenModal(w http.ResponseWriter, r *http.Request) {
	payload, err := lead.ParseModalPayload(r.URL.Query())
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, lead.ModalHref(payload), http.StatusSeeOther)
		return
	}

	token, ok := h.ensureToken(w, r)
	if !ok {
		return
	}

	var shell lead.Shell
	modal := shell.OpenModal(payload)
	h.renderer.RenderPartial(w, http.StatusOK, "lead_modal", newModalView(modal, token, shell.ModalCloseHref()))
}

// CloseModal renders the empty modal container.
func (h *SiteHandler) CloseModal(w http.ResponseWriter, r *http.Request) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderer.RenderPartial(w, http.StatusOK, "lead_modal", newModalView(nil, "", "/"))
}

// SubmitModal sends {email, payload} to the lead sink.
func (h *SiteHandler) SubmitModal(w http.ResponseWriter, r *http.Request) {
	const op = "handler.modal.submit"

	if !h.parseForm(w, r, op) {
		return
	}
	modal, err := lead.BindModal(r.PostForm)
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	token := csrf.TokenFromRequest(r)
	status := h.submit(w, r, op, domain.LeadSourceModal, modal)
	view := newModalView(modal, token, "/")
	if status == http.StatusTooManyRequests {
		view.Failure = domain.ErrorMessage(domain.RateLimit(op))
	}

	if isHTMX(r) {
		h.renderer.RenderPartial(w, http.StatusOK, "lead_modal", view)
		return
	}

	data := h.pageData(r, &lead.Shell{}, token)
	data.Modal = view
	h.renderer.RenderHTTP(w, status, "public/home", data)
}

// =============================================================================
// POST /leads/contact - Contact Form
// =============================================================================

// SubmitContact validates the contact form and hands it to the lead sink.
// A failed delivery re-renders the form with the visitor's input intact.
func (h *SiteHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	const op = "handler.contact.submit"

	if !h.parseForm(w, r, op) {
		return
	}
	form := lead.BindContactForm(r.PostForm)
	token := csrf.TokenFromRequest(r)

	status := h.submit(w, r, op, domain.LeadSourceContact, form)
	view := newContactView(form, token, h.site.Agent)
	if status == http.StatusTooManyRequests {
		view.Failure = domain.ErrorMessage(domain.RateLimit(op))
	}

	if isHTMX(r) {
		h.renderer.RenderPartial(w, http.StatusOK, "contact_form", view)
		return
	}

	data := h.pageData(r, &lead.Shell{}, token)
	data.Contact = view
	h.renderer.RenderHTTP(w, status, "public/home", data)
}

// =============================================================================
// POST /leads/newsletter - Newsletter Signup
// =============================================================================

func (h *SiteHandler) SubmitNewsletter(w http.ResponseWriter, r *http.Request) {
	const op = "handler.newsletter.submit"

	if !h.parseForm(w, r, op) {
		return
	}
	n := lead.BindNewsletter(r.PostForm)
	token := csrf.TokenFromRequest(r)

	status := h.submit(w, r, op, domain.LeadSourceNewsletter, n)
	view := newNewsletterView(n, token)
	if status == http.StatusTooManyRequests {
		view.Failure = domain.ErrorMessage(domain.RateLimit(op))
	}

	if isHTMX(r) {
		h.renderer.RenderPartial(w, http.StatusOK, "newsletter_form", view)
		return
	}

	data := h.pageData(r, &lead.Shell{}, token)
	data.Newsletter = view
	h.renderer.RenderHTTP(w, status, "public/home", data)
}

// =============================================================================
// Shared submission path
// =============================================================================

type submitter interface {
	Submit(ctx context.Context, sink lead.Sink) error
}

// submit applies the rate limit, runs the form's submit and records the
// outcome. It returns the status a full-page response should carry.
func (h *SiteHandler) submit(w http.ResponseWriter, r *http.Request, op string, source domain.LeadSource, f submitter) int {
	client := middleware.ClientIP(r)
	if h.limiter != nil && !h.limiter.Allow(client) {
		if wait := h.limiter.RetryAfter(client); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second).Seconds())))
		}
		metrics.LeadReceived(source.String(), metrics.OutcomeLimited)
		return http.StatusTooManyRequests
	}

	err := f.Submit(r.Context(), h.sink)

	var ve *domain.ValidationError
	switch {
	case err == nil:
		metrics.LeadReceived(source.String(), metrics.OutcomeDelivered)
		h.logger.Info("lead received", "source", source, "op", op)
		return http.StatusOK
	case errors.As(err, &ve):
		metrics.LeadReceived(source.String(), metrics.OutcomeInvalid)
		h.logger.Info("lead rejected", "source", source, "op", op, "fields", len(ve.Fields))
		return http.StatusBadRequest
	case domain.ErrorCode(err) == domain.ECONFLICT:
		metrics.LeadReceived(source.String(), metrics.OutcomeDuplicate)
		h.logger.Info("duplicate lead submission", "source", source, "op", op)
		return http.StatusConflict
	default:
		metrics.LeadReceived(source.String(), metrics.OutcomeFailed)
		h.logger.Error("lead delivery failed", "source", source, "op", op, "error", err)
		return ErrorCodeToHTTPStatus(domain.ErrorCode(err))
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (h *SiteHandler) parseForm(w http.ResponseWriter, r *http.Request, op string) bool {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EINVALID, op, "Unable to read the form."))
		return false
	}
	return true
}

func (h *SiteHandler) ensureToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, err := csrf.EnsureToken(w, r, h.isSecure)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return "", false
	}
	return token, true
}

func (h *SiteHandler) csrfFailed(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("csrf token mismatch", "path", r.URL.Path, "ip", middleware.ClientIP(r))
	ForbiddenResponse(w, r, h.logger)
}

// NotFound answers any GET no other route claims.
func (h *SiteHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundResponse(w, r, h.logger)
}

// Health reports that the server is up.
func (h *SiteHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
