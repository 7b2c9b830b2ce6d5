package email

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

const leadNotificationTemplate = "lead_notification.html"

// Composer renders notification emails from the email templates.
type Composer struct {
	templates *template.Template
	baseURL   string
	siteName  string
}

// NewComposer parses the email templates found under dir in fsys.
//
// Example usage:
//
//	composer, err := email.NewComposer(web.Templates(), "email", "https://example.com", "Greg Dumas")
func NewComposer(fsys fs.FS, dir, baseURL, siteName string) (*Composer, error) {
	templates, err := template.New("email").Funcs(emailTemplateFuncs()).ParseFS(fsys, dir+"/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Composer{
		templates: templates,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		siteName:  siteName,
	}, nil
}

// leadView is the template data for a lead notification.
type leadView struct {
	SiteName   string
	SiteURL    string
	Source     string
	Name       string
	Email      string
	Phone      string
	Subject    string
	Message    string
	Request    string
	Listing    *domain.ListingSummary
	Key        string
	ReceivedAt time.Time
	Year       int
}

func newLeadView(c *Composer, l domain.Lead) leadView {
	v := leadView{
		SiteName:   c.siteName,
		SiteURL:    c.baseURL,
		Source:     string(l.Source),
		Email:      l.ContactEmail(),
		Key:        l.Key,
		ReceivedAt: l.ReceivedAt,
		Year:       l.ReceivedAt.Year(),
	}
	if l.Form != nil {
		v.Name = l.Form.Name
		v.Phone = l.Form.Phone
		v.Subject = l.Form.Subject
		v.Message = l.Form.Message
	}
	if l.Payload != nil {
		v.Request = requestLabel(l.Payload.Kind)
		v.Listing = l.Payload.Listing
	}
	return v
}

func requestLabel(kind domain.ModalKind) string {
	switch kind {
	case domain.ModalKindValuation:
		return "Home valuation"
	case domain.ModalKindSchedule:
		return "Tour request"
	default:
		return "Property info"
	}
}

// LeadNotification builds the notification for lead addressed to to.
func (c *Composer) LeadNotification(to string, l domain.Lead) (Email, error) {
	v := newLeadView(c, l)

	var buf bytes.Buffer
	if err := c.templates.ExecuteTemplate(&buf, leadNotificationTemplate, v); err != nil {
		return Email{}, fmt.Errorf("failed to render lead notification template: %w", err)
	}

	return Email{
		To:       to,
		ReplyTo:  v.Email,
		Subject:  leadSubject(v),
		HTMLBody: buf.String(),
		TextBody: leadText(v),
	}, nil
}

func leadSubject(v leadView) string {
	switch v.Source {
	case string(domain.LeadSourceContact):
		who := v.Name
		if who == "" {
			who = v.Email
		}
		return sanitizeHeader("New contact from " + who)
	case string(domain.LeadSourceModal):
		return sanitizeHeader(v.Request + ": " + v.Email)
	default:
		return sanitizeHeader("New newsletter signup: " + v.Email)
	}
}

func leadText(v leadView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New %s lead from %s\n\n", v.Source, v.SiteName)
	if v.Name != "" {
		fmt.Fprintf(&b, "Name:    %s\n", v.Name)
	}
	fmt.Fprintf(&b, "Email:   %s\n", v.Email)
	if v.Phone != "" {
		fmt.Fprintf(&b, "Phone:   %s\n", v.Phone)
	}
	if v.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", v.Subject)
	}
	if v.Request != "" {
		fmt.Fprintf(&b, "Request: %s\n", v.Request)
	}
	if v.Listing != nil {
		fmt.Fprintf(&b, "Listing: %s", v.Listing.Address)
		if v.Listing.Meta != "" {
			fmt.Fprintf(&b, " (%s)", v.Listing.Meta)
		}
		b.WriteString("\n")
	}
	if v.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", v.Message)
	}
	fmt.Fprintf(&b, "\nReceived %s\nReference %s\n", v.ReceivedAt.Format(time.RFC1123), v.Key)
	return b.String()
}

// sanitizeHeader strips line breaks so visitor input cannot add headers.
func sanitizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.NewReplacer("\r", " ", "\n", " ").Replace(s)), " ")
}

// =============================================================================
// Template Functions
// =============================================================================

// emailTemplateFuncs returns template functions available in email templates.
func emailTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("Mon, Jan 2 2006 at 3:04 PM MST")
		},
		"nl2br": func(s string) template.HTML {
			escaped := template.HTMLEscapeString(s)
			return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
		},
	}
}
