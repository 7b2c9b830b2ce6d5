// Package email sends lead notifications to the agent.
//
// Two implementations are provided:
// - SMTPEmailService: Mailhog in development, any SMTP relay in production
// - LogEmailService: writes the rendered message to the log instead of sending
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EmailService sends transactional email.
type EmailService interface {
	// SendLeadNotification tells the agent (to) about a new lead. The
	// visitor's address is set as Reply-To so the agent can answer directly.
	SendLeadNotification(ctx context.Context, to string, lead domain.Lead) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	ReplyTo  string // Optional Reply-To address
	Subject  string // Email subject line
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

const (
	// DefaultFromEmail is the default sender email for lead notifications.
	DefaultFromEmail = "leads@gulfcoast.local"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Website Leads"
)

// Provider names accepted by New.
const (
	ProviderSMTP = "smtp"
	ProviderLog  = "log"
)

// New returns the email service for provider.
func New(provider string, cfg SMTPConfig, composer *Composer, logger *slog.Logger) (EmailService, error) {
	switch provider {
	case ProviderSMTP:
		return NewSMTPEmailService(cfg, composer, logger), nil
	case ProviderLog:
		return NewLogEmailService(cfg.From, composer, logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s", provider)
	}
}
