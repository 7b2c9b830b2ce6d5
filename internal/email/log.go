package email

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// LogEmailService writes notifications to the log instead of sending them.
// Useful in development without Mailhog.
type LogEmailService struct {
	from     string
	composer *Composer
	logger   *slog.Logger
}

func NewLogEmailService(from string, composer *Composer, logger *slog.Logger) *LogEmailService {
	if from == "" {
		from = DefaultFromEmail
	}
	return &LogEmailService{from: from, composer: composer, logger: logger}
}

func (s *LogEmailService) SendLeadNotification(ctx context.Context, to string, lead domain.Lead) error {
	msg, err := s.composer.LeadNotification(to, lead)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "email sent (logged)",
		"from", s.from,
		"to", msg.To,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return nil
}

var _ EmailService = (*LogEmailService)(nil)
