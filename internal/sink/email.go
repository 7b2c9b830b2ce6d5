package sink

import (
	"context"

	"github.com/DukeRupert/gulfcoast/internal/domain"
	"github.com/DukeRupert/gulfcoast/internal/email"
)

// EmailSink notifies the agent by email.
type EmailSink struct {
	svc email.EmailService
	to  string
}

func NewEmailSink(svc email.EmailService, to string) *EmailSink {
	return &EmailSink{svc: svc, to: to}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, lead domain.Lead) error {
	return s.svc.SendLeadNotification(ctx, s.to, lead)
}
