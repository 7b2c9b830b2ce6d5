package sink

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// LogSink writes each lead as a structured log record. It is the only place
// lead contents are logged.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, lead domain.Lead) error {
	attrs := []any{
		"key", lead.Key,
		"source", lead.Source,
		"email", lead.ContactEmail(),
		"received_at", lead.ReceivedAt,
	}
	if lead.Form != nil {
		attrs = append(attrs,
			slog.Group("form",
				"name", lead.Form.Name,
				"phone", lead.Form.Phone,
				"subject", lead.Form.Subject,
				"message", lead.Form.Message,
			),
		)
	}
	if lead.Payload != nil {
		attrs = append(attrs, "kind", lead.Payload.Kind)
		if l := lead.Payload.Listing; l != nil {
			attrs = append(attrs, slog.Group("listing", "address", l.Address, "meta", l.Meta))
		}
	}

	s.logger.InfoContext(ctx, "lead received", attrs...)
	return nil
}
