package sink

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// Multi delivers to every sink concurrently and fails if any of them fails.
// A failed fan-out is retried as a whole, so sinks should tolerate seeing
// the same lead key twice (the webhook forwards it as Idempotency-Key).
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, logger: logger}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Deliver(ctx context.Context, lead domain.Lead) error {
	if len(m.sinks) == 1 {
		return m.sinks[0].Deliver(ctx, lead)
	}

	errs := make([]error, len(m.sinks))
	var wg sync.WaitGroup
	for i, s := range m.sinks {
		wg.Add(1)
		go func(i int, s Sink) {
			defer wg.Done()
			errs[i] = s.Deliver(ctx, lead)
		}(i, s)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			m.logger.WarnContext(ctx, "lead delivery failed",
				"sink", NameOf(m.sinks[i]),
				"key", lead.Key,
				"error", err,
			)
		}
	}
	return errors.Join(errs...)
}
