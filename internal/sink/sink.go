// Package sink delivers captured leads to wherever the agent reads them.
//
// A Sink is called once per successful form submission. Concrete sinks
// (log, email, webhook) are combined with Multi, instrumented with
// Instrument and guarded against duplicate delivery with Idempotent.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/DukeRupert/gulfcoast/internal/domain"
	"github.com/DukeRupert/gulfcoast/internal/metrics"
)

// Sink receives leads.
type Sink interface {
	Deliver(ctx context.Context, lead domain.Lead) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, lead domain.Lead) error

func (f SinkFunc) Deliver(ctx context.Context, lead domain.Lead) error {
	return f(ctx, lead)
}

// Named is implemented by sinks that report their name in logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns the sink's name, or its type when it has none.
func NameOf(s Sink) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// instrumented bounds each delivery with a timeout and records metrics.
type instrumented struct {
	name    string
	next    Sink
	timeout time.Duration
}

// Instrument wraps next so every delivery is bounded by timeout (when
// positive) and counted in the sink_deliveries_total metric under its name.
func Instrument(next Sink, timeout time.Duration) Sink {
	return &instrumented{name: NameOf(next), next: next, timeout: timeout}
}

func (s *instrumented) Name() string { return s.name }

func (s *instrumented) Deliver(ctx context.Context, lead domain.Lead) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.next.Deliver(ctx, lead)
	metrics.SinkDelivered(s.name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s sink: %w", s.name, err)
	}
	return nil
}
