package sink

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// Status of a lead key in an idempotency store.
type Status int

const (
	// StatusNew means the caller now owns the key.
	StatusNew Status = iota
	// StatusPending means another request is delivering the lead.
	StatusPending
	// StatusDelivered means the lead was already delivered.
	StatusDelivered
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusPending:
		return "pending"
	case StatusDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Store records which lead keys are being or have been delivered.
// Implementations must be safe for concurrent use.
type Store interface {
	// Reserve atomically claims key as pending. When the key is already
	// known it returns the existing status and claims nothing.
	Reserve(ctx context.Context, key string) (Status, error)
	// MarkDelivered records a successful delivery.
	MarkDelivered(ctx context.Context, key string) error
	// Release forgets a pending key so the lead can be retried.
	Release(ctx context.Context, key string) error
}

// Idempotent delivers each lead at most once per form key and content. A
// resubmission of a delivered lead succeeds without calling the wrapped sink;
// a resubmission while the first is still in flight fails with a conflict.
// Edited content under a delivered key is a new lead and is delivered.
type Idempotent struct {
	next   Sink
	store  Store
	logger *slog.Logger
}

func NewIdempotent(next Sink, store Store, logger *slog.Logger) *Idempotent {
	return &Idempotent{next: next, store: store, logger: logger}
}

func (s *Idempotent) Name() string { return NameOf(s.next) }

func (s *Idempotent) Deliver(ctx context.Context, lead domain.Lead) error {
	const op = "sink.idempotent"

	key := reservationKey(lead)
	status, err := s.store.Reserve(ctx, key)
	if err != nil {
		// Deliver unguarded rather than drop the lead.
		s.logger.WarnContext(ctx, "idempotency store unavailable, delivering unguarded",
			"key", lead.Key,
			"error", err,
		)
		return s.next.Deliver(ctx, lead)
	}

	switch status {
	case StatusDelivered:
		s.logger.InfoContext(ctx, "duplicate lead ignored", "key", lead.Key, "source", lead.Source)
		return nil
	case StatusPending:
		return domain.Conflict(op, "Your message is already being sent.")
	}

	if err := s.next.Deliver(ctx, lead); err != nil {
		// Release even if the request was cancelled, or the key stays
		// pending until it expires.
		cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if rerr := s.store.Release(cleanup, key); rerr != nil {
			s.logger.ErrorContext(ctx, "failed to release lead key", "key", lead.Key, "error", rerr)
		}
		return err
	}

	done, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.store.MarkDelivered(done, key); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark lead delivered", "key", lead.Key, "error", err)
	}
	return nil
}

// reservationKey pairs the form key with a digest of the content.
func reservationKey(lead domain.Lead) string {
	return lead.Key + "/" + domain.DeriveLeadKey(lead)
}
