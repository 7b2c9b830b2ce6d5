package lead

import (
	"context"
	"time"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// Newsletter is the footer "stay in the loop" signup.
type Newsletter struct {
	machine
	email string
}

func NewNewsletter(key string) *Newsletter {
	return &Newsletter{machine: machine{key: key, now: time.Now}}
}

func (n *Newsletter) SetEmail(email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.editable(); err != nil {
		return err
	}
	n.email = email
	return nil
}

func (n *Newsletter) Email() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.email
}

func (n *Newsletter) Submit(ctx context.Context, sink Sink) error {
	return n.submit(ctx, "lead.newsletter.submit", sink,
		func() *domain.ValidationError {
			return requireEmail(n.email)
		},
		func() domain.Lead {
			return domain.Lead{
				Key:    n.key,
				Source: domain.LeadSourceNewsletter,
				Email:  n.email,
			}
		},
	)
}
