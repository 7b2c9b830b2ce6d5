// Package listing supplies the search links shown in the listings section.
//
// Until an IDX feed is connected the links come from the site content. A
// JSON feed can replace them; when the feed fails the static links are
// served instead.
package listing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// Source names accepted by New.
const (
	SourceStatic = "static"
	SourceFeed   = "feed"
)

// Source returns the ordered search links to render.
type Source interface {
	SearchLinks(ctx context.Context) ([]domain.SearchLink, error)
}

// Static serves a fixed set of links.
type Static struct {
	links []domain.SearchLink
}

func NewStatic(links []domain.SearchLink) *Static {
	return &Static{links: append([]domain.SearchLink(nil), links...)}
}

// SearchLinks returns a copy, so callers can't reorder the shared slice.
func (s *Static) SearchLinks(context.Context) ([]domain.SearchLink, error) {
	return append([]domain.SearchLink(nil), s.links...), nil
}

var _ Source = (*Static)(nil)

// New returns the source called name. The static links also back the feed.
func New(name string, static []domain.SearchLink, feed FeedConfig, logger *slog.Logger) (Source, error) {
	switch name {
	case SourceStatic, "":
		return NewStatic(static), nil
	case SourceFeed:
		if feed.URL == "" {
			return nil, fmt.Errorf("listing feed: URL is required")
		}
		return NewFeed(feed, NewStatic(static), logger), nil
	default:
		return nil, fmt.Errorf("unknown listing source: %s", name)
	}
}
