package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/DukeRupert/gulfcoast/internal/domain"
	"github.com/DukeRupert/gulfcoast/internal/metrics"
)

const maxFeedBody = 1 << 20

// FeedConfig configures the JSON listing feed.
type FeedConfig struct {
	URL     string
	Timeout time.Duration // per request, default 5s

	// CacheTTL keeps a good response for this long; zero disables caching.
	CacheTTL time.Duration

	Client *http.Client

	MaxFailures uint32        // consecutive failures before the breaker opens, default 3
	OpenTimeout time.Duration // default 1m
}

// Feed fetches search links from an HTTP endpoint returning a JSON array of
// {id, title, description, href, imageUrl} records.
type Feed struct {
	url      string
	timeout  time.Duration
	cacheTTL time.Duration
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	fallback Source
	logger   *slog.Logger

	mu       sync.Mutex
	cached   []domain.SearchLink
	cachedAt time.Time
	now      func() time.Time
}

// NewFeed returns a feed that serves fallback whenever the feed can't.
func NewFeed(cfg FeedConfig, fallback Source, logger *slog.Logger) *Feed {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = time.Minute
	}

	settings := gobreaker.Settings{
		Name:        "listing-feed",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Feed{
		url:      cfg.URL,
		timeout:  cfg.Timeout,
		cacheTTL: cfg.CacheTTL,
		client:   cfg.Client,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// SearchLinks never fails while the fallback can answer.
func (f *Feed) SearchLinks(ctx context.Context) ([]domain.SearchLink, error) {
	if links, ok := f.fromCache(); ok {
		return links, nil
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx)
	})
	if err == nil {
		links := result.([]domain.SearchLink)
		f.store(links)
		return links, nil
	}

	f.logger.Warn("listing feed unavailable, serving static links", "error", err)
	metrics.ListingFeedFellBack()
	return f.fallback.SearchLinks(ctx)
}

// State exposes the breaker state for health reporting.
func (f *Feed) State() gobreaker.State {
	return f.breaker.State()
}

func (f *Feed) fromCache() ([]domain.SearchLink, bool) {
	if f.cacheTTL <= 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached == nil || f.now().Sub(f.cachedAt) > f.cacheTTL {
		return nil, false
	}
	return append([]domain.SearchLink(nil), f.cached...), true
}

func (f *Feed) store(links []domain.SearchLink) {
	if f.cacheTTL <= 0 {
		return
	}
	f.mu.Lock()
	f.cached = append([]domain.SearchLink(nil), links...)
	f.cachedAt = f.now()
	f.mu.Unlock()
}

func (f *Feed) fetch(ctx context.Context) ([]domain.SearchLink, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var records []domain.SearchLink
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBody)).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	links := make([]domain.SearchLink, 0, len(records))
	for _, r := range records {
		if r.ID == "" || r.Title == "" || !isWebURL(r.Href) {
			f.logger.Debug("skipping incomplete feed record", "id", r.ID)
			continue
		}
		links = append(links, r)
	}
	if len(links) == 0 {
		return nil, errors.New("feed returned no usable links")
	}
	return links, nil
}

func isWebURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

var _ Source = (*Feed)(nil)
