// Package content loads the site's copy, agent identity, service areas,
// search links and testimonials from YAML.
//
// The default content is embedded; CONTENT_FILE points at a replacement.
// ${VAR} references in the file are expanded from the environment before
// parsing.
package content

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

//go:embed default.yaml
var defaultContent []byte

// Sections holds the heading copy of each page section.
type Sections struct {
	Value        domain.SectionCopy `yaml:"value"`
	Buy          domain.SectionCopy `yaml:"buy"`
	Sell         domain.SectionCopy `yaml:"sell"`
	Areas        domain.SectionCopy `yaml:"areas"`
	Listings     domain.SectionCopy `yaml:"listings"`
	Testimonials domain.SectionCopy `yaml:"testimonials"`
	Contact      domain.SectionCopy `yaml:"contact"`
}

// Site is everything the page renders that isn't lead state. It is read
// once at startup and never mutated afterwards.
type Site struct {
	Agent    domain.Agent `yaml:"agent"`
	Hero     domain.Hero  `yaml:"hero"`
	Sections Sections     `yaml:"sections"`

	Stats        []domain.Stat        `yaml:"stats"`
	BuyFeatures  []domain.Feature     `yaml:"buy_features"`
	SellFeatures []domain.Feature     `yaml:"sell_features"`
	ServiceAreas []domain.ServiceArea `yaml:"service_areas"`
	SearchLinks  []domain.SearchLink  `yaml:"search_links"`
	Testimonials []domain.Testimonial `yaml:"testimonials"`

	TeamNote     string `yaml:"team_note"`     // shown beside the valuation button
	ListingsNote string `yaml:"listings_note"` // under the search cards
	AgentBlurb   string `yaml:"agent_blurb"`
	ReplyNote    string `yaml:"reply_note"`
	MapQuery     string `yaml:"map_query"`
	ServingNote  string `yaml:"serving_note"`
	Disclaimer   string `yaml:"disclaimer"`
}

// Load reads the content file at path, or the embedded default when path
// is empty.
func Load(path string) (*Site, error) {
	if path == "" {
		return Parse(defaultContent)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file %s: %w", path, err)
	}
	site, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("content file %s: %w", path, err)
	}
	return site, nil
}

// Default returns the embedded content.
func Default() (*Site, error) {
	return Parse(defaultContent)
}

// Parse expands environment references in data, decodes it and validates
// the result.
func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &site); err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}
	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("content validation failed: %w", err)
	}
	return &site, nil
}

// URLResolver turns an image reference into a browser URL.
type URLResolver interface {
	URL(ctx context.Context, ref string) (string, error)
}

// Resolve replaces every image reference with its URL.
func (s *Site) Resolve(ctx context.Context, r URLResolver) error {
	refs := []*string{&s.Agent.Headshot, &s.Hero.ImageURL}
	for i := range s.ServiceAreas {
		refs = append(refs, &s.ServiceAreas[i].ImageURL)
	}
	for i := range s.SearchLinks {
		refs = append(refs, &s.SearchLinks[i].ImageURL)
	}

	for _, ref := range refs {
		url, err := r.URL(ctx, *ref)
		if err != nil {
			return fmt.Errorf("resolve image %q: %w", *ref, err)
		}
		*ref = url
	}
	return nil
}
