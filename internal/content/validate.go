package content

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

var (
	hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	webURL   = regexp.MustCompile(`^https?://\S+$`)
)

// Validate checks the content is complete enough to render the page.
func (s *Site) Validate() error {
	errs := validation.Errors{
		"agent":     validateAgent(&s.Agent),
		"hero":      validation.ValidateStruct(&s.Hero, validation.Field(&s.Hero.Heading, validation.Required)),
		"map_query": validation.Validate(s.MapQuery, validation.Required),
	}

	for i := range s.ServiceAreas {
		a := &s.ServiceAreas[i]
		errs[fmt.Sprintf("service_areas.%d", i)] = validation.ValidateStruct(a,
			validation.Field(&a.Name, validation.Required),
			validation.Field(&a.ImageURL, validation.Required),
		)
	}

	seen := make(map[string]bool, len(s.SearchLinks))
	for i := range s.SearchLinks {
		l := &s.SearchLinks[i]
		key := fmt.Sprintf("search_links.%d", i)
		errs[key] = validation.ValidateStruct(l,
			validation.Field(&l.ID, validation.Required),
			validation.Field(&l.Title, validation.Required),
			validation.Field(&l.Href, validation.Required, validation.Match(webURL).Error("must be an http(s) URL")),
		)
		if errs[key] == nil && seen[l.ID] {
			errs[key] = fmt.Errorf("duplicate id %q", l.ID)
		}
		seen[l.ID] = true
	}

	for i := range s.Testimonials {
		t := &s.Testimonials[i]
		errs[fmt.Sprintf("testimonials.%d", i)] = validation.ValidateStruct(t,
			validation.Field(&t.Quote, validation.Required),
			validation.Field(&t.Name, validation.Required),
		)
	}

	return errs.Filter()
}

func validateAgent(a *domain.Agent) error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.Phone, validation.Required, validation.By(hasDigits)),
		validation.Field(&a.Email, validation.Required),
		validation.Field(&a.BrandColor, validation.Match(hexColor).Error("must be a hex colour such as #0f766e")),
		validation.Field(&a.BrokerURL, validation.Match(webURL).Error("must be an http(s) URL")),
	)
}

func hasDigits(value any) error {
	s, _ := value.(string)
	if len(onlyDigits(s)) < 7 {
		return errors.New("must contain a dialable number")
	}
	return nil
}

func onlyDigits(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}
