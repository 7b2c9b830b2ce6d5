package handler

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	g "maragu.dev/gomponents"

	"github.com/DukeRupert/gulfcoast/internal/csrf"
	"github.com/DukeRupert/gulfcoast/internal/domain"
	"github.com/DukeRupert/gulfcoast/internal/view/components"
)

// TemplateFuncs returns the template FuncMap. now supplies the footer year.
func TemplateFuncs(now func() time.Time) template.FuncMap {
	titler := cases.Title(language.English)

	return template.FuncMap{
		"year": func() int {
			return now().Year()
		},

		"title": func(v any) string {
			return titler.String(fmt.Sprint(v))
		},
		"trimPrefix": strings.TrimPrefix,

		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", values[i])
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"safeURL": func(s string) template.URL {
			return template.URL(s)
		},
		"mapsEmbed": func(query string) template.URL {
			return template.URL("https://www.google.com/maps?q=" + url.QueryEscape(query) + "&output=embed")
		},

		"csrfField": func(token string) template.HTML {
			return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
				csrf.FormFieldName, template.HTMLEscapeString(token)))
		},

		// Presentational primitives
		"sectionHeader": func(c domain.SectionCopy) (template.HTML, error) {
			return renderNode(components.SectionHeader(c))
		},
		"stat": func(s domain.Stat) (template.HTML, error) {
			return renderNode(components.Stat(s))
		},
		"featureCard": func(f domain.Feature) (template.HTML, error) {
			return renderNode(components.FeatureCard(f))
		},
		"areaCard": func(a domain.ServiceArea) (template.HTML, error) {
			return renderNode(components.AreaCard(a))
		},
		"searchCard": func(s domain.SearchLink) (template.HTML, error) {
			return renderNode(components.SearchCard(s))
		},
		"testimonial": func(t domain.Testimonial) (template.HTML, error) {
			return renderNode(components.Testimonial(t))
		},
		"linkButton": func(href, label string, secondary bool) (template.HTML, error) {
			p := components.ButtonProps{Href: href}
			if secondary {
				p.Variant = components.Secondary
			}
			return renderNode(components.Button(p, g.Text(label)))
		},
		"valuationButton": func(label string) (template.HTML, error) {
			return renderNode(components.ModalButton(components.ButtonProps{}, domain.ValuationPayload(), g.Text(label)))
		},
	}
}

func renderNode(n g.Node) (template.HTML, error) {
	if n == nil {
		return "", nil
	}
	var b strings.Builder
	if err := n.Render(&b); err != nil {
		return "", err
	}
	return template.HTML(b.String()), nil
}
