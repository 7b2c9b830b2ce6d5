// Package components holds the page's presentational primitives. Each is a
// pure function from content to markup; none keeps state.
package components

import (
	twmerge "github.com/Oudwins/tailwind-merge-go"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"

	"github.com/DukeRupert/gulfcoast/internal/domain"
	"github.com/DukeRupert/gulfcoast/internal/lead"
)

// ModalTarget is the element the lead modal partial replaces.
const ModalTarget = "#lead-modal"

// Variant selects a call-to-action style.
type Variant string

const (
	Primary   Variant = "primary"
	Secondary Variant = "secondary"
)

const buttonBase = "inline-flex items-center gap-2 px-5 py-3 rounded-xl font-semibold transition focus:outline-none focus:ring-2 focus:ring-offset-2"

var buttonStyles = map[Variant]string{
	Primary:   "bg-brand text-white hover:bg-brand-dark focus:ring-brand",
	Secondary: "bg-white/90 text-slate-900 hover:bg-white focus:ring-slate-300 border border-slate-200",
}

// ButtonProps configures Button. With an Href the control is a link,
// otherwise a type="button" button.
type ButtonProps struct {
	Href    string
	Variant Variant
	Class   string // merged over the variant's classes
	Attrs   []g.Node
}

// Button renders a call-to-action control.
func Button(p ButtonProps, children ...g.Node) g.Node {
	style, ok := buttonStyles[p.Variant]
	if !ok {
		style = buttonStyles[Primary]
	}
	class := h.Class(twmerge.Merge(buttonBase, style, p.Class))

	if p.Href != "" {
		return h.A(h.Href(p.Href), class, g.Group(p.Attrs), g.Group(children))
	}
	return h.Button(h.Type("button"), class, g.Group(p.Attrs), g.Group(children))
}

// ModalButton is a Button that opens the lead modal for payload: an htmx
// request when scripting is on, a page link to the same state otherwise.
func ModalButton(p ButtonProps, payload domain.ModalPayload, children ...g.Node) g.Node {
	p.Href = lead.ModalHref(payload)
	attrs := make([]g.Node, 0, len(p.Attrs)+3)
	attrs = append(attrs, p.Attrs...)
	p.Attrs = append(attrs,
		hx.Get("/leads/modal?"+lead.PayloadValues(payload).Encode()),
		hx.Target(ModalTarget),
		hx.Swap("outerHTML"),
	)
	return Button(p, children...)
}

// SectionHeader renders a section's title and optional subtitle. Nothing
// is rendered for an empty title.
func SectionHeader(c domain.SectionCopy) g.Node {
	if c.Title == "" {
		return nil
	}
	return h.Div(h.Class("mb-8"),
		h.H2(h.Class("text-3xl md:text-4xl font-bold tracking-tight"), g.Text(c.Title)),
		g.If(c.Subtitle != "", h.P(h.Class("text-slate-600 mt-2 max-w-3xl"), g.Text(c.Subtitle))),
	)
}

const cardClass = "bg-white rounded-2xl p-6 border border-slate-200 shadow-sm"

// Stat renders a statistic card.
func Stat(s domain.Stat) g.Node {
	return h.Div(h.Class(cardClass),
		h.Div(h.Class("text-lg font-semibold flex items-center gap-2"),
			g.If(s.Icon != "", h.Span(h.Aria("hidden", "true"), g.Text(s.Icon))),
			g.Text(s.Label),
		),
		h.Div(h.Class("text-slate-600 mt-2 text-sm leading-relaxed"), g.Text(s.Text)),
	)
}

func FeatureCard(f domain.Feature) g.Node {
	return h.Div(h.Class(cardClass),
		h.Div(h.Class("text-xl font-semibold"), g.Text(f.Title)),
		h.Div(h.Class("text-slate-600 mt-2"), g.Text(f.Text)),
	)
}

// AreaCard renders a service area photo card. The alt text falls back to
// the area name.
func AreaCard(a domain.ServiceArea) g.Node {
	alt := a.AltText
	if alt == "" {
		alt = a.Name
	}
	return h.Div(h.Class("group relative overflow-hidden rounded-2xl border border-slate-200 shadow-sm"),
		h.Img(
			h.Src(a.ImageURL),
			h.Alt(alt),
			h.Loading("lazy"),
			h.Class("aspect-[4/3] w-full object-cover object-center transition group-hover:scale-105"),
		),
		h.Div(h.Class("absolute inset-0 bg-gradient-to-t from-black/60 to-transparent")),
		h.Div(h.Class("absolute bottom-0 p-5 text-white"),
			h.Div(h.Class("text-lg font-semibold"), g.Text(a.Name)),
			h.Div(h.Class("text-white/90 text-sm"), g.Text(a.Blurb)),
		),
	)
}

// SearchCard renders a third-party search link with a "Request custom
// search" action that opens the info modal previewing the search.
func SearchCard(s domain.SearchLink) g.Node {
	payload := domain.InfoPayload(s.Summary())

	return h.Div(h.Class("rounded-2xl overflow-hidden shadow hover:shadow-lg transition border border-slate-200 bg-white"),
		h.Div(h.Class("aspect-[16/10] w-full overflow-hidden"),
			h.Img(h.Src(s.ImageURL), h.Alt(s.Title), h.Loading("lazy"), h.Class("h-full w-full object-cover")),
		),
		h.Div(h.Class("p-5 space-y-3"),
			h.H3(h.Class("font-semibold text-lg leading-tight"), g.Text(s.Title)),
			h.Div(h.Class("text-slate-600"), g.Text(s.Description)),
			h.Div(h.Class("flex flex-wrap gap-2"),
				Button(ButtonProps{
					Href:  s.Href,
					Attrs: []g.Node{h.Target("_blank"), h.Rel("noreferrer")},
				}, g.Text("Open search")),
				ModalButton(ButtonProps{Variant: Secondary}, payload, g.Text("Request custom search")),
			),
		),
	)
}

func Testimonial(t domain.Testimonial) g.Node {
	return h.Figure(h.Class(cardClass),
		h.BlockQuote(h.P(h.Class("text-slate-800 italic"), g.Text("“"+t.Quote+"”"))),
		h.FigCaption(h.Class("mt-4"),
			h.Div(h.Class("font-semibold"), g.Text(t.Name)),
			h.Div(h.Class("text-slate-600 text-sm"), g.Text(t.Sub)),
		),
	)
}
