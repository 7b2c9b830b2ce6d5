package domain

import "strings"

// Agent is the identity shown across the site.
type Agent struct {
	Name       string `yaml:"name"`
	Tagline    string `yaml:"tagline"`
	Phone      string `yaml:"phone"`
	Email      string `yaml:"email"`
	Brokerage  string `yaml:"brokerage"`
	BrokerURL  string `yaml:"broker_url"`
	BrandColor string `yaml:"brand_color"`
	Headshot   string `yaml:"headshot"` // Asset ref, resolved to a URL at load time
	Initials   string `yaml:"initials"`
	Region     string `yaml:"region"` // e.g. "Baldwin & Mobile County"
	Office     string `yaml:"office"` // e.g. "Daphne, AL"
}

// TelHref returns a tel: link keeping only the ASCII digits of the phone.
func (a Agent) TelHref() string {
	var b strings.Builder
	b.WriteString("tel:")
	for _, r := range a.Phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MailtoHref returns the mailto: link for the agent's email.
func (a Agent) MailtoHref() string {
	return "mailto:" + a.Email
}

// Hero is the banner at the top of the page.
type Hero struct {
	Heading  string `yaml:"heading"`
	ImageURL string `yaml:"image"`
	ImageAlt string `yaml:"image_alt"`
}

// SectionCopy is the heading and optional subtitle of a page section.
type SectionCopy struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
}

type Stat struct {
	Icon  string `yaml:"icon"`
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

type Feature struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// ServiceArea is a neighborhood card.
type ServiceArea struct {
	Name     string `yaml:"name"`
	Blurb    string `yaml:"blurb"`
	ImageURL string `yaml:"image"`
	AltText  string `yaml:"alt"`
}

// SearchLink is a placeholder search on a third-party listing site.
type SearchLink struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Href        string `yaml:"href" json:"href"`
	ImageURL    string `yaml:"image" json:"imageUrl"`
}

// Summary converts the search link into a modal listing preview, used by
// the "request custom search" action.
func (s SearchLink) Summary() ListingSummary {
	return ListingSummary{
		Address:  s.Title,
		Meta:     s.Description,
		ImageURL: s.ImageURL,
	}
}

type Testimonial struct {
	Quote string `yaml:"quote"`
	Name  string `yaml:"name"`
	Sub   string `yaml:"sub"`
}
