package model

import "time"

// SourceKind selects how a listing page is turned into candidate links.
type SourceKind string

const (
	SourceKindHTML SourceKind = "html"
	SourceKindRSS  SourceKind = "rss"
)

// Source describes one external news site.
type Source struct {
	Name          string     `yaml:"name" mapstructure:"name" json:"name"`
	Kind          SourceKind `yaml:"kind" mapstructure:"kind" json:"kind"`
	ListingURL    string     `yaml:"listing_url" mapstructure:"listing_url" json:"listing_url"`
	BaseURL       string     `yaml:"base_url" mapstructure:"base_url" json:"base_url"`
	LinkSelector  string     `yaml:"link_selector" mapstructure:"link_selector" json:"link_selector"`
	AbsoluteLinks bool       `yaml:"absolute_links" mapstructure:"absolute_links" json:"absolute_links"`
	Disabled      bool       `yaml:"disabled" mapstructure:"disabled" json:"disabled,omitempty"`
}

// EffectiveKind returns the source kind, defaulting to HTML.
func (s Source) EffectiveKind() SourceKind {
	if s.Kind == "" {
		return SourceKindHTML
	}
	return s.Kind
}

// Candidate is an article link found on a listing page.
type Candidate struct {
	URL string
	// PublishedHint is the listing's own publish time for the item, when
	// the listing provides one (RSS).
	PublishedHint *time.Time
}
