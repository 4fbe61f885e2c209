package model

import (
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Listing is a normalized marketplace record produced by a platform adapter.
type Listing struct {
	Platform     string    `json:"platform"`
	SearchTerm   string    `json:"search_term"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	PriceText    string    `json:"price_text,omitempty"`
	URL          string    `json:"url"`
	NativeItemID string    `json:"native_item_id,omitempty"`
	Location     string    `json:"location,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
}

// NormalizeTitle collapses interior whitespace and trims the title.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// Validate checks the listing invariants: a non-empty absolute URL and a
// title of at least 3 characters after whitespace normalization.
func (l *Listing) Validate() error {
	if l.URL == "" {
		return eris.New("listing: empty url")
	}
	u, err := url.Parse(l.URL)
	if err != nil {
		return eris.Wrapf(err, "listing: parse url %q", l.URL)
	}
	if !u.IsAbs() || u.Host == "" {
		return eris.Errorf("listing: url not absolute: %q", l.URL)
	}
	if len(NormalizeTitle(l.Title)) < 3 {
		return eris.Errorf("listing: title too short: %q", l.Title)
	}
	return nil
}
