package adapter

import (
	"net/url"
	"regexp"
)

// NewMarktplaats scans the Dutch marketplace. Single region.
func NewMarktplaats(opts ...HTMLOption) *HTMLAdapter {
	return NewHTMLAdapter(Site{
		Platform: "marktplaats",
		Regions:  []string{"https://www.marktplaats.nl"},
		SearchURL: func(base, kw string) string {
			return base + "/q/" + url.PathEscape(kw) + "/"
		},
		Selectors: []SelectorSet{
			{
				Name: "listing-root",
				Item: regexp.MustCompile(`(?is)<a[^>]+class="[^"]*hz-Listing-coverLink[^"]*"[^>]+href="(?P<url>[^"]+)"[^>]*>.*?<h3[^>]+class="[^"]*hz-Listing-title[^"]*"[^>]*>(?P<title>.*?)</h3>(?:.*?<span[^>]+class="[^"]*hz-Listing-price[^"]*"[^>]*>(?P<price>.*?)</span>)?`),
			},
			{
				Name: "anchor-fallback",
				Item: regexp.MustCompile(`(?is)<a[^>]+href="(?P<url>[^"]*/v/[^"]+)"[^>]*>(?P<title>[^<]{6,160})</a>`),
			},
		},
		Headers:           map[string]string{"Accept-Language": "nl-NL,nl;q=0.9,en;q=0.5"},
		RequestsPerSecond: 0.5,
	}, opts...)
}
