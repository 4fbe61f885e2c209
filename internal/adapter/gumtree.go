package adapter

import (
	"net/url"
	"regexp"
)

// NewGumtree scans the UK and Australian sites.
func NewGumtree(opts ...HTMLOption) *HTMLAdapter {
	return NewHTMLAdapter(Site{
		Platform: "gumtree",
		Regions: []string{
			"https://www.gumtree.com",
			"https://www.gumtree.com.au",
		},
		RegionsPerCall: 1,
		SearchURL: func(base, kw string) string {
			return base + "/search?search_category=all&q=" + url.QueryEscape(kw)
		},
		Selectors: []SelectorSet{
			{
				Name: "tile",
				Item: regexp.MustCompile(`(?is)<a[^>]+data-q="search-result-anchor"[^>]+href="(?P<url>[^"]+)"[^>]*>.*?<div[^>]+data-q="tile-title"[^>]*>(?P<title>.*?)</div>(?:.*?<div[^>]+data-q="tile-price"[^>]*>(?P<price>.*?)</div>)?(?:.*?<div[^>]+data-q="tile-location"[^>]*>(?P<loc>.*?)</div>)?`),
			},
			{
				Name: "listing-link",
				Item: regexp.MustCompile(`(?is)<a[^>]+class="[^"]*listing-link[^"]*"[^>]+href="(?P<url>[^"]+)"[^>]*>.*?<h2[^>]+class="[^"]*listing-title[^"]*"[^>]*>(?P<title>.*?)</h2>`),
			},
		},
		RequestsPerSecond: 0.5,
	}, opts...)
}
