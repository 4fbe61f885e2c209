package adapter

import (
	"net/url"
	"regexp"
)

// Craigslist has no search API; city subdomains serve static result markup.
// Three cities per attempt keeps any single subdomain's traffic low.
func NewCraigslist(opts ...HTMLOption) *HTMLAdapter {
	return NewHTMLAdapter(Site{
		Platform: "craigslist",
		Regions: []string{
			"https://sfbay.craigslist.org",
			"https://newyork.craigslist.org",
			"https://losangeles.craigslist.org",
			"https://chicago.craigslist.org",
			"https://miami.craigslist.org",
			"https://seattle.craigslist.org",
			"https://houston.craigslist.org",
			"https://atlanta.craigslist.org",
			"https://denver.craigslist.org",
		},
		RegionsPerCall: 3,
		SearchURL: func(base, kw string) string {
			return base + "/search/sss?query=" + url.QueryEscape(kw)
		},
		Selectors: []SelectorSet{
			{
				Name: "static-search-result",
				Item: regexp.MustCompile(`(?is)<li[^>]+class="cl-static-search-result"[^>]*>\s*<a\s+href="(?P<url>[^"]+)"[^>]*>.*?<div class="title">(?P<title>.*?)</div>(?:.*?<div class="price">(?P<price>.*?)</div>)?(?:.*?<div class="location">(?P<loc>.*?)</div>)?.*?</li>`),
			},
			{
				Name: "result-row",
				Item: regexp.MustCompile(`(?is)<a[^>]+class="result-title[^"]*"[^>]+href="(?P<url>[^"]+)"[^>]*>(?P<title>.*?)</a>(?:.*?<span class="result-price">(?P<price>.*?)</span>)?`),
			},
		},
		RequestsPerSecond: 0.5,
	}, opts...)
}
