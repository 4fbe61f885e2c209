package adapter

import (
	"net/url"
	"regexp"
	"strings"
)

// NewOLX scans the European OLX mirrors. Two mirrors per attempt, window
// rotated by the retry counter.
func NewOLX(opts ...HTMLOption) *HTMLAdapter {
	return NewHTMLAdapter(Site{
		Platform: "olx",
		Regions: []string{
			"https://www.olx.pl",
			"https://www.olx.ua",
			"https://www.olx.bg",
			"https://www.olx.ro",
			"https://www.olx.pt",
		},
		RegionsPerCall: 2,
		SearchURL: func(base, kw string) string {
			return base + "/d/oferty/q-" + olxSlug(kw) + "/"
		},
		Selectors: []SelectorSet{
			{
				Name: "l-card",
				Item: regexp.MustCompile(`(?is)<div[^>]+data-cy="l-card"[^>]*>.*?<a[^>]+href="(?P<url>[^"]+)"[^>]*>.*?<h6[^>]*>(?P<title>.*?)</h6>(?:.*?<p[^>]+data-testid="ad-price"[^>]*>(?P<price>.*?)</p>)?`),
			},
			{
				Name: "offer-anchor",
				Item: regexp.MustCompile(`(?is)<a[^>]+href="(?P<url>[^"]*/d/[^"]+\.html)"[^>]*>(?P<title>[^<]{6,160})</a>`),
			},
		},
		RequestsPerSecond: 0.5,
	}, opts...)
}

func olxSlug(kw string) string {
	return url.PathEscape(strings.Join(strings.Fields(strings.ToLower(kw)), "-"))
}
