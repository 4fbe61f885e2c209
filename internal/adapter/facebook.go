package adapter

import (
	"net/url"
	"regexp"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/headless"
)

// NewFacebook scans Marketplace search. Headless-only: anonymous HTTP hits
// the login wall. Yield is low and rate limiting aggressive, so the
// scheduler runs it at minimum weight with a long inter-cycle delay.
func NewFacebook(browser headless.Browser) *HeadlessAdapter {
	return NewHeadlessAdapter(HeadlessSite{
		Platform: "facebook",
		SearchURL: func(kw string) string {
			return "https://www.facebook.com/marketplace/search/?query=" + url.QueryEscape(kw)
		},
		WaitSelector: `a[href*="/marketplace/item/"]`,
		Selectors: []SelectorSet{
			{
				Name: "marketplace-item",
				Item: regexp.MustCompile(`(?is)<a[^>]+href="(?P<url>[^"]*/marketplace/item/[^"]+)"[^>]*>.*?<span[^>]*>(?P<title>[^<]{6,200})</span>`),
			},
		},
	}, browser, nil)
}
