package adapter

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/headless"
)

var aliexpressSelectors = []SelectorSet{
	{
		Name: "search-card",
		Item: regexp.MustCompile(`(?is)<a[^>]+href="(?P<url>[^"]*(?:/item/|aliexpress\.[a-z.]+/item)[^"]+)"[^>]*>.*?<h3[^>]*>(?P<title>.*?)</h3>(?:.*?<div[^>]+class="[^"]*price[^"]*"[^>]*>(?P<price>.*?)</div>)?`),
	},
	{
		Name: "title-attr",
		Item: regexp.MustCompile(`(?is)<a[^>]+href="(?P<url>[^"]*/item/[^"]+)"[^>]+title="(?P<title>[^"]{6,200})"`),
	},
}

func aliexpressSearchURL(kw string) string {
	slug := strings.Join(strings.Fields(strings.ToLower(kw)), "-")
	return "https://www.aliexpress.com/w/wholesale-" + url.PathEscape(slug) + ".html"
}

// NewAliExpress prefers the headless path; the mobile site still serves
// server-rendered markup often enough that a plain HTTP fallback is worth
// keeping for driverless runs.
func NewAliExpress(browser headless.Browser, opts ...HTMLOption) *HeadlessAdapter {
	fallback := NewHTMLAdapter(Site{
		Platform: "aliexpress",
		Regions:  []string{"https://www.aliexpress.com"},
		SearchURL: func(base, kw string) string {
			return aliexpressSearchURL(kw)
		},
		Selectors:         aliexpressSelectors,
		RequestsPerSecond: 0.3,
	}, opts...)

	return NewHeadlessAdapter(HeadlessSite{
		Platform:     "aliexpress",
		SearchURL:    aliexpressSearchURL,
		WaitSelector: "#card-list",
		Selectors:    aliexpressSelectors,
	}, browser, fallback)
}
