package adapter

import (
	"net/url"
	"regexp"
)

// NewMercari scans the US site. The JP site is fully client-rendered and
// needs the headless path, which is not worth a dedicated adapter at
// mercari's yield.
func NewMercari(opts ...HTMLOption) *HTMLAdapter {
	return NewHTMLAdapter(Site{
		Platform: "mercari",
		Regions:  []string{"https://www.mercari.com"},
		SearchURL: func(base, kw string) string {
			return base + "/search/?keyword=" + url.QueryEscape(kw)
		},
		Selectors: []SelectorSet{
			{
				Name: "item-cell",
				Item: regexp.MustCompile(`(?is)<a[^>]+href="(?P<url>/us/item/[^"]+)"[^>]*aria-label="(?P<title>[^"]+)"[^>]*>(?:.*?<span[^>]+class="[^"]*price[^"]*"[^>]*>(?P<price>.*?)</span>)?`),
			},
			{
				Name: "item-anchor",
				Item: regexp.MustCompile(`(?is)<a[^>]+href="(?P<url>[^"]*/item/[^"]+)"[^>]*>(?P<title>[^<]{6,160})</a>`),
			},
		},
		RequestsPerSecond: 0.5,
	}, opts...)
}
