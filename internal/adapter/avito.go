package adapter

import (
	"net/url"
	"regexp"
)

// NewAvito scans avito.ru. The Russian corpus tiers carry most of the
// wildlife signal here, so the platform gets the highest scheduler weight.
func NewAvito(opts ...HTMLOption) *HTMLAdapter {
	return NewHTMLAdapter(Site{
		Platform: "avito",
		Regions:  []string{"https://www.avito.ru"},
		SearchURL: func(base, kw string) string {
			return base + "/all?q=" + url.QueryEscape(kw)
		},
		Selectors: []SelectorSet{
			{
				Name: "item-marker",
				Item: regexp.MustCompile(`(?is)<a[^>]+data-marker="item-title"[^>]+href="(?P<url>[^"]+)"[^>]*>(?:\s*<h3[^>]*>)?(?P<title>.*?)</(?:h3|a)>(?:.*?<span[^>]+data-marker="item-price"[^>]*>(?P<price>.*?)</span>)?`),
			},
			{
				Name: "iva-item",
				Item: regexp.MustCompile(`(?is)<div[^>]+class="[^"]*iva-item-title[^"]*"[^>]*>\s*<a[^>]+href="(?P<url>[^"]+)"[^>]*[^>]*>(?P<title>.*?)</a>`),
			},
		},
		Headers:           map[string]string{"Accept-Language": "ru-RU,ru;q=0.9,en;q=0.4"},
		RequestsPerSecond: 0.3,
	}, opts...)
}
