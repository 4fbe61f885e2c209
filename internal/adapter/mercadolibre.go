package adapter

import (
	"net/url"
	"regexp"
	"strings"
)

// NewMercadoLibre scans the Latin American mirrors. Two country sites per
// attempt.
func NewMercadoLibre(opts ...HTMLOption) *HTMLAdapter {
	return NewHTMLAdapter(Site{
		Platform: "mercadolibre",
		Regions: []string{
			"https://listado.mercadolibre.com.mx",
			"https://listado.mercadolibre.com.ar",
			"https://listado.mercadolibre.cl",
			"https://listado.mercadolibre.com.co",
			"https://lista.mercadolivre.com.br",
		},
		RegionsPerCall: 2,
		SearchURL: func(base, kw string) string {
			slug := strings.Join(strings.Fields(strings.ToLower(kw)), "-")
			return base + "/" + url.PathEscape(slug)
		},
		Selectors: []SelectorSet{
			{
				Name: "ui-search",
				Item: regexp.MustCompile(`(?is)<a[^>]+class="[^"]*ui-search-link[^"]*"[^>]+href="(?P<url>[^"]+)"[^>]*>.*?<h2[^>]+class="[^"]*ui-search-item__title[^"]*"[^>]*>(?P<title>.*?)</h2>(?:.*?<span[^>]+class="[^"]*andes-money-amount__fraction[^"]*"[^>]*>(?P<price>.*?)</span>)?`),
			},
			{
				Name: "poly-card",
				Item: regexp.MustCompile(`(?is)<h3[^>]+class="[^"]*poly-component__title[^"]*"[^>]*>\s*<a[^>]+href="(?P<url>[^"]+)"[^>]*>(?P<title>.*?)</a>`),
			},
		},
		Headers:           map[string]string{"Accept-Language": "es-MX,es;q=0.9,pt;q=0.6"},
		RequestsPerSecond: 0.5,
	}, opts...)
}
