package adapter

import (
	"net/url"
	"regexp"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/headless"
)

// NewTaobao is headless-only: the search page is a JS shell behind the
// Aliyun slider and plain HTTP never yields items. Without a browser the
// adapter reports no-driver and the scheduler skips the cycle.
func NewTaobao(browser headless.Browser) *HeadlessAdapter {
	return NewHeadlessAdapter(HeadlessSite{
		Platform: "taobao",
		SearchURL: func(kw string) string {
			return "https://s.taobao.com/search?q=" + url.QueryEscape(kw)
		},
		WaitSelector: ".Card--doubleCardWrapper",
		Selectors: []SelectorSet{
			{
				Name: "double-card",
				Item: regexp.MustCompile(`(?is)<a[^>]+class="[^"]*Card--doubleCardWrapper[^"]*"[^>]+href="(?P<url>[^"]+)"[^>]*>.*?<div[^>]+class="[^"]*Title--title[^"]*"[^>]*>(?P<title>.*?)</div>(?:.*?<div[^>]+class="[^"]*Price--priceInt[^"]*"[^>]*>(?P<price>.*?)</div>)?`),
			},
			{
				Name: "item-anchor",
				Item: regexp.MustCompile(`(?is)<a[^>]+href="(?P<url>[^"]*item\.taobao\.com[^"]+)"[^>]+title="(?P<title>[^"]{6,200})"`),
			},
		},
	}, browser, nil)
}
