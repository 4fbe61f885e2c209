package adapter

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

// SelectorSet is one extraction strategy for a marketplace result page.
// The item expression must define named groups `url` and `title`; `price`,
// `id`, `img`, and `loc` are optional. Sets are tried in order and the
// first one yielding at least one valid item wins; markets change their
// markup often enough that a single expression never survives long.
type SelectorSet struct {
	Name string
	Item *regexp.Regexp
}

// extractListings runs the selector sets against a result page and returns
// normalized listings. Items with short titles or relative-only URLs that
// cannot be resolved are dropped.
func extractListings(sets []SelectorSet, html, pageURL, platform, keyword string) []model.Listing {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	now := time.Now().UTC()

	for _, set := range sets {
		matches := set.Item.FindAllStringSubmatch(html, -1)
		if len(matches) == 0 {
			continue
		}
		names := set.Item.SubexpNames()

		var listings []model.Listing
		for _, m := range matches {
			fields := map[string]string{}
			for i, name := range names {
				if name != "" && i < len(m) {
					fields[name] = m[i]
				}
			}

			title := model.NormalizeTitle(decodeEntities(stripTags(fields["title"])))
			if len(title) < minTitleLen {
				continue
			}
			href := absolutize(base, decodeEntities(fields["url"]))
			if href == "" {
				continue
			}

			l := model.Listing{
				Platform:     platform,
				SearchTerm:   keyword,
				Title:        title,
				PriceText:    model.NormalizeTitle(decodeEntities(stripTags(fields["price"]))),
				URL:          href,
				NativeItemID: strings.TrimSpace(fields["id"]),
				Location:     model.NormalizeTitle(decodeEntities(stripTags(fields["loc"]))),
				ImageURL:     absolutize(base, decodeEntities(fields["img"])),
				ObservedAt:   now,
			}
			if err := l.Validate(); err != nil {
				continue
			}
			listings = append(listings, l)
		}
		if len(listings) > 0 {
			zap.L().Debug("extracted listings",
				zap.String("platform", platform),
				zap.String("selector", set.Name),
				zap.Int("count", len(listings)),
			)
			return listings
		}
	}
	return nil
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

func stripTags(s string) string {
	return tagRe.ReplaceAllString(s, " ")
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&#x27;", "'",
	"&nbsp;", " ",
)

func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// absolutize resolves href against the page URL. Already-absolute URLs pass
// through; unresolvable or empty hrefs yield "".
func absolutize(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
