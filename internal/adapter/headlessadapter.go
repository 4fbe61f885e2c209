package adapter

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/headless"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/resilience"
)

// HeadlessSite describes a marketplace that only yields content to a real
// browser profile.
type HeadlessSite struct {
	Platform     string
	SearchURL    func(keyword string) string
	WaitSelector string
	Selectors    []SelectorSet
}

// HeadlessAdapter scans through a rendering browser. Without an attached
// browser the adapter degrades: to its HTTP fallback when one exists, or to
// a no-driver skip.
type HeadlessAdapter struct {
	site     HeadlessSite
	browser  headless.Browser
	fallback Adapter
}

// NewHeadlessAdapter wires a headless site to a browser. browser may be nil;
// fallback may be nil.
func NewHeadlessAdapter(site HeadlessSite, browser headless.Browser, fallback Adapter) *HeadlessAdapter {
	return &HeadlessAdapter{site: site, browser: browser, fallback: fallback}
}

func (a *HeadlessAdapter) Name() string { return a.site.Platform }

// Scan renders the result page for each keyword. A detected challenge
// abandons the current term and moves on; rendering failures for every term
// surface the last error.
func (a *HeadlessAdapter) Scan(ctx context.Context, keywords []string, attempt int) ([]model.Listing, error) {
	if a.browser == nil {
		if a.fallback != nil {
			zap.L().Debug("no browser attached, using http fallback",
				zap.String("platform", a.site.Platform))
			return a.fallback.Scan(ctx, keywords, attempt)
		}
		return nil, resilience.NewScanError(resilience.KindNoDriver, a.site.Platform, headless.ErrNoDriver)
	}

	var all []model.Listing
	var lastErr error

	for _, kw := range keywords {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}
		pageURL := a.site.SearchURL(kw)
		page, err := a.browser.Render(ctx, headless.RenderRequest{
			URL:          pageURL,
			WaitSelector: a.site.WaitSelector,
		})
		if err != nil {
			var ch *headless.ChallengeError
			if errors.As(err, &ch) {
				zap.L().Warn("bot challenge, abandoning term",
					zap.String("platform", a.site.Platform),
					zap.String("keyword", kw),
					zap.String("signature", ch.Signature),
				)
				lastErr = resilience.NewScanError(resilience.KindBotChallenge, a.site.Platform, err)
				continue
			}
			lastErr = err
			continue
		}

		base := page.FinalURL
		if base == "" {
			base = pageURL
		}
		all = append(all, extractListings(a.site.Selectors, page.HTML, base, a.site.Platform, kw)...)
	}

	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}
