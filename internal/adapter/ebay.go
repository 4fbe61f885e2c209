package adapter

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/resilience"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/pkg/ebay"
)

// EbayAdapter scans through the Browse API. The only adapter with a real
// API behind it, so it carries the shortest timeout and a high weight.
type EbayAdapter struct {
	client ebay.Client

	// perTermLimit caps item summaries requested per keyword.
	perTermLimit int

	// listedAfter, when set, narrows queries to a backfill window.
	listedAfter time.Time
}

// EbayOption configures the adapter.
type EbayOption func(*EbayAdapter)

// WithPerTermLimit caps results per keyword (default 50).
func WithPerTermLimit(n int) EbayOption {
	return func(a *EbayAdapter) { a.perTermLimit = n }
}

// WithListedAfter enables historical backfill: only items created after t.
func WithListedAfter(t time.Time) EbayOption {
	return func(a *EbayAdapter) { a.listedAfter = t }
}

// NewEbay wraps a Browse API client as an Adapter.
func NewEbay(client ebay.Client, opts ...EbayOption) *EbayAdapter {
	a := &EbayAdapter{client: client, perTermLimit: 50}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *EbayAdapter) Name() string { return "ebay" }

// Scan queries the Browse API for each keyword and normalizes the item
// summaries. API-level auth failures are permanent for the cycle.
func (a *EbayAdapter) Scan(ctx context.Context, keywords []string, attempt int) ([]model.Listing, error) {
	var all []model.Listing
	var lastErr error

	for _, kw := range keywords {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}

		searchOpts := []ebay.SearchOption{ebay.WithLimit(a.perTermLimit)}
		if !a.listedAfter.IsZero() {
			searchOpts = append(searchOpts, ebay.WithListedAfter(a.listedAfter))
		}

		resp, err := a.client.Search(ctx, kw, searchOpts...)
		if err != nil {
			lastErr = classifyEbayError(err)
			if resilience.IsPermanent(lastErr) {
				return all, lastErr
			}
			continue
		}

		now := time.Now().UTC()
		for _, item := range resp.ItemSummaries {
			l := model.Listing{
				Platform:     "ebay",
				SearchTerm:   kw,
				Title:        model.NormalizeTitle(item.Title),
				Description:  item.ShortDescription,
				PriceText:    formatAmount(item.Price),
				URL:          item.ItemWebURL,
				NativeItemID: item.ItemID,
				Location:     formatLocation(item.ItemLocation),
				ImageURL:     item.Image.ImageURL,
				ObservedAt:   now,
			}
			if len(l.Title) < minTitleLen {
				continue
			}
			if err := l.Validate(); err != nil {
				zap.L().Debug("dropping invalid ebay item",
					zap.String("item_id", item.ItemID), zap.Error(err))
				continue
			}
			all = append(all, l)
		}
	}

	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}

func classifyEbayError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status 429"):
		return resilience.NewScanError(resilience.KindRateLimited, "ebay", err)
	case strings.Contains(msg, "status 401"), strings.Contains(msg, "status 403"),
		strings.Contains(msg, "token status"), strings.Contains(msg, "empty access token"):
		return resilience.NewScanError(resilience.KindPermanentBlock, "ebay", err)
	case strings.Contains(msg, "status 5"):
		return resilience.NewScanError(resilience.KindServer, "ebay", err)
	default:
		return resilience.NewScanError(resilience.KindTransport, "ebay", err)
	}
}

func formatAmount(a ebay.Amount) string {
	if a.Value == "" {
		return ""
	}
	if a.Currency == "" {
		return a.Value
	}
	return a.Currency + " " + a.Value
}

func formatLocation(loc ebay.ItemLocation) string {
	switch {
	case loc.City != "" && loc.Country != "":
		return loc.City + ", " + loc.Country
	case loc.City != "":
		return loc.City
	default:
		return loc.Country
	}
}
