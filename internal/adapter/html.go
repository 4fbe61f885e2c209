package adapter

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/resilience"
)

// Site describes one HTTP-scannable marketplace.
type Site struct {
	Platform string

	// Regions are ordered base URLs (locale mirrors, city subdomains).
	// RegionsPerCall of them are scanned per attempt, window rotated by the
	// attempt number.
	Regions        []string
	RegionsPerCall int

	// SearchURL builds the result-page URL for a keyword on a region base.
	SearchURL func(base, keyword string) string

	Selectors []SelectorSet
	Headers   map[string]string

	// RequestsPerSecond throttles the whole adapter across regions.
	RequestsPerSecond float64
	Burst             int
}

// HTMLAdapter is the shared plain-HTTP scan core. Platform constructors
// supply the Site; everything else (throttling, block classification,
// extraction, keyword loop) is common.
type HTMLAdapter struct {
	site    Site
	client  *http.Client
	limiter *rate.Limiter
	rng     *rand.Rand
	mu      sync.Mutex
}

// HTMLOption configures an HTMLAdapter.
type HTMLOption func(*HTMLAdapter)

// WithClient overrides the HTTP client, used by tests.
func WithClient(c *http.Client) HTMLOption {
	return func(a *HTMLAdapter) { a.client = c }
}

// NewHTMLAdapter builds the shared scan core for a site.
func NewHTMLAdapter(site Site, opts ...HTMLOption) *HTMLAdapter {
	rps := site.RequestsPerSecond
	if rps <= 0 {
		rps = 0.5
	}
	burst := site.Burst
	if burst <= 0 {
		burst = 1
	}
	a := &HTMLAdapter{
		site: site,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *HTMLAdapter) Name() string { return a.site.Platform }

// Scan fetches result pages for each keyword across the attempt's region
// subset. A bot challenge abandons the current keyword; a permanent block
// aborts the whole call; rate limiting surfaces as KindRateLimited so the
// scheduler can back off and demote.
func (a *HTMLAdapter) Scan(ctx context.Context, keywords []string, attempt int) ([]model.Listing, error) {
	bases := regionsFor(a.site.Regions, a.site.RegionsPerCall, attempt)
	if len(bases) == 0 {
		return nil, eris.Errorf("%s: no regions configured", a.site.Platform)
	}

	var all []model.Listing
	var lastErr error

	for _, kw := range keywords {
		listings, err := a.scanKeyword(ctx, kw, bases)
		if err != nil {
			switch resilience.KindOf(err) {
			case resilience.KindBotChallenge:
				zap.L().Warn("bot challenge, abandoning term",
					zap.String("platform", a.site.Platform),
					zap.String("keyword", kw),
				)
				lastErr = err
				continue
			case resilience.KindPermanentBlock:
				return all, err
			default:
				if ctx.Err() != nil {
					return all, err
				}
				lastErr = err
				continue
			}
		}
		all = append(all, listings...)
	}

	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}

// scanKeyword fetches one keyword across the region subset in parallel.
func (a *HTMLAdapter) scanKeyword(ctx context.Context, keyword string, bases []string) ([]model.Listing, error) {
	var (
		mu       sync.Mutex
		listings []model.Listing
		scanErr  error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	for _, base := range bases {
		pageURL := a.site.SearchURL(base, keyword)
		g.Go(func() error {
			body, err := a.fetch(gCtx, pageURL)
			if err != nil {
				mu.Lock()
				scanErr = err
				mu.Unlock()
				// Challenges and blocks stop the remaining regions for
				// this keyword.
				if resilience.KindOf(err) == resilience.KindBotChallenge ||
					resilience.IsPermanent(err) {
					return err
				}
				return nil
			}
			found := extractListings(a.site.Selectors, string(body), pageURL, a.site.Platform, keyword)
			mu.Lock()
			listings = append(listings, found...)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	if len(listings) > 0 {
		return listings, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, scanErr
}

func (a *HTMLAdapter) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrapf(err, "%s: rate wait", a.site.Platform)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: create request", a.site.Platform)
	}
	req.Header.Set("User-Agent", a.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	for k, v := range a.site.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		kind := resilience.KindTransport
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = resilience.KindTimeout
		}
		return nil, resilience.NewScanError(kind, a.site.Platform,
			eris.Wrapf(err, "%s: fetch %s", a.site.Platform, pageURL))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, resilience.NewScanError(resilience.KindTransport, a.site.Platform,
			eris.Wrapf(err, "%s: read body", a.site.Platform))
	}

	if kind := classifyResponse(resp, body); kind != "" {
		return nil, resilience.NewScanError(kind, a.site.Platform,
			eris.Errorf("%s: %s (status %d)", a.site.Platform, kind, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, resilience.NewScanError(resilience.KindTransport, a.site.Platform,
			eris.Errorf("%s: status %d", a.site.Platform, resp.StatusCode))
	}
	return body, nil
}

var desktopUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

func (a *HTMLAdapter) userAgent() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return desktopUserAgents[a.rng.Intn(len(desktopUserAgents))]
}
