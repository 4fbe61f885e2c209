// Package ebay provides a client for the eBay Browse API using OAuth
// client-credentials application tokens.
package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Browse API operations used by the scanner.
type Client interface {
	// Search runs an item summary search for the query.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// SearchResponse is the parsed item_summary/search response.
type SearchResponse struct {
	Href          string        `json:"href"`
	Total         int           `json:"total"`
	ItemSummaries []ItemSummary `json:"itemSummaries"`
}

// ItemSummary is one Browse API search hit.
type ItemSummary struct {
	ItemID           string        `json:"itemId"`
	Title            string        `json:"title"`
	ShortDescription string        `json:"shortDescription"`
	Price            Amount        `json:"price"`
	ItemWebURL       string        `json:"itemWebUrl"`
	Image            Image         `json:"image"`
	ItemLocation     ItemLocation  `json:"itemLocation"`
	ItemCreationDate time.Time     `json:"itemCreationDate"`
	Seller           SellerSummary `json:"seller"`
}

// Amount is a Browse API money value.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Image is a Browse API image reference.
type Image struct {
	ImageURL string `json:"imageUrl"`
}

// ItemLocation is the coarse listing location.
type ItemLocation struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// SellerSummary identifies the listing seller.
type SellerSummary struct {
	Username           string `json:"username"`
	FeedbackPercentage string `json:"feedbackPercentage"`
}

// SearchOption configures a search request.
type SearchOption func(*searchOpts)

type searchOpts struct {
	limit       int
	listedAfter time.Time
}

// WithLimit caps the number of item summaries returned (API max 200).
func WithLimit(n int) SearchOption {
	return func(o *searchOpts) { o.limit = n }
}

// WithListedAfter restricts results to items created after t, used for
// historical backfill windows.
func WithListedAfter(t time.Time) SearchOption {
	return func(o *searchOpts) { o.listedAfter = t }
}

// Option configures the eBay client.
type Option func(*httpClient)

// WithBaseURL sets a custom Browse API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithAuthBaseURL sets a custom OAuth base URL (for testing).
func WithAuthBaseURL(u string) Option {
	return func(c *httpClient) { c.authBaseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithMarketplace sets the X-EBAY-C-MARKETPLACE-ID header value.
func WithMarketplace(id string) Option {
	return func(c *httpClient) { c.marketplace = id }
}

type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	authBaseURL  string
	marketplace  string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a Browse API client with client-credentials auth.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      "https://api.ebay.com",
		authBaseURL:  "https://api.ebay.com",
		marketplace:  "EBAY_US",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// token returns a cached application token, refreshing when it is within
// 60 seconds of expiry.
func (c *httpClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > 60*time.Second {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {"https://api.ebay.com/oauth/api_scope"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authBaseURL+"/identity/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "ebay: create token request")
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "ebay: token request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "ebay: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("ebay: token status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "ebay: unmarshal token response")
	}
	if tok.AccessToken == "" {
		return "", eris.New("ebay: empty access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "ebay: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("ebay: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	so := &searchOpts{limit: 50}
	for _, opt := range opts {
		opt(so)
	}

	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"q":     {query},
		"limit": {fmt.Sprintf("%d", so.limit)},
	}
	if !so.listedAfter.IsZero() {
		params.Set("filter", fmt.Sprintf("itemStartDate:[%s..]",
			so.listedAfter.UTC().Format("2006-01-02T15:04:05.000Z")))
	}

	reqURL := c.baseURL + "/buy/browse/v1/item_summary/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "ebay: create search request")
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", c.marketplace)

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "ebay: search request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("ebay: search status %d: %s", statusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "ebay: unmarshal search response")
	}
	return &result, nil
}
