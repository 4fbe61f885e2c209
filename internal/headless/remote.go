package headless

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Remote drives a browserless-compatible rendering service over HTTP. Each
// Render call presents a fresh randomized profile and injects the stealth
// script before navigation.
type Remote struct {
	endpoint string
	token    string
	client   *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// RemoteOption configures a Remote browser.
type RemoteOption func(*Remote)

// WithHTTPClient overrides the HTTP client used for render calls.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// WithToken sets the bearer token for the rendering service.
func WithToken(token string) RemoteOption {
	return func(r *Remote) { r.token = token }
}

// WithRandSource seeds profile randomization, used by tests for
// reproducibility.
func WithRandSource(src rand.Source) RemoteOption {
	return func(r *Remote) { r.rng = rand.New(src) }
}

// NewRemote creates a Remote browser. An empty endpoint yields ErrNoDriver
// so callers can degrade to HTTP-only scanning.
func NewRemote(endpoint string, opts ...RemoteOption) (*Remote, error) {
	if endpoint == "" {
		return nil, ErrNoDriver
	}
	r := &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 90 * time.Second},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Remote) Name() string { return "remote_browser" }

type renderPayload struct {
	URL          string `json:"url"`
	UserAgent    string `json:"userAgent"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Locale       string `json:"locale"`
	WaitMs       int    `json:"waitMs"`
	WaitSelector string `json:"waitSelector,omitempty"`
	InitScript   string `json:"initScript"`
}

type renderResponse struct {
	HTML     string `json:"html"`
	FinalURL string `json:"finalUrl"`
	Status   int    `json:"status"`
}

// Render navigates to the URL with a randomized profile, dwells, and
// returns the settled DOM. A detected bot challenge is an error; callers
// decide whether to retry on another platform region.
func (r *Remote) Render(ctx context.Context, req RenderRequest) (*Page, error) {
	r.mu.Lock()
	profile := NewProfile(r.rng)
	r.mu.Unlock()

	payload := renderPayload{
		URL:          req.URL,
		UserAgent:    profile.UserAgent,
		Width:        profile.ViewportWidth,
		Height:       profile.ViewportHeight,
		Locale:       profile.Locale,
		WaitMs:       int(profile.Dwell / time.Millisecond),
		WaitSelector: req.WaitSelector,
		InitScript:   stealthScript,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "headless: marshal render request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/content", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "headless: create render request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.token)
	}

	zap.L().Debug("headless: rendering",
		zap.String("url", req.URL),
		zap.String("profile", profile.String()),
	)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "headless: render call")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "headless: read render response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("headless: render service status %d", resp.StatusCode)
	}

	var rr renderResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		// Some services return raw HTML instead of a JSON envelope.
		rr = renderResponse{HTML: string(raw), FinalURL: req.URL, Status: http.StatusOK}
	}
	if rr.HTML == "" {
		return nil, eris.New("headless: empty render")
	}

	if sig, ok := DetectChallenge(rr.HTML, rr.FinalURL); ok {
		return nil, &ChallengeError{Signature: sig}
	}

	return &Page{HTML: rr.HTML, FinalURL: rr.FinalURL, Status: rr.Status}, nil
}
