package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/resilience"
)

func testSite(base string) Site {
	return Site{
		Platform: "testmarket",
		Regions:  []string{base},
		SearchURL: func(b, kw string) string {
			return b + "/search?q=" + kw
		},
		Selectors:         testSelectors,
		RequestsPerSecond: 100,
		Burst:             10,
	}
}

func TestHTMLAdapter_ScanExtracts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`<div class="card"><a href="/item/1">Carved ivory figure</a><span class="price">$450</span></div>`))
	}))
	defer srv.Close()

	a := NewHTMLAdapter(testSite(srv.URL))
	got, err := a.Scan(context.Background(), []string{"ivory"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Carved ivory figure", got[0].Title)
	assert.Equal(t, srv.URL+"/item/1", got[0].URL)
}

func TestHTMLAdapter_RateLimitSurfaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewHTMLAdapter(testSite(srv.URL))
	_, err := a.Scan(context.Background(), []string{"ivory"}, 0)
	require.Error(t, err)
	assert.Equal(t, resilience.KindRateLimited, resilience.KindOf(err))
}

func TestHTMLAdapter_PermanentBlockAborts(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := NewHTMLAdapter(testSite(srv.URL))
	_, err := a.Scan(context.Background(), []string{"ivory", "rhino horn"}, 0)
	require.Error(t, err)
	assert.Equal(t, resilience.KindPermanentBlock, resilience.KindOf(err))
	assert.Equal(t, 1, calls)
}

func TestHTMLAdapter_ChallengeAbandonsTerm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "ivory" {
			_, _ = w.Write([]byte(`<html>please solve this captcha to continue</html>`))
			return
		}
		_, _ = w.Write([]byte(`<div class="card"><a href="/item/2">Tortoise shell comb</a></div>`))
	}))
	defer srv.Close()

	a := NewHTMLAdapter(testSite(srv.URL))
	got, err := a.Scan(context.Background(), []string{"ivory", "tortoise"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Tortoise shell comb", got[0].Title)
}

func TestHTMLAdapter_AllTermsFailReturnsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewHTMLAdapter(testSite(srv.URL))
	_, err := a.Scan(context.Background(), []string{"ivory"}, 0)
	require.Error(t, err)
	assert.Equal(t, resilience.KindServer, resilience.KindOf(err))
}

func TestClassifyResponse(t *testing.T) {
	t.Parallel()

	resp := func(status int, headers map[string]string) *http.Response {
		h := http.Header{}
		for k, v := range headers {
			h.Set(k, v)
		}
		return &http.Response{StatusCode: status, Header: h}
	}

	assert.Equal(t, resilience.KindRateLimited, classifyResponse(resp(429, nil), nil))
	assert.Equal(t, resilience.KindPermanentBlock, classifyResponse(resp(403, nil), nil))
	assert.Equal(t, resilience.KindBotChallenge,
		classifyResponse(resp(403, map[string]string{"cf-ray": "abc"}), nil))
	assert.Equal(t, resilience.KindServer, classifyResponse(resp(503, nil), nil))
	assert.Equal(t, resilience.KindBotChallenge,
		classifyResponse(resp(200, nil), []byte("<html>g-recaptcha</html>")))
	assert.Equal(t, resilience.Kind(""),
		classifyResponse(resp(200, nil), []byte("<html>results</html>")))
}

func TestPlatformConstructors(t *testing.T) {
	t.Parallel()

	adapters := []Adapter{
		NewCraigslist(),
		NewOLX(),
		NewMarktplaats(),
		NewMercadoLibre(),
		NewGumtree(),
		NewAvito(),
		NewMercari(),
	}
	names := map[string]bool{}
	for _, a := range adapters {
		names[a.Name()] = true
	}
	assert.Len(t, names, len(adapters))

	// Search URL builders must produce absolute URLs.
	for _, a := range adapters {
		ha, ok := a.(*HTMLAdapter)
		require.True(t, ok)
		u := ha.site.SearchURL(ha.site.Regions[0], "rhino horn")
		assert.Regexp(t, regexp.MustCompile(`^https://`), u, a.Name())
	}
}
