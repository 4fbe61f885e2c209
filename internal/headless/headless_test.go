package headless

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRemote_NoEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewRemote("")
	require.ErrorIs(t, err, ErrNoDriver)
}

func TestRemote_RenderSuccess(t *testing.T) {
	t.Parallel()

	var got renderPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(renderResponse{
			HTML:     "<html><body><div class=item>listing</div></body></html>",
			FinalURL: got.URL,
			Status:   200,
		})
	}))
	defer srv.Close()

	b, err := NewRemote(srv.URL, WithToken("tok"), WithRandSource(rand.NewSource(1)))
	require.NoError(t, err)

	page, err := b.Render(context.Background(), RenderRequest{URL: "https://www.taobao.com/search?q=x"})
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "listing")

	// Profile randomization must produce plausible values.
	assert.NotEmpty(t, got.UserAgent)
	assert.Greater(t, got.Width, 1000)
	assert.GreaterOrEqual(t, got.WaitMs, 3000)
	assert.Less(t, got.WaitMs, 8000)
	assert.Contains(t, got.InitScript, "webdriver")
}

func TestRemote_RenderChallengeIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(renderResponse{
			HTML:     `<div id="baxia-dialog">slide to verify</div>`,
			FinalURL: "https://s.taobao.com/search",
			Status:   200,
		})
	}))
	defer srv.Close()

	b, err := NewRemote(srv.URL)
	require.NoError(t, err)

	_, err = b.Render(context.Background(), RenderRequest{URL: "https://s.taobao.com/search?q=x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aliyun_slider")
}

func TestRemote_RawHTMLResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>plain</body></html>"))
	}))
	defer srv.Close()

	b, err := NewRemote(srv.URL)
	require.NoError(t, err)

	page, err := b.Render(context.Background(), RenderRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "plain")
	assert.Equal(t, "https://example.com", page.FinalURL)
}

func TestDetectChallenge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		html    string
		url     string
		blocked bool
	}{
		{"clean", "<div class=results>items</div>", "https://x.com/s", false},
		{"recaptcha", `<div class="g-recaptcha"></div>`, "https://x.com/s", true},
		{"login redirect", "<html></html>", "https://www.facebook.com/login?next=x", true},
		{"punish redirect", "<html></html>", "https://s.taobao.com/punish", true},
		{"geetest", `<div class="geetest_radar_tip"></div>`, "https://avito.ru/s", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := DetectChallenge(tt.html, tt.url)
			assert.Equal(t, tt.blocked, ok)
		})
	}
}

func TestNewProfile_Bounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		p := NewProfile(rng)
		assert.NotEmpty(t, p.UserAgent)
		assert.GreaterOrEqual(t, p.Dwell, dwellMin)
		assert.Less(t, p.Dwell, dwellMax)
		assert.GreaterOrEqual(t, p.ViewportWidth, 1350)
		assert.GreaterOrEqual(t, p.ViewportHeight, 750)
	}
}
