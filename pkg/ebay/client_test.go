package ebay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func newTestServer(t *testing.T, tokenCalls *int, searchHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		*tokenCalls++
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.FormValue("grant_type"))
		_ = json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "tok-abc",
			ExpiresIn:   7200,
			TokenType:   "Application Access Token",
		})
	})
	mux.HandleFunc("/buy/browse/v1/item_summary/search", searchHandler)
	return httptest.NewServer(mux)
}

func TestSearch_TokenCachedAcrossCalls(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	srv := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		require.Equal(t, "EBAY_US", r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Total: 1,
			ItemSummaries: []ItemSummary{
				{ItemID: "v1|1|0", Title: "Carved ivory netsuke", ItemWebURL: "https://www.ebay.com/itm/1"},
			},
		})
	})
	defer srv.Close()

	c := NewClient("id", "secret", WithBaseURL(srv.URL), WithAuthBaseURL(srv.URL))

	for i := 0; i < 3; i++ {
		resp, err := c.Search(context.Background(), "ivory")
		require.NoError(t, err)
		require.Len(t, resp.ItemSummaries, 1)
		assert.Equal(t, "Carved ivory netsuke", resp.ItemSummaries[0].Title)
	}
	assert.Equal(t, 1, tokenCalls)
}

func TestSearch_QueryParams(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	var gotQuery, gotLimit, gotFilter string
	srv := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		gotFilter = r.URL.Query().Get("filter")
		_ = json.NewEncoder(w).Encode(SearchResponse{})
	})
	defer srv.Close()

	c := NewClient("id", "secret", WithBaseURL(srv.URL), WithAuthBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "rhino horn", WithLimit(25))
	require.NoError(t, err)
	assert.Equal(t, "rhino horn", gotQuery)
	assert.Equal(t, "25", gotLimit)
	assert.Empty(t, gotFilter)
}

func TestSearch_BackfillFilter(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	var gotFilter string
	srv := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		_ = json.NewEncoder(w).Encode(SearchResponse{})
	})
	defer srv.Close()

	c := NewClient("id", "secret", WithBaseURL(srv.URL), WithAuthBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "pangolin",
		WithListedAfter(mustParseTime(t, "2026-07-01T00:00:00Z")))
	require.NoError(t, err)
	assert.Equal(t, "itemStartDate:[2026-07-01T00:00:00.000Z..]", gotFilter)
}

func TestSearch_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	searchCalls := 0
	srv := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		searchCalls++
		if searchCalls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(SearchResponse{Total: 0})
	})
	defer srv.Close()

	c := NewClient("id", "secret", WithBaseURL(srv.URL), WithAuthBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "ivory")
	require.NoError(t, err)
	assert.Equal(t, 2, searchCalls)
}

func TestSearch_TokenFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	c := NewClient("id", "bad", WithBaseURL(srv.URL), WithAuthBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "ivory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token status 401")
}
