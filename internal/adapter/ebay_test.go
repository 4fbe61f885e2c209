package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/resilience"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/pkg/ebay"
)

type fakeEbayClient struct {
	responses map[string]*ebay.SearchResponse
	err       error
	lastOpts  []ebay.SearchOption
}

func (f *fakeEbayClient) Search(_ context.Context, query string, opts ...ebay.SearchOption) (*ebay.SearchResponse, error) {
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[query]; ok {
		return resp, nil
	}
	return &ebay.SearchResponse{}, nil
}

func TestEbayAdapter_NormalizesItems(t *testing.T) {
	t.Parallel()

	client := &fakeEbayClient{responses: map[string]*ebay.SearchResponse{
		"ivory": {
			Total: 2,
			ItemSummaries: []ebay.ItemSummary{
				{
					ItemID:     "v1|123|0",
					Title:      "  Antique   ivory carving  ",
					Price:      ebay.Amount{Value: "450.00", Currency: "USD"},
					ItemWebURL: "https://www.ebay.com/itm/123",
					ItemLocation: ebay.ItemLocation{
						City: "Portland", Country: "US",
					},
				},
				{
					ItemID:     "v1|124|0",
					Title:      "abc",
					ItemWebURL: "https://www.ebay.com/itm/124",
				},
			},
		},
	}}

	a := NewEbay(client)
	got, err := a.Scan(context.Background(), []string{"ivory"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	l := got[0]
	assert.Equal(t, "ebay", l.Platform)
	assert.Equal(t, "Antique ivory carving", l.Title)
	assert.Equal(t, "USD 450.00", l.PriceText)
	assert.Equal(t, "v1|123|0", l.NativeItemID)
	assert.Equal(t, "Portland, US", l.Location)
}

func TestEbayAdapter_BackfillWindowPassed(t *testing.T) {
	t.Parallel()

	client := &fakeEbayClient{responses: map[string]*ebay.SearchResponse{}}
	since := time.Now().AddDate(0, 0, -30)
	a := NewEbay(client, WithListedAfter(since), WithPerTermLimit(25))

	_, err := a.Scan(context.Background(), []string{"pangolin"}, 0)
	require.NoError(t, err)
	assert.Len(t, client.lastOpts, 2)
}

func TestEbayAdapter_AuthFailureIsPermanent(t *testing.T) {
	t.Parallel()

	client := &fakeEbayClient{err: eris.New("ebay: token status 401: invalid_client")}
	a := NewEbay(client)

	_, err := a.Scan(context.Background(), []string{"ivory", "rhino"}, 0)
	require.Error(t, err)
	assert.Equal(t, resilience.KindPermanentBlock, resilience.KindOf(err))
}

func TestEbayAdapter_RateLimitTagged(t *testing.T) {
	t.Parallel()

	client := &fakeEbayClient{err: eris.New("ebay: search status 429: quota exceeded")}
	a := NewEbay(client)

	_, err := a.Scan(context.Background(), []string{"ivory"}, 0)
	require.Error(t, err)
	assert.Equal(t, resilience.KindRateLimited, resilience.KindOf(err))
}

func TestRegistry_DefaultsAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.RegisterDefault(NewAvito()))
	require.NoError(t, r.RegisterDefault(NewCraigslist()))
	require.NoError(t, r.RegisterDefault(NewEbay(&fakeEbayClient{})))

	avito, ok := r.Get("avito")
	require.True(t, ok)
	assert.Equal(t, 4.0, avito.Weight)
	assert.Equal(t, 90*time.Second, avito.Timeout)

	eb, ok := r.Get("ebay")
	require.True(t, ok)
	assert.Equal(t, 50*time.Second, eb.Timeout)
	assert.Equal(t, 4, eb.Retry.MaxAttempts)

	assert.Equal(t, []string{"avito", "craigslist", "ebay"}, r.Names())
	_, ok = r.Get("bonanza")
	assert.False(t, ok)
}

func TestRegistry_RejectsNilAdapter(t *testing.T) {
	t.Parallel()
	assert.Error(t, NewRegistry().Register(Entry{}))
}
