package adapter

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSelectors = []SelectorSet{
	{
		Name: "primary",
		Item: regexp.MustCompile(`(?is)<div class="card">\s*<a href="(?P<url>[^"]+)">(?P<title>.*?)</a>(?:\s*<span class="price">(?P<price>.*?)</span>)?`),
	},
	{
		Name: "fallback",
		Item: regexp.MustCompile(`(?is)<a href="(?P<url>/item/[^"]+)">(?P<title>[^<]{6,120})</a>`),
	},
}

func TestExtractListings_PrimarySelector(t *testing.T) {
	t.Parallel()

	html := `
<div class="card"><a href="/item/1">Carved ivory figure</a><span class="price">$450</span></div>
<div class="card"><a href="https://other.example.com/item/2">Antique &amp; rare bone set</a></div>
<div class="card"><a href="/item/3">abc</a></div>`

	got := extractListings(testSelectors, html, "https://market.example.com/search?q=ivory", "testmarket", "ivory")
	require.Len(t, got, 2)

	assert.Equal(t, "https://market.example.com/item/1", got[0].URL)
	assert.Equal(t, "Carved ivory figure", got[0].Title)
	assert.Equal(t, "$450", got[0].PriceText)
	assert.Equal(t, "testmarket", got[0].Platform)
	assert.Equal(t, "ivory", got[0].SearchTerm)

	// Entity decode and absolute pass-through.
	assert.Equal(t, "https://other.example.com/item/2", got[1].URL)
	assert.Equal(t, "Antique & rare bone set", got[1].Title)
}

func TestExtractListings_FallbackWhenPrimaryMisses(t *testing.T) {
	t.Parallel()

	html := `<ul><li><a href="/item/77">Vintage tortoise comb</a></li></ul>`

	got := extractListings(testSelectors, html, "https://market.example.com/s", "testmarket", "tortoise")
	require.Len(t, got, 1)
	assert.Equal(t, "Vintage tortoise comb", got[0].Title)
}

func TestExtractListings_ShortTitlesFiltered(t *testing.T) {
	t.Parallel()

	html := `<div class="card"><a href="/item/9">ab c</a></div>`
	got := extractListings(testSelectors, html, "https://m.example.com/s", "testmarket", "x")
	assert.Empty(t, got)
}

func TestExtractListings_NoMatch(t *testing.T) {
	t.Parallel()
	assert.Empty(t, extractListings(testSelectors, "<html></html>", "https://m.example.com", "p", "k"))
}

func TestAbsolutize(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://www.olx.pl/d/oferty/q-kosc/")
	require.NoError(t, err)

	assert.Equal(t, "https://www.olx.pl/d/oferta/x.html", absolutize(base, "/d/oferta/x.html"))
	assert.Equal(t, "https://cdn.olx.pl/img/1.jpg", absolutize(base, "https://cdn.olx.pl/img/1.jpg"))
	assert.Equal(t, "", absolutize(base, ""))
	assert.Equal(t, "", absolutize(nil, "/relative"))
}

func TestRegionsFor(t *testing.T) {
	t.Parallel()

	regions := []string{"a", "b", "c", "d", "e"}

	assert.Equal(t, []string{"a", "b"}, regionsFor(regions, 2, 0))
	assert.Equal(t, []string{"c", "d"}, regionsFor(regions, 2, 1))
	assert.Equal(t, []string{"e", "a"}, regionsFor(regions, 2, 2))
	assert.Equal(t, regions, regionsFor(regions, 0, 0))
	assert.Equal(t, regions, regionsFor(regions, 9, 3))
	assert.Nil(t, regionsFor(nil, 2, 0))
}
