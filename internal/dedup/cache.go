// Package dedup provides the process-local duplicate filter for scanned
// listings. It is an optimization layer only: the database unique constraint
// on listing_url remains the authoritative dedup boundary.
package dedup

import (
	"crypto/md5"
	"encoding/json"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

const (
	// HighWatermark is the URL-set size that triggers eviction.
	HighWatermark = 150_000
	// LowWatermark is the retained sample size after eviction.
	LowWatermark = 100_000
)

// Cache holds the seen-URL set and seen-title-hash set. Eviction is lossy by
// design; a false negative only costs one redundant insert attempt downstream.
type Cache struct {
	mu         sync.Mutex
	seenURLs   map[string]struct{}
	seenTitles map[[16]byte]struct{}
	high       int
	low        int
}

// New creates an empty cache with the default watermarks.
func New() *Cache {
	return NewWithWatermarks(HighWatermark, LowWatermark)
}

// NewWithWatermarks creates a cache with explicit eviction bounds.
func NewWithWatermarks(high, low int) *Cache {
	return &Cache{
		seenURLs:   make(map[string]struct{}),
		seenTitles: make(map[[16]byte]struct{}),
		high:       high,
		low:        low,
	}
}

// Observe reports whether the listing is novel and, as a side effect,
// records its normalized URL and title hash. A listing is a duplicate when
// either its URL or its title has been seen before.
func (c *Cache) Observe(l *model.Listing) bool {
	urlKey := NormalizeURL(l.URL)
	titleKey := TitleHash(l.Title)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, urlSeen := c.seenURLs[urlKey]
	_, titleSeen := c.seenTitles[titleKey]

	c.seenURLs[urlKey] = struct{}{}
	c.seenTitles[titleKey] = struct{}{}

	if len(c.seenURLs) > c.high {
		c.evictLocked()
	}

	return !urlSeen && !titleSeen
}

// Size returns the current URL-set cardinality.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seenURLs)
}

// evictLocked retains a random sample of low entries from the URL set and
// resets the title set, which regrows naturally.
func (c *Cache) evictLocked() {
	before := len(c.seenURLs)
	keep := make(map[string]struct{}, c.low)
	for u := range c.seenURLs {
		// Map iteration order is already randomized; thin to the target
		// ratio and stop once the sample is full.
		if len(keep) >= c.low {
			break
		}
		if rand.Float64() < float64(c.low)/float64(before) {
			keep[u] = struct{}{}
		}
	}
	c.seenURLs = keep
	c.seenTitles = make(map[[16]byte]struct{})

	zap.L().Info("dedup: evicted url cache",
		zap.Int("before", before),
		zap.Int("after", len(c.seenURLs)),
	)
}

// TitleHash returns the 16-byte hash of the NFKC-normalized, lowercased,
// whitespace-collapsed title.
func TitleHash(title string) [16]byte {
	t := norm.NFKC.String(title)
	t = strings.ToLower(strings.Join(strings.Fields(t), " "))
	return md5.Sum([]byte(t))
}

// snapshot is the on-disk shape of the cache.
type snapshot struct {
	URLs []string `json:"urls"`
}

// Save writes the URL set to disk. Title hashes are rebuilt organically and
// are not persisted.
func (c *Cache) Save(path string) error {
	c.mu.Lock()
	snap := snapshot{URLs: make([]string, 0, len(c.seenURLs))}
	for u := range c.seenURLs {
		snap.URLs = append(snap.URLs, u)
	}
	c.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "dedup: marshal snapshot")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "dedup: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "dedup: rename %s", path)
	}
	return nil
}

// Load merges a previous snapshot into the cache. Best-effort: a missing or
// corrupt snapshot is logged and ignored.
func (c *Cache) Load(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("dedup: snapshot read failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		zap.L().Warn("dedup: snapshot corrupt, ignoring", zap.String("path", path), zap.Error(err))
		return
	}

	c.mu.Lock()
	for _, u := range snap.URLs {
		c.seenURLs[u] = struct{}{}
	}
	loaded := len(c.seenURLs)
	c.mu.Unlock()

	zap.L().Info("dedup: snapshot loaded", zap.Int("urls", loaded))
}
