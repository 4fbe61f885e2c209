package adapter

import (
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/resilience"
)

// Entry is one registered platform with its scheduling profile.
type Entry struct {
	Adapter Adapter

	// Weight drives the scheduler's weighted-random platform draw.
	Weight float64

	// Timeout is the hard per-scan budget before retries stretch it.
	Timeout time.Duration

	// Retry is the backoff profile for this platform.
	Retry resilience.RetryConfig
}

// Registry holds the registered platform adapters.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]Entry{}}
}

// Register adds or replaces a platform entry. Zero weight defaults to 1;
// zero timeout defaults to 60s.
func (r *Registry) Register(e Entry) error {
	if e.Adapter == nil {
		return eris.New("registry: nil adapter")
	}
	if e.Weight <= 0 {
		e.Weight = 1
	}
	if e.Timeout <= 0 {
		e.Timeout = 60 * time.Second
	}
	if e.Retry.MaxAttempts == 0 {
		e.Retry = resilience.DefaultRetryConfig()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Adapter.Name()] = e
	return nil
}

// Get returns the entry for a platform name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered platform names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns a snapshot of all entries keyed by platform name.
func (r *Registry) Entries() map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Entry, len(r.entries))
	for name, e := range r.entries {
		out[name] = e
	}
	return out
}

// Scheduling profile per platform. Weights favor the high-yield,
// low-friction platforms; timeouts follow observed p99 render times.
var defaultProfiles = map[string]struct {
	weight  float64
	timeout time.Duration
}{
	"avito":        {4, 90 * time.Second},
	"ebay":         {3, 50 * time.Second},
	"craigslist":   {3, 120 * time.Second},
	"olx":          {2, 80 * time.Second},
	"marktplaats":  {2, 100 * time.Second},
	"mercadolibre": {2, 150 * time.Second},
	"gumtree":      {2, 90 * time.Second},
	"mercari":      {2, 70 * time.Second},
	"aliexpress":   {1, 120 * time.Second},
	"taobao":       {1, 180 * time.Second},
	"facebook":     {1, 90 * time.Second},
}

// RegisterDefault registers an adapter under its default scheduling profile.
func (r *Registry) RegisterDefault(a Adapter) error {
	p, ok := defaultProfiles[a.Name()]
	if !ok {
		return r.Register(Entry{Adapter: a})
	}
	return r.Register(Entry{
		Adapter: a,
		Weight:  p.weight,
		Timeout: p.timeout,
		Retry:   resilience.DefaultRetryConfig(),
	})
}
