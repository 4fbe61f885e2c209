package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/store"
)

// MetricsSnapshot holds a point-in-time view of detection activity.
type MetricsSnapshot struct {
	// Detection counts within the lookback window.
	Total      int            `json:"total"`
	ByPlatform map[string]int `json:"by_platform"`
	ByLevel    map[string]int `json:"by_level"`
	Critical   int            `json:"critical"`

	// ReviewQueueDepth counts detections awaiting a human decision,
	// regardless of window.
	ReviewQueueDepth int `json:"review_queue_depth"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers detection metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector over the detection store.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}
	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)

	byPlatform, err := c.store.CountByPlatform(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count by platform")
	}
	snap.ByPlatform = byPlatform
	for _, n := range byPlatform {
		snap.Total += n
	}

	byLevel, err := c.store.CountByLevel(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count by level")
	}
	snap.ByLevel = byLevel
	snap.Critical = byLevel["CRITICAL"]

	depth, err := c.store.ReviewQueueDepth(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: review queue depth")
	}
	snap.ReviewQueueDepth = depth

	return snap, nil
}
