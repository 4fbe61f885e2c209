package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/corpus"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/cursor"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/dedup"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/scheduler"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/sink"
)

// fakeCycler replays a fixed sequence of cycle results, repeating the last
// one forever.
type fakeCycler struct {
	results []scheduler.CycleResult
	calls   int
}

func (f *fakeCycler) RunCycle(ctx context.Context) scheduler.CycleResult {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	res := f.results[i]
	res.Cycle = f.calls
	return res
}

func goodCycle(platform string, stored int) scheduler.CycleResult {
	return scheduler.CycleResult{
		Platform:   platform,
		Raw:        stored + 2,
		Novel:      stored + 1,
		Stats:      sink.Stats{Stored: stored, Duplicates: 1},
		Rejections: map[string]int{scheduler.ReasonBelowThreshold: 1},
		Delay:      time.Millisecond,
	}
}

func newTestSupervisor(t *testing.T, cfg Config, cycler Cycler) *Supervisor {
	t.Helper()
	c, err := corpus.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	cursors := cursor.NewStore(c, filepath.Join(t.TempDir(), "cursors.json"))
	return New(cfg, cycler, dedup.New(), cursors, nil)
}

func TestRun_AccumulatesAndStopsAtMaxCycles(t *testing.T) {
	t.Parallel()
	cycler := &fakeCycler{results: []scheduler.CycleResult{
		goodCycle("ebay", 3),
		goodCycle("avito", 2),
		{Platform: "facebook", Skipped: true, Delay: time.Millisecond},
		{Platform: "craigslist", Err: eris.New("status 403"), Delay: time.Millisecond},
	}}
	s := newTestSupervisor(t, Config{MaxCycles: 4}, cycler)

	stats, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Cycles)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 10, stats.Raw)
	assert.Equal(t, sink.Stats{Stored: 5, Duplicates: 2}, stats.Sink)
	assert.Equal(t, 2, stats.Rejections[scheduler.ReasonBelowThreshold])
	assert.Equal(t, 1, stats.Platforms["ebay"].Cycles)
	assert.Equal(t, 3, stats.Platforms["ebay"].Stored)
	assert.Equal(t, 1, stats.Platforms["facebook"].Skipped)
	assert.Equal(t, 1, stats.Platforms["craigslist"].Failures)
}

func TestRun_DurationBudgetEndsSession(t *testing.T) {
	t.Parallel()
	cycler := &fakeCycler{results: []scheduler.CycleResult{
		{Platform: "ebay", Delay: 50 * time.Millisecond},
	}}
	s := newTestSupervisor(t, Config{Duration: 120 * time.Millisecond}, cycler)

	done := make(chan struct{})
	go func() {
		defer close(done)
		stats, err := s.Run(context.Background())
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, stats.Cycles, 1)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop at duration budget")
	}
}

func TestRun_CancelStopsDuringDelay(t *testing.T) {
	t.Parallel()
	cycler := &fakeCycler{results: []scheduler.CycleResult{
		{Platform: "ebay", Delay: time.Hour},
	}}
	s := newTestSupervisor(t, Config{}, cycler)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	stats, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Cycles)
}

func TestRun_SnapshotsDedupCache(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "dedup.json")
	cycler := &fakeCycler{results: []scheduler.CycleResult{
		{Platform: "ebay", Delay: time.Millisecond},
	}}
	s := newTestSupervisor(t, Config{MaxCycles: 1, DedupSnapshotPath: path}, cycler)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	// Shutdown flushes the snapshot even before the 10-cycle mark.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFormatReport(t *testing.T) {
	t.Parallel()
	stats := SessionStats{
		StartedAt: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
		EndedAt:   time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		Cycles:    120,
		Raw:       900,
		Novel:     640,
		Sink:      sink.Stats{Stored: 48, Duplicates: 12},
		Rejections: map[string]int{
			scheduler.ReasonBelowThreshold: 500,
			scheduler.ReasonCacheDuplicate: 260,
		},
		Platforms: map[string]PlatformStats{
			"avito": {Cycles: 40, Raw: 400, Stored: 20},
			"ebay":  {Cycles: 30, Raw: 300, Stored: 18},
		},
		Levels: map[string]int{"CRITICAL": 9, "HIGH": 17},
	}

	report := FormatReport(stats)

	assert.Contains(t, report, "# Scan Session Report")
	assert.Contains(t, report, "- Cycles: 120")
	assert.Contains(t, report, "- Detections stored: 48")
	assert.Contains(t, report, "- Acceptance rate: 5.3%")
	assert.Contains(t, report, "- avito: 40 cycles, 400 raw, 20 stored")
	assert.Contains(t, report, "- CRITICAL: 9")
	assert.Contains(t, report, "- Detections/hour: 24.0")
	assert.Contains(t, report, "- Detections/day: 576")

	// Most common rejection reason is listed first.
	assert.Less(t, strings.Index(report, "below_threshold"), strings.Index(report, "cache_duplicate"))
}

func TestAcceptanceRate_ZeroRaw(t *testing.T) {
	t.Parallel()
	assert.Zero(t, SessionStats{}.AcceptanceRate())
}
