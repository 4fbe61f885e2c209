// Package supervisor runs the long-lived scan session: it loops scheduler
// cycles under a duration budget, honors the adaptive inter-cycle delay,
// snapshots the dedup cache periodically, and flushes all durable state on
// shutdown before emitting the session report.
package supervisor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/cursor"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/dedup"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/scheduler"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/sink"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/store"
)

// snapshotEvery is how many cycles pass between dedup cache snapshots.
const snapshotEvery = 10

// Cycler is the single-cycle surface the supervisor drives.
type Cycler interface {
	RunCycle(ctx context.Context) scheduler.CycleResult
}

// Config tunes a scan session.
type Config struct {
	// Duration is the session budget. Zero means run until canceled.
	Duration time.Duration

	// DedupSnapshotPath is where the cache snapshot lands. Empty disables
	// snapshots.
	DedupSnapshotPath string

	// MaxCycles stops the session after N cycles. Zero means unlimited.
	// Used by the run-once mode.
	MaxCycles int
}

// PlatformStats aggregates per-platform session counters.
type PlatformStats struct {
	Cycles     int
	Raw        int
	Stored     int
	Duplicates int
	Skipped    int
	Failures   int
}

// SessionStats is the full session summary handed to the report formatter.
type SessionStats struct {
	StartedAt time.Time
	EndedAt   time.Time

	Cycles   int
	Skipped  int
	Failures int

	Raw   int
	Novel int
	Sink  sink.Stats

	Rejections map[string]int
	Platforms  map[string]PlatformStats
	Levels     map[string]int
}

// Elapsed returns the session wall time.
func (s SessionStats) Elapsed() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// AcceptanceRate is stored detections over raw listings seen.
func (s SessionStats) AcceptanceRate() float64 {
	if s.Raw == 0 {
		return 0
	}
	return float64(s.Sink.Stored) / float64(s.Raw)
}

// Supervisor owns one scan session over the shared pipeline state.
type Supervisor struct {
	cfg     Config
	cycler  Cycler
	cache   *dedup.Cache
	cursors *cursor.Store
	store   store.Store

	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time
}

// New wires a supervisor. The store is only read for the end-of-session
// level breakdown and may be the same instance the sink writes through.
func New(cfg Config, cycler Cycler, cache *dedup.Cache, cursors *cursor.Store, st store.Store) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		cycler:  cycler,
		cache:   cache,
		cursors: cursors,
		store:   st,
		sleep:   sleepCtx,
		now:     time.Now,
	}
}

// Run executes the session until the duration budget, cycle limit, or the
// parent context ends it. State is flushed before returning; the error only
// reports flush failures, never cycle failures.
func (s *Supervisor) Run(ctx context.Context) (SessionStats, error) {
	stats := SessionStats{
		StartedAt:  s.now().UTC(),
		Rejections: map[string]int{},
		Platforms:  map[string]PlatformStats{},
		Levels:     map[string]int{},
	}

	runCtx := ctx
	if s.cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Duration)
		defer cancel()
	}

	zap.L().Info("session start",
		zap.Duration("budget", s.cfg.Duration),
		zap.Int("max_cycles", s.cfg.MaxCycles),
		zap.Int("dedup_cache", s.cache.Size()),
	)

	for runCtx.Err() == nil {
		res := s.cycler.RunCycle(runCtx)
		s.accumulate(&stats, res)

		if stats.Cycles%snapshotEvery == 0 {
			s.snapshot()
		}
		if s.cfg.MaxCycles > 0 && stats.Cycles >= s.cfg.MaxCycles {
			break
		}
		if !s.sleep(runCtx, res.Delay) {
			break
		}
	}

	stats.EndedAt = s.now().UTC()
	s.collectLevels(ctx, &stats)

	err := s.shutdown()
	zap.L().Info("session end",
		zap.Int("cycles", stats.Cycles),
		zap.Int("stored", stats.Sink.Stored),
		zap.Duration("elapsed", stats.Elapsed()),
	)
	return stats, err
}

func (s *Supervisor) accumulate(stats *SessionStats, res scheduler.CycleResult) {
	stats.Cycles++
	stats.Raw += res.Raw
	stats.Novel += res.Novel
	stats.Sink.Add(res.Stats)
	for reason, n := range res.Rejections {
		stats.Rejections[reason] += n
	}

	ps := stats.Platforms[res.Platform]
	ps.Cycles++
	ps.Raw += res.Raw
	ps.Stored += res.Stats.Stored
	ps.Duplicates += res.Stats.Duplicates
	if res.Skipped {
		ps.Skipped++
		stats.Skipped++
	} else if res.Err != nil {
		ps.Failures++
		stats.Failures++
	}
	stats.Platforms[res.Platform] = ps
}

// collectLevels reads the store's level breakdown for the session window.
// Best effort; a read failure leaves the breakdown empty.
func (s *Supervisor) collectLevels(ctx context.Context, stats *SessionStats) {
	if s.store == nil {
		return
	}
	levels, err := s.store.CountByLevel(ctx, stats.StartedAt)
	if err != nil {
		zap.L().Warn("session level breakdown unavailable", zap.Error(err))
		return
	}
	stats.Levels = levels
}

func (s *Supervisor) snapshot() {
	if s.cfg.DedupSnapshotPath == "" {
		return
	}
	if err := s.cache.Save(s.cfg.DedupSnapshotPath); err != nil {
		zap.L().Warn("dedup snapshot failed",
			zap.String("path", s.cfg.DedupSnapshotPath),
			zap.Error(err),
		)
	}
}

// shutdown flushes cursors and the dedup cache. Both are attempted even if
// one fails.
func (s *Supervisor) shutdown() error {
	s.snapshot()
	return s.cursors.Flush()
}

// sleepCtx waits for d or until the context ends, reporting whether the
// full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// FormatReport renders the human-readable end-of-session report.
func FormatReport(stats SessionStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Scan Session Report\n")
	fmt.Fprintf(&b, "Window: %s to %s (%s)\n\n",
		stats.StartedAt.Format(time.RFC3339),
		stats.EndedAt.Format(time.RFC3339),
		stats.Elapsed().Round(time.Second),
	)

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Cycles: %d (%d skipped, %d failed)\n", stats.Cycles, stats.Skipped, stats.Failures)
	fmt.Fprintf(&b, "- Listings seen: %d (%d novel)\n", stats.Raw, stats.Novel)
	fmt.Fprintf(&b, "- Detections stored: %d (%d duplicates, %d write failures)\n",
		stats.Sink.Stored, stats.Sink.Duplicates, stats.Sink.Failed)
	fmt.Fprintf(&b, "- Acceptance rate: %.1f%%\n\n", stats.AcceptanceRate()*100)

	b.WriteString("## Platforms\n")
	for _, name := range sortedKeys(stats.Platforms) {
		ps := stats.Platforms[name]
		fmt.Fprintf(&b, "- %s: %d cycles, %d raw, %d stored", name, ps.Cycles, ps.Raw, ps.Stored)
		if ps.Skipped > 0 {
			fmt.Fprintf(&b, ", %d skipped", ps.Skipped)
		}
		if ps.Failures > 0 {
			fmt.Fprintf(&b, ", %d failed", ps.Failures)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(stats.Levels) > 0 {
		b.WriteString("## Threat Levels\n")
		for _, level := range sortedKeys(stats.Levels) {
			fmt.Fprintf(&b, "- %s: %d\n", level, stats.Levels[level])
		}
		b.WriteString("\n")
	}

	if len(stats.Rejections) > 0 {
		b.WriteString("## Top Rejection Reasons\n")
		for _, reason := range sortedByCount(stats.Rejections) {
			fmt.Fprintf(&b, "- %s: %d\n", reason, stats.Rejections[reason])
		}
		b.WriteString("\n")
	}

	if hours := stats.Elapsed().Hours(); hours > 0 && stats.Sink.Stored > 0 {
		perHour := float64(stats.Sink.Stored) / hours
		b.WriteString("## Projections\n")
		fmt.Fprintf(&b, "- Detections/hour: %.1f\n", perHour)
		fmt.Fprintf(&b, "- Detections/day: %.0f\n", perHour*24)
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedByCount orders keys by descending count, ties alphabetical.
func sortedByCount(m map[string]int) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool {
		return m[keys[i]] > m[keys[j]]
	})
	return keys
}
