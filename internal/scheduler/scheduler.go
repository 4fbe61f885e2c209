// Package scheduler runs the per-cycle scan loop: pick a platform by
// weighted draw, hand out a keyword batch, invoke the adapter under its
// timeout and retry profile, then dedup, score, and persist what came back.
// The scheduler is stateless across cycles apart from the RNG and the cycle
// counter; durable coverage state lives in the cursor store.
package scheduler

import (
	"context"
	"math/rand"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/adapter"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/cursor"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/dedup"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/resilience"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/scorer"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/sink"
)

// minStoreScore is the persistence gate: listings scoring below it are
// counted as rejected, not written.
const minStoreScore = 20

// Rejection reason labels used in cycle results and session reports.
const (
	ReasonCacheDuplicate = "cache_duplicate"
	ReasonBelowThreshold = "below_threshold"
	ReasonStoreDuplicate = "store_duplicate"
	ReasonStoreError     = "store_error"
)

// Config tunes the scan loop.
type Config struct {
	// BatchSize is the keyword batch per cycle. Default 30.
	BatchSize int

	// DemoteThreshold is the rate-limit strike count that halves a
	// platform's draw weight. Default 2.
	DemoteThreshold int

	// DemoteCooldown is how long a demotion lasts. Default 10m.
	DemoteCooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 30
	}
	if c.DemoteThreshold <= 0 {
		c.DemoteThreshold = 2
	}
	if c.DemoteCooldown <= 0 {
		c.DemoteCooldown = 10 * time.Minute
	}
	return c
}

// CycleResult reports what one cycle did.
type CycleResult struct {
	Cycle    int
	Platform string
	Tier     model.Tier
	Keywords int
	Progress model.BatchProgress

	Raw        int // listings the adapter returned
	Novel      int // survived the dedup cache
	Stats      sink.Stats
	Rejections map[string]int

	Skipped bool // no-driver platforms without a browser
	Err     error

	// Delay is the recommended pause before the next cycle.
	Delay time.Duration
}

// Scheduler drives scan cycles over the registered platforms.
type Scheduler struct {
	cfg      Config
	registry *adapter.Registry
	cursors  *cursor.Store
	cache    *dedup.Cache
	engine   *scorer.Engine
	sink     *sink.Sink
	demoter  *resilience.Demoter

	rng   *rand.Rand
	cycle int
}

// New wires a scheduler over the shared pipeline components.
func New(cfg Config, reg *adapter.Registry, cur *cursor.Store, cache *dedup.Cache, eng *scorer.Engine, sk *sink.Sink) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:      cfg,
		registry: reg,
		cursors:  cur,
		cache:    cache,
		engine:   eng,
		sink:     sk,
		demoter:  resilience.NewDemoter(cfg.DemoteThreshold, cfg.DemoteCooldown),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RunCycle executes one full (platform, batch) cycle and returns its result.
// The scheduler never propagates adapter failures; they are recorded on the
// result and the loop continues.
func (s *Scheduler) RunCycle(ctx context.Context) CycleResult {
	s.cycle++
	res := CycleResult{
		Cycle:      s.cycle,
		Tier:       tierForCycle(s.cycle),
		Rejections: map[string]int{},
	}

	entry, ok := s.pickPlatform()
	if !ok {
		res.Err = eris.New("scheduler: no platforms registered")
		res.Delay = s.baselineDelay()
		return res
	}
	res.Platform = entry.Adapter.Name()

	batch, progress := s.cursors.NextBatch(res.Platform, res.Tier, s.cfg.BatchSize)
	res.Keywords = len(batch)
	res.Progress = progress
	terms := make([]string, len(batch))
	for i, kw := range batch {
		terms[i] = kw.Text
	}

	zap.L().Info("cycle start",
		zap.Int("cycle", res.Cycle),
		zap.String("platform", res.Platform),
		zap.String("tier", string(res.Tier)),
		zap.Int("keywords", res.Keywords),
		zap.Int("completed_cycles", progress.CompletedCycles),
	)

	retryCfg := entry.Retry
	retryCfg.OnRetry = resilience.RetryLogger(res.Platform)

	listings, err := resilience.DoVal(ctx, retryCfg,
		func(ctx context.Context, attempt int) ([]model.Listing, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, retryCfg.AttemptTimeout(entry.Timeout, attempt))
			defer cancel()
			return entry.Adapter.Scan(attemptCtx, terms, attempt)
		})

	rateLimited := false
	if err != nil {
		switch resilience.KindOf(err) {
		case resilience.KindNoDriver:
			res.Skipped = true
			zap.L().Debug("platform skipped, no driver", zap.String("platform", res.Platform))
		case resilience.KindRateLimited:
			rateLimited = true
			s.demoter.RecordRateLimit(res.Platform)
			res.Err = err
		default:
			res.Err = err
		}
	} else {
		s.demoter.RecordSuccess(res.Platform)
	}

	res.Raw = len(listings)
	res.Stats, res.Novel = s.ingest(ctx, listings, res.Rejections)
	res.Delay = s.delayFor(res, rateLimited)

	zap.L().Info("cycle done",
		zap.Int("cycle", res.Cycle),
		zap.String("platform", res.Platform),
		zap.Int("raw", res.Raw),
		zap.Int("novel", res.Novel),
		zap.Int("stored", res.Stats.Stored),
		zap.Int("duplicates", res.Stats.Duplicates),
		zap.Duration("delay", res.Delay),
		zap.Error(res.Err),
	)
	return res
}

// ingest filters raw listings through the dedup cache, scores survivors,
// and writes everything above the persistence gate.
func (s *Scheduler) ingest(ctx context.Context, listings []model.Listing, rejections map[string]int) (sink.Stats, int) {
	var accepted []sink.Scored
	novel := 0
	for i := range listings {
		l := listings[i]
		if !s.cache.Observe(&l) {
			rejections[ReasonCacheDuplicate]++
			continue
		}
		novel++

		assessment := s.engine.Score(&l, l.SearchTerm, l.Platform)
		if assessment.Score < minStoreScore {
			rejections[ReasonBelowThreshold]++
			continue
		}
		accepted = append(accepted, sink.Scored{Listing: l, Assessment: assessment})
	}

	stats := s.sink.WriteAll(ctx, accepted)
	rejections[ReasonStoreDuplicate] += stats.Duplicates
	rejections[ReasonStoreError] += stats.Failed
	return stats, novel
}

// pickPlatform draws a platform weighted by its static weight times the
// demoter's factor. No platform is ever excluded outright.
func (s *Scheduler) pickPlatform() (adapter.Entry, bool) {
	entries := s.registry.Entries()
	if len(entries) == 0 {
		return adapter.Entry{}, false
	}

	names := s.registry.Names()
	total := 0.0
	weights := make([]float64, len(names))
	for i, name := range names {
		w := entries[name].Weight * s.demoter.WeightFactor(name)
		weights[i] = w
		total += w
	}

	draw := s.rng.Float64() * total
	for i, name := range names {
		draw -= weights[i]
		if draw <= 0 {
			return entries[name], true
		}
	}
	return entries[names[len(names)-1]], true
}

// tierForCycle maps the cycle counter to the keyword tier: every 3rd cycle
// works the critical tier, every 4th the high tier, the rest the general
// pool.
func tierForCycle(cycle int) model.Tier {
	switch {
	case cycle%3 == 0:
		return model.TierCritical
	case cycle%4 == 0:
		return model.TierHigh
	default:
		return model.TierGeneral
	}
}

// delayFor picks the adaptive inter-cycle delay: longer after rate limits,
// shorter after high-yield cycles.
func (s *Scheduler) delayFor(res CycleResult, rateLimited bool) time.Duration {
	switch {
	case rateLimited:
		return s.randomDelay(60, 90)
	case res.Stats.Stored >= 5 || res.Raw >= 25:
		return s.randomDelay(20, 30)
	default:
		return s.baselineDelay()
	}
}

func (s *Scheduler) baselineDelay() time.Duration {
	return s.randomDelay(35, 45)
}

func (s *Scheduler) randomDelay(minSec, maxSec int) time.Duration {
	return time.Duration(minSec+s.rng.Intn(maxSec-minSec+1)) * time.Second
}

// Cycle returns the current cycle counter.
func (s *Scheduler) Cycle() int { return s.cycle }
