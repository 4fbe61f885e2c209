// Package sink writes scored listings to the detection store. Writes are
// sequential and idempotent: a listing URL the store already holds counts
// as a duplicate, and any other database failure is logged and dropped so
// one bad row never stalls a scan cycle.
package sink

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/store"
)

// Scored pairs a listing with its threat assessment.
type Scored struct {
	Listing    model.Listing
	Assessment model.ThreatAssessment
}

// Stats summarizes one batch of writes.
type Stats struct {
	Stored     int
	Duplicates int
	Failed     int
}

// Add accumulates another batch into the receiver.
func (s *Stats) Add(other Stats) {
	s.Stored += other.Stored
	s.Duplicates += other.Duplicates
	s.Failed += other.Failed
}

// Sink maps scored listings to detection rows and persists them.
type Sink struct {
	store  store.Store
	runTag string
	now    func() time.Time
}

// DefaultRunTag mints a session tag for evidence IDs.
func DefaultRunTag() string {
	return "WCT-" + strings.ToUpper(uuid.NewString()[:8])
}

// New creates a Sink stamping evidence IDs with the given run tag.
func New(st store.Store, runTag string) *Sink {
	if runTag == "" {
		runTag = DefaultRunTag()
	}
	return &Sink{store: st, runTag: runTag, now: time.Now}
}

// WriteAll persists a batch sequentially and reports the outcome split.
func (s *Sink) WriteAll(ctx context.Context, batch []Scored) Stats {
	var stats Stats
	for _, sc := range batch {
		if ctx.Err() != nil {
			stats.Failed++
			return stats
		}
		res, err := s.write(ctx, sc)
		switch {
		case err != nil:
			stats.Failed++
			zap.L().Warn("dropping detection on store error",
				zap.String("platform", sc.Listing.Platform),
				zap.String("url", sc.Listing.URL),
				zap.Error(err),
			)
		case res == store.ResultDuplicate:
			stats.Duplicates++
		default:
			stats.Stored++
		}
	}
	return stats
}

func (s *Sink) write(ctx context.Context, sc Scored) (store.InsertResult, error) {
	return s.store.InsertDetection(ctx, s.toDetection(sc))
}

func (s *Sink) toDetection(sc Scored) model.Detection {
	l, a := sc.Listing, sc.Assessment
	observed := l.ObservedAt
	if observed.IsZero() {
		observed = s.now().UTC()
	}
	return model.Detection{
		EvidenceID:          s.evidenceID(l),
		Timestamp:           observed,
		Platform:            l.Platform,
		ThreatScore:         a.Score,
		ThreatLevel:         a.Level,
		ThreatCategory:      a.Category,
		SpeciesInvolved:     strings.Join(a.WildlifeIndicators, ", "),
		Status:              model.StatusNew,
		ListingTitle:        l.Title,
		ListingURL:          l.URL,
		ListingPrice:        l.PriceText,
		SearchTerm:          l.SearchTerm,
		Description:         l.Description,
		ConfidenceScore:     a.Confidence,
		RequiresHumanReview: a.RequiresHumanReview,
	}
}

// evidenceID mints {RUN_TAG}-{PLATFORM}-{YYYYMMDD-HHMMSS}-{item_key}.
func (s *Sink) evidenceID(l model.Listing) string {
	ts := s.now().UTC().Format("20060102-150405")
	return s.runTag + "-" + strings.ToUpper(l.Platform) + "-" + ts + "-" + itemKey(l)
}

// itemKey prefers the marketplace's native item ID, falling back to a short
// URL digest when the adapter could not extract one.
func itemKey(l model.Listing) string {
	if key := sanitizeKey(l.NativeItemID); key != "" {
		return key
	}
	sum := md5.Sum([]byte(l.URL))
	return hex.EncodeToString(sum[:])[:10]
}

func sanitizeKey(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}
