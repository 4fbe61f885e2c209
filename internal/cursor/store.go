// Package cursor implements the durable per-(platform, tier) keyword cursor.
// The store is the only source of truth for corpus coverage: every batch
// hand-out advances the offset and flushes it to disk before returning.
package cursor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/corpus"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

// state is the persisted offset record for one (platform, tier) pair.
type state struct {
	NextIndex       int       `json:"next_index"`
	CompletedCycles int       `json:"completed_cycles"`
	LastRunAt       time.Time `json:"last_run_at"`
}

// Store hands out keyword batches and persists coverage offsets.
// All access is mutex-serialized; concurrent scheduler workers share one
// Store instance.
type Store struct {
	mu      sync.Mutex
	corpus  *corpus.Corpus
	path    string
	cursors map[string]*state
}

// NewStore creates a cursor store backed by the given JSON state file.
// A read error is not fatal: coverage restarts from offset zero.
func NewStore(c *corpus.Corpus, path string) *Store {
	s := &Store{
		corpus:  c,
		path:    path,
		cursors: make(map[string]*state),
	}
	if err := s.load(); err != nil {
		zap.L().Warn("cursor: state load failed, starting from zero",
			zap.String("path", path),
			zap.Error(err),
		)
	}
	return s
}

func key(platform string, tier model.Tier) string {
	return fmt.Sprintf("%s:%s", platform, tier)
}

// NextBatch returns the next batchSize keywords for (platform, tier) and the
// coverage progress after the hand-out. When the tail slice is shorter than
// batchSize and the tier holds at least batchSize terms, the batch wraps to
// the front and completed_cycles is incremented. The advanced offset is
// flushed to disk before returning; a flush failure is logged and retried on
// the next call.
func (s *Store) NextBatch(platform string, tier model.Tier, batchSize int) ([]model.Keyword, model.BatchProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.pool(tier)
	total := len(pool)
	if total == 0 || batchSize <= 0 {
		return nil, model.BatchProgress{}
	}

	k := key(platform, tier)
	cur, ok := s.cursors[k]
	if !ok {
		cur = &state{}
		s.cursors[k] = cur
	}

	start := cur.NextIndex % total
	end := start + batchSize
	if end > total {
		end = total
	}
	batch := make([]model.Keyword, 0, batchSize)
	batch = append(batch, pool[start:end]...)

	wrapped := false
	if len(batch) < batchSize && total >= batchSize {
		wrapped = true
		batch = append(batch, pool[:batchSize-len(batch)]...)
	}

	cur.NextIndex = (start + len(batch)) % total
	if wrapped || (end == total && total >= batchSize) {
		cur.CompletedCycles++
	}
	cur.LastRunAt = time.Now().UTC()

	if err := s.flushLocked(); err != nil {
		zap.L().Warn("cursor: state flush failed, continuing in-memory",
			zap.String("cursor", k),
			zap.Error(err),
		)
	}

	return batch, model.BatchProgress{
		Start:           start,
		End:             end,
		Total:           total,
		CompletedCycles: cur.CompletedCycles,
	}
}

// pool resolves the keyword slice a tier draws from. An empty tier falls
// back to the full corpus so every platform always receives work.
func (s *Store) pool(tier model.Tier) []model.Keyword {
	if kws := s.corpus.ByTier(tier); len(kws) > 0 {
		return kws
	}
	return s.corpus.All()
}

// Progress returns a snapshot of every known cursor, keyed platform:tier.
func (s *Store) Progress() map[string]model.BatchProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.BatchProgress, len(s.cursors))
	for k, cur := range s.cursors {
		out[k] = model.BatchProgress{
			Start:           cur.NextIndex,
			CompletedCycles: cur.CompletedCycles,
		}
	}
	return out
}

// Flush forces the current state to disk. Used on graceful shutdown.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "cursor: read %s", s.path)
	}
	var cursors map[string]*state
	if err := json.Unmarshal(data, &cursors); err != nil {
		return eris.Wrapf(err, "cursor: parse %s", s.path)
	}
	s.cursors = cursors
	return nil
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.cursors, "", "  ")
	if err != nil {
		return eris.Wrap(err, "cursor: marshal state")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "cursor: write %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return eris.Wrapf(err, "cursor: rename %s", s.path)
	}
	return nil
}
