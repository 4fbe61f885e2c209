// Package corpus loads the multilingual keyword corpus and partitions it
// into priority tiers. The corpus is immutable after load.
package corpus

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

// File is the on-disk JSON shape of the keyword corpus.
type File struct {
	KeywordsByLanguage map[string][]string `json:"keywords_by_language"`
	TotalKeywords      int                 `json:"total_keywords"`
	TotalLanguages     int                 `json:"total_languages"`
	Version            string              `json:"version"`
}

// Corpus is the loaded, deduplicated keyword set.
type Corpus struct {
	keywords []model.Keyword
	byTier   map[model.Tier][]model.Keyword
	langs    []string
	version  string
}

// minCoverage is the fraction of the declared total that must survive
// dedup for the file to be accepted.
const minCoverage = 0.9

// Load reads and validates the corpus file. A missing file falls back to
// the embedded critical-only set; a file that loses more than 10% of its
// declared terms to dedup is rejected outright.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("corpus: keyword file missing, using embedded critical-only fallback",
				zap.String("path", path),
				zap.Int("fallback_terms", len(fallbackKeywords)),
			)
			return fromKeywords(fallbackKeywords, "embedded-fallback"), nil
		}
		return nil, eris.Wrapf(err, "corpus: read %s", path)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "corpus: parse %s", path)
	}
	return FromFile(&f)
}

// FromFile builds a Corpus from an already-parsed keyword file.
func FromFile(f *File) (*Corpus, error) {
	if len(f.KeywordsByLanguage) == 0 {
		return nil, eris.New("corpus: no languages in keyword file")
	}

	// Deterministic language order, then insertion order within a language.
	langs := make([]string, 0, len(f.KeywordsByLanguage))
	for lang := range f.KeywordsByLanguage {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	seen := make(map[string]bool)
	var keywords []model.Keyword
	for _, lang := range langs {
		for _, term := range f.KeywordsByLanguage[lang] {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			key := strings.ToLower(term)
			if seen[key] {
				continue
			}
			seen[key] = true
			keywords = append(keywords, model.Keyword{
				Text:     term,
				Language: lang,
				Tier:     tierFor(key),
			})
		}
	}

	if f.TotalKeywords > 0 {
		if float64(len(keywords)) < minCoverage*float64(f.TotalKeywords) {
			return nil, eris.Errorf("corpus: retained %d of %d declared keywords (below %d%% threshold)",
				len(keywords), f.TotalKeywords, int(minCoverage*100))
		}
	}

	c := fromSlice(keywords, f.Version)
	c.langs = langs
	zap.L().Info("corpus: loaded",
		zap.Int("keywords", c.Size()),
		zap.Int("languages", len(langs)),
		zap.String("version", f.Version),
		zap.Int("critical", len(c.ByTier(model.TierCritical))),
		zap.Int("high", len(c.ByTier(model.TierHigh))),
	)
	return c, nil
}

func fromKeywords(terms []model.Keyword, version string) *Corpus {
	seen := make(map[string]bool)
	var keywords []model.Keyword
	langs := make(map[string]bool)
	for _, kw := range terms {
		key := strings.ToLower(kw.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, kw)
		langs[kw.Language] = true
	}
	c := fromSlice(keywords, version)
	for lang := range langs {
		c.langs = append(c.langs, lang)
	}
	sort.Strings(c.langs)
	return c
}

func fromSlice(keywords []model.Keyword, version string) *Corpus {
	byTier := make(map[model.Tier][]model.Keyword)
	for _, kw := range keywords {
		byTier[kw.Tier] = append(byTier[kw.Tier], kw)
	}
	return &Corpus{keywords: keywords, byTier: byTier, version: version}
}

// All returns every keyword in load order.
func (c *Corpus) All() []model.Keyword {
	return c.keywords
}

// ByTier returns the keywords in the given tier, in load order. The general
// tier additionally serves as the catch-all when a tier is empty.
func (c *Corpus) ByTier(tier model.Tier) []model.Keyword {
	return c.byTier[tier]
}

// Size returns the total number of retained keywords.
func (c *Corpus) Size() int { return len(c.keywords) }

// Languages returns the sorted language codes present in the corpus.
func (c *Corpus) Languages() []string { return c.langs }

// Version returns the declared corpus version.
func (c *Corpus) Version() string { return c.version }
