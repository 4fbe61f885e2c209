package scorer

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

// Engine scores listings against the configured indicator tables.
// Engines are immutable after construction and safe for concurrent use.
type Engine struct {
	cfg      *Config
	patterns []compiledPattern
}

type compiledPattern struct {
	re     *regexp.Regexp
	weight int
	label  string
}

// NewEngine compiles the indicator tables into a scoring engine.
func NewEngine(cfg *Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg}
	for _, p := range cfg.HTPatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			// Validate already compiled every pattern; unreachable.
			return nil, err
		}
		label := p.Label
		if label == "" {
			label = p.Pattern
		}
		e.patterns = append(e.patterns, compiledPattern{re: re, weight: p.Weight, label: label})
	}
	return e, nil
}

// Score produces the threat assessment for a listing found via the given
// keyword on the given platform. Deterministic: identical inputs always
// yield identical assessments.
func (e *Engine) Score(l *model.Listing, keyword, platform string) model.ThreatAssessment {
	haystack := strings.ToLower(l.Title + " " + l.Description + " " + keyword)

	wildlifeRaw, wildlifeHits := matchIndicators(haystack, e.cfg.WildlifeIndicators)
	htRaw, htHits := matchIndicators(haystack, e.cfg.HTIndicators)
	for _, p := range e.patterns {
		if p.re.MatchString(haystack) {
			htRaw += p.weight
			htHits = append(htHits, p.label)
		}
	}

	fpReduction := 0
	for _, r := range e.cfg.Reducers {
		if strings.Contains(haystack, strings.ToLower(r.Term)) {
			fpReduction += r.Weight
		}
	}

	mult := e.cfg.multiplier(platform)
	wildlife := clampNonNegative(int(math.Round(float64(wildlifeRaw)*mult)) + fpReduction)
	ht := clampNonNegative(int(math.Round(float64(htRaw)*mult)) + fpReduction)

	// Price and URL adjustments only sharpen existing signals; a listing
	// with no indicator hits stays at zero.
	price, hasPrice := parsePrice(l.PriceText)
	if hasPrice {
		if wildlifeRaw > 0 && price >= e.cfg.Price.HighValueMin {
			wildlife += e.cfg.Price.HighValueBonus
		}
		if wildlifeRaw > 0 && price > 0 && price <= e.cfg.Price.LowValueMax {
			wildlife += e.cfg.Price.LowValueBonus
		}
		if htRaw > 0 && isRoundServiceAmount(price, e.cfg.Price) {
			ht += e.cfg.Price.RoundBonus
		}
	}
	if htRaw > 0 {
		ht += e.urlAdjustment(l.URL)
	}

	score := wildlife
	if ht > score {
		score = ht
	}
	if score > 100 {
		score = 100
	}

	category := model.CategorySafe
	wildlifeHit := wildlife >= e.cfg.Thresholds.Wildlife
	htHit := ht >= e.cfg.Thresholds.HT
	switch {
	case wildlifeHit && htHit:
		category = model.CategoryBoth
	case wildlifeHit:
		category = model.CategoryWildlife
	case htHit:
		category = model.CategoryHumanTrafficking
	}

	indicatorCount := len(wildlifeHits) + len(htHits)
	confidence := math.Min(0.9, float64(score)/100) + math.Min(0.3, 0.05*float64(indicatorCount))
	confidence = math.Min(1.0, math.Max(0.1, confidence))

	review := score >= 80 ||
		(score >= 50 && confidence >= 0.7) ||
		((category == model.CategoryHumanTrafficking || category == model.CategoryBoth) && score >= 45)

	var fpRisk float64
	switch {
	case fpReduction <= -10:
		fpRisk = math.Min(0.8, float64(-fpReduction)/30)
	case confidence < 0.3:
		fpRisk = 0.6
	case confidence > 0.8:
		fpRisk = 0.1
	default:
		fpRisk = 0.3
	}

	return model.ThreatAssessment{
		Score:               score,
		Level:               model.LevelForScore(score),
		Category:            category,
		Confidence:          round2(confidence),
		FalsePositiveRisk:   round2(fpRisk),
		RequiresHumanReview: review,
		WildlifeIndicators:  wildlifeHits,
		HTIndicators:        htHits,
		Reasoning: fmt.Sprintf(
			"wildlife=%d ht=%d fp_reduction=%d platform=%s mult=%.2f indicators=%d",
			wildlife, ht, fpReduction, strings.ToLower(platform), mult, indicatorCount,
		),
	}
}

// matchIndicators sums the weights of table terms present in the haystack.
// Each table term counts at most once.
func matchIndicators(haystack string, table []Indicator) (int, []string) {
	total := 0
	var hits []string
	for _, ind := range table {
		if strings.Contains(haystack, strings.ToLower(ind.Term)) {
			total += ind.Weight
			hits = append(hits, ind.Term)
		}
	}
	return total, hits
}

// urlAdjustment scores obfuscation and coded tokens in the listing URL path.
func (e *Engine) urlAdjustment(raw string) int {
	if raw == "" {
		return 0
	}
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	path := strings.ToLower(u.Path)

	adj := 0
	for _, token := range e.cfg.URLSuspectTokens {
		if strings.Contains(path, token) {
			adj += 5
			break
		}
	}
	// Obfuscated slugs: long opaque segments or heavy percent-encoding.
	if strings.Count(raw, "%") >= 4 {
		adj += 3
	} else {
		for _, seg := range strings.Split(path, "/") {
			if len(seg) >= 28 && !strings.ContainsAny(seg, "-_") {
				adj += 3
				break
			}
		}
	}
	return adj
}

var priceRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// parsePrice extracts the first numeric amount from free-form price text.
func parsePrice(text string) (float64, bool) {
	m := priceRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isRoundServiceAmount(price float64, rules PriceRules) bool {
	if rules.RoundAmountStep <= 0 {
		return false
	}
	if price < rules.RoundAmountMin || price > rules.RoundAmountMax {
		return false
	}
	return math.Mod(price, rules.RoundAmountStep) == 0
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
