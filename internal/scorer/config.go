// Package scorer implements the deterministic threat-scoring engine for
// marketplace listings. Scoring is a pure function of (listing, keyword,
// platform); all weights live in configuration data, not code.
package scorer

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed indicators.yaml
var defaultIndicators []byte

// Indicator is a weighted term matched as a substring of the haystack.
type Indicator struct {
	Term   string `yaml:"term"`
	Weight int    `yaml:"weight"`
}

// Pattern is a weighted regular expression for coded-language detection.
type Pattern struct {
	Pattern string `yaml:"pattern"`
	Weight  int    `yaml:"weight"`
	Label   string `yaml:"label"`
}

// Thresholds gate category assignment.
type Thresholds struct {
	Wildlife int `yaml:"wildlife"`
	HT       int `yaml:"ht"`
}

// PriceRules configure the price-analysis adjustments.
type PriceRules struct {
	HighValueMin    float64 `yaml:"high_value_min"` // wildlife: prices at or above this add HighValueBonus
	HighValueBonus  int     `yaml:"high_value_bonus"`
	LowValueMax     float64 `yaml:"low_value_max"` // wildlife: implausibly cheap genuine goods
	LowValueBonus   int     `yaml:"low_value_bonus"`
	RoundAmountMin  float64 `yaml:"round_amount_min"` // ht: round service amounts in this band
	RoundAmountMax  float64 `yaml:"round_amount_max"`
	RoundAmountStep float64 `yaml:"round_amount_step"`
	RoundBonus      int     `yaml:"round_bonus"`
}

// Config holds the full indicator table set.
type Config struct {
	WildlifeIndicators  []Indicator        `yaml:"wildlife_indicators"`
	HTIndicators        []Indicator        `yaml:"ht_indicators"`
	HTPatterns          []Pattern          `yaml:"ht_patterns"`
	Reducers            []Indicator        `yaml:"reducers"`
	PlatformMultipliers map[string]float64 `yaml:"platform_multipliers"`
	URLSuspectTokens    []string           `yaml:"url_suspect_tokens"`
	Thresholds          Thresholds         `yaml:"thresholds"`
	Price               PriceRules         `yaml:"price"`
}

// DefaultConfig parses the embedded indicator tables.
func DefaultConfig() (*Config, error) {
	return parseConfig(defaultIndicators)
}

// LoadConfig reads an indicator table override file, or the embedded
// defaults when path is empty.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read indicators %s", path)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrap(err, "scorer: parse indicators")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks table consistency: positive indicator weights, negative
// reducer weights, ordered thresholds, compilable patterns.
func (c *Config) Validate() error {
	var errs []string

	if len(c.WildlifeIndicators) == 0 {
		errs = append(errs, "wildlife_indicators must not be empty")
	}
	if len(c.HTIndicators) == 0 {
		errs = append(errs, "ht_indicators must not be empty")
	}
	for _, ind := range append(append([]Indicator{}, c.WildlifeIndicators...), c.HTIndicators...) {
		if ind.Term == "" {
			errs = append(errs, "indicator with empty term")
		}
		if ind.Weight <= 0 {
			errs = append(errs, fmt.Sprintf("indicator %q must have positive weight", ind.Term))
		}
	}
	for _, r := range c.Reducers {
		if r.Weight >= 0 {
			errs = append(errs, fmt.Sprintf("reducer %q must have negative weight", r.Term))
		}
	}
	for _, p := range c.HTPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("pattern %q does not compile: %v", p.Pattern, err))
		}
	}
	if c.Thresholds.Wildlife <= 0 || c.Thresholds.HT <= 0 {
		errs = append(errs, "thresholds must be positive")
	}
	for platform, m := range c.PlatformMultipliers {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("platform multiplier for %s must be positive", platform))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: invalid indicator config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// multiplier returns the platform risk multiplier, defaulting to 1.0.
func (c *Config) multiplier(platform string) float64 {
	if m, ok := c.PlatformMultipliers[strings.ToLower(platform)]; ok {
		return m
	}
	return 1.0
}
