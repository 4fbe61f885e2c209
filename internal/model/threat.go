package model

// ThreatLevel buckets a threat score for triage.
type ThreatLevel string

const (
	LevelSafe     ThreatLevel = "SAFE"
	LevelLow      ThreatLevel = "LOW"
	LevelMedium   ThreatLevel = "MEDIUM"
	LevelHigh     ThreatLevel = "HIGH"
	LevelCritical ThreatLevel = "CRITICAL"
)

// ThreatCategory identifies which indicator family drove the score.
type ThreatCategory string

const (
	CategorySafe             ThreatCategory = "SAFE"
	CategoryWildlife         ThreatCategory = "WILDLIFE"
	CategoryHumanTrafficking ThreatCategory = "HUMAN_TRAFFICKING"
	CategoryBoth             ThreatCategory = "BOTH"
)

// LevelForScore maps a 0-100 threat score to its triage level.
func LevelForScore(score int) ThreatLevel {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	case score >= 20:
		return LevelLow
	default:
		return LevelSafe
	}
}

// ThreatAssessment is the deterministic output of the scoring engine for a
// single listing. Identical inputs always produce identical assessments.
type ThreatAssessment struct {
	Score               int            `json:"score"`
	Level               ThreatLevel    `json:"level"`
	Category            ThreatCategory `json:"category"`
	Confidence          float64        `json:"confidence"`
	FalsePositiveRisk   float64        `json:"false_positive_risk"`
	RequiresHumanReview bool           `json:"requires_human_review"`
	WildlifeIndicators  []string       `json:"wildlife_indicators,omitempty"`
	HTIndicators        []string       `json:"ht_indicators,omitempty"`
	Reasoning           string         `json:"reasoning"`
}
