package model

import "time"

// DetectionStatus tracks the review lifecycle of a persisted detection.
type DetectionStatus string

const (
	StatusNew      DetectionStatus = "NEW"
	StatusReviewed DetectionStatus = "REVIEWED"
	StatusCleared  DetectionStatus = "CLEARED"
)

// Detection is a persisted row recording a scored listing. listing_url is
// globally unique in the store; a duplicate insert is a no-op, not an error.
type Detection struct {
	EvidenceID          string          `json:"evidence_id"`
	Timestamp           time.Time       `json:"timestamp"`
	Platform            string          `json:"platform"`
	ThreatScore         int             `json:"threat_score"`
	ThreatLevel         ThreatLevel     `json:"threat_level"`
	ThreatCategory      ThreatCategory  `json:"threat_category"`
	SpeciesInvolved     string          `json:"species_involved,omitempty"`
	AlertSent           bool            `json:"alert_sent"`
	Status              DetectionStatus `json:"status"`
	ListingTitle        string          `json:"listing_title"`
	ListingURL          string          `json:"listing_url"`
	ListingPrice        string          `json:"listing_price,omitempty"`
	SearchTerm          string          `json:"search_term"`
	Description         string          `json:"description,omitempty"`
	ConfidenceScore     float64         `json:"confidence_score"`
	RequiresHumanReview bool            `json:"requires_human_review"`
}
