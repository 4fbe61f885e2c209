// Package model defines the flat record types shared across the scanner.
package model

// Tier is a priority bucket over keywords. Critical terms are presented to
// every platform more often than general ones.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierGeneral  Tier = "general"
)

// Keyword is a single search term with its language and priority tier.
// Keywords are unique by text (case-insensitive) within the corpus.
type Keyword struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Tier     Tier   `json:"tier"`
}

// BatchProgress describes the slice of the corpus handed out by a single
// cursor advance.
type BatchProgress struct {
	Start           int `json:"start"`
	End             int `json:"end"`
	Total           int `json:"total"`
	CompletedCycles int `json:"completed_cycles"`
}
