// Package adapter implements the per-marketplace scanners. Each adapter
// accepts a keyword batch and returns normalized listings; transport
// strategy (API, plain HTTP, headless render) is a static property of the
// adapter. Failures are tagged with resilience kinds so the scheduler can
// pick the right retry policy.
package adapter

import (
	"context"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

// Adapter scans a marketplace for a batch of keywords. The attempt number
// is the zero-based retry counter; region-rotating adapters use it to pick
// a different locale subset per attempt.
type Adapter interface {
	Name() string
	Scan(ctx context.Context, keywords []string, attempt int) ([]model.Listing, error)
}

// minTitleLen filters out navigation fragments and truncated captions that
// selector sets sometimes match.
const minTitleLen = 6
