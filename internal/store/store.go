// Package store persists scored detections. The listing URL carries a
// unique constraint in every driver; inserting a URL the store has already
// seen is reported as a duplicate, never as an error.
package store

import (
	"context"
	"time"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

// InsertResult classifies the outcome of an InsertDetection call.
type InsertResult string

const (
	// ResultStored means a new row was written.
	ResultStored InsertResult = "stored"
	// ResultDuplicate means the listing URL already exists; nothing changed.
	ResultDuplicate InsertResult = "duplicate"
)

// Store defines the persistence interface for the detection pipeline.
type Store interface {
	// InsertDetection writes one detection, treating a unique-violation on
	// listing_url as a duplicate rather than a failure.
	InsertDetection(ctx context.Context, d model.Detection) (InsertResult, error)

	// CountByPlatform returns detection counts per platform since the cutoff.
	CountByPlatform(ctx context.Context, since time.Time) (map[string]int, error)

	// CountByLevel returns detection counts per threat level since the cutoff.
	CountByLevel(ctx context.Context, since time.Time) (map[string]int, error)

	// ReviewQueueDepth counts rows awaiting human review.
	ReviewQueueDepth(ctx context.Context) (int, error)

	// RecentCritical returns CRITICAL detections since the cutoff that have
	// not had an alert sent, newest first.
	RecentCritical(ctx context.Context, since time.Time, limit int) ([]model.Detection, error)

	// MarkAlertSent flips alert_sent for a detection.
	MarkAlertSent(ctx context.Context, evidenceID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
