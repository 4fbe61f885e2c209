package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development runs and field deployments without a Postgres service.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS detections (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	evidence_id           TEXT NOT NULL UNIQUE,
	timestamp             DATETIME NOT NULL,
	platform              TEXT NOT NULL,
	threat_score          INTEGER NOT NULL,
	threat_level          TEXT NOT NULL,
	threat_category       TEXT NOT NULL,
	species_involved      TEXT,
	alert_sent            INTEGER NOT NULL DEFAULT 0,
	status                TEXT NOT NULL DEFAULT 'NEW',
	listing_title         TEXT NOT NULL,
	listing_url           TEXT NOT NULL UNIQUE,
	listing_price         TEXT,
	search_term           TEXT NOT NULL,
	description           TEXT,
	confidence_score      REAL NOT NULL,
	requires_human_review INTEGER NOT NULL DEFAULT 0,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_detections_platform ON detections(platform);
CREATE INDEX IF NOT EXISTS idx_detections_level ON detections(threat_level);
CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertDetection(ctx context.Context, d model.Detection) (InsertResult, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO detections (
	evidence_id, timestamp, platform, threat_score, threat_level,
	threat_category, species_involved, alert_sent, status, listing_title,
	listing_url, listing_price, search_term, description,
	confidence_score, requires_human_review
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (listing_url) DO NOTHING`,
		d.EvidenceID, d.Timestamp.UTC(), d.Platform, d.ThreatScore, string(d.ThreatLevel),
		string(d.ThreatCategory), d.SpeciesInvolved, d.AlertSent, string(d.Status),
		d.ListingTitle, d.ListingURL, d.ListingPrice, d.SearchTerm, d.Description,
		d.ConfidenceScore, d.RequiresHumanReview,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ResultDuplicate, nil
		}
		return "", eris.Wrapf(err, "sqlite: insert detection %s", d.EvidenceID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ResultDuplicate, nil
	}
	return ResultStored, nil
}

func (s *SQLiteStore) CountByPlatform(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.countBy(ctx, "platform", since)
}

func (s *SQLiteStore) CountByLevel(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.countBy(ctx, "threat_level", since)
}

func (s *SQLiteStore) countBy(ctx context.Context, column string, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM detections WHERE timestamp >= ? GROUP BY `+column,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: count by %s", column)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan count row")
		}
		out[key] = n
	}
	return out, eris.Wrap(rows.Err(), "sqlite: count rows")
}

func (s *SQLiteStore) ReviewQueueDepth(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM detections WHERE requires_human_review AND status = 'NEW'`,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: review queue depth")
	}
	return n, nil
}

func (s *SQLiteStore) RecentCritical(ctx context.Context, since time.Time, limit int) ([]model.Detection, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT evidence_id, timestamp, platform, threat_score, threat_level,
       threat_category, COALESCE(species_involved, ''), alert_sent, status,
       listing_title, listing_url, COALESCE(listing_price, ''), search_term,
       COALESCE(description, ''), confidence_score, requires_human_review
FROM detections
WHERE threat_level = 'CRITICAL' AND NOT alert_sent AND timestamp >= ?
ORDER BY timestamp DESC
LIMIT ?`,
		since.UTC(), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent critical")
	}
	defer func() { _ = rows.Close() }()

	var out []model.Detection
	for rows.Next() {
		var d model.Detection
		var level, category, status string
		if err := rows.Scan(
			&d.EvidenceID, &d.Timestamp, &d.Platform, &d.ThreatScore, &level,
			&category, &d.SpeciesInvolved, &d.AlertSent, &status,
			&d.ListingTitle, &d.ListingURL, &d.ListingPrice, &d.SearchTerm,
			&d.Description, &d.ConfidenceScore, &d.RequiresHumanReview,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan critical detection")
		}
		d.ThreatLevel = model.ThreatLevel(level)
		d.ThreatCategory = model.ThreatCategory(category)
		d.Status = model.DetectionStatus(status)
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: recent critical rows")
}

func (s *SQLiteStore) MarkAlertSent(ctx context.Context, evidenceID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE detections SET alert_sent = 1 WHERE evidence_id = ?`,
		evidenceID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark alert sent %s", evidenceID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: detection %s not found", evidenceID)
	}
	return nil
}
