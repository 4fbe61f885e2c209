package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/db"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const insertDetectionSQL = `
INSERT INTO detections (
	evidence_id, timestamp, platform, threat_score, threat_level,
	threat_category, species_involved, alert_sent, status, listing_title,
	listing_url, listing_price, search_term, description,
	confidence_score, requires_human_review
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (listing_url) DO NOTHING`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// The insert runs on every accepted listing; prepare it per connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Prepare(ctx, "insert_detection", insertDetectionSQL); err != nil {
			return eris.Wrap(err, "postgres: prepare insert_detection")
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (bulk backfill imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS detections (
	id                    BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	evidence_id           TEXT NOT NULL UNIQUE,
	timestamp             TIMESTAMPTZ NOT NULL,
	platform              TEXT NOT NULL,
	threat_score          INTEGER NOT NULL,
	threat_level          TEXT NOT NULL,
	threat_category       TEXT NOT NULL,
	species_involved      TEXT,
	alert_sent            BOOLEAN NOT NULL DEFAULT false,
	status                TEXT NOT NULL DEFAULT 'NEW',
	listing_title         TEXT NOT NULL,
	listing_url           TEXT NOT NULL UNIQUE,
	listing_price         TEXT,
	search_term           TEXT NOT NULL,
	description           TEXT,
	confidence_score      DOUBLE PRECISION NOT NULL,
	requires_human_review BOOLEAN NOT NULL DEFAULT false,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_detections_platform ON detections(platform);
CREATE INDEX IF NOT EXISTS idx_detections_level ON detections(threat_level);
CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_detections_review ON detections(requires_human_review) WHERE requires_human_review;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertDetection(ctx context.Context, d model.Detection) (InsertResult, error) {
	tag, err := s.pool.Exec(ctx, insertDetectionSQL,
		d.EvidenceID, d.Timestamp, d.Platform, d.ThreatScore, string(d.ThreatLevel),
		string(d.ThreatCategory), d.SpeciesInvolved, d.AlertSent, string(d.Status),
		d.ListingTitle, d.ListingURL, d.ListingPrice, d.SearchTerm, d.Description,
		d.ConfidenceScore, d.RequiresHumanReview,
	)
	if err != nil {
		// Racing writers can still surface the unique violation directly.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ResultDuplicate, nil
		}
		return "", eris.Wrapf(err, "postgres: insert detection %s", d.EvidenceID)
	}
	if tag.RowsAffected() == 0 {
		return ResultDuplicate, nil
	}
	return ResultStored, nil
}

// detectionColumns matches the insert column order for bulk loads.
var detectionColumns = []string{
	"evidence_id", "timestamp", "platform", "threat_score", "threat_level",
	"threat_category", "species_involved", "alert_sent", "status",
	"listing_title", "listing_url", "listing_price", "search_term",
	"description", "confidence_score", "requires_human_review",
}

// ImportDetections bulk-loads exported detection rows. Conflicting listing
// URLs are skipped, so re-importing the same evidence file is a no-op.
// Returns the number of rows actually written.
func (s *PostgresStore) ImportDetections(ctx context.Context, detections []model.Detection) (int64, error) {
	rows := make([][]any, len(detections))
	for i, d := range detections {
		rows[i] = []any{
			d.EvidenceID, d.Timestamp, d.Platform, d.ThreatScore, string(d.ThreatLevel),
			string(d.ThreatCategory), d.SpeciesInvolved, d.AlertSent, string(d.Status),
			d.ListingTitle, d.ListingURL, d.ListingPrice, d.SearchTerm, d.Description,
			d.ConfidenceScore, d.RequiresHumanReview,
		}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "detections",
		Columns:      detectionColumns,
		ConflictKeys: []string{"listing_url"},
		DoNothing:    true,
	}, rows)
}

func (s *PostgresStore) CountByPlatform(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT platform, COUNT(*) FROM detections WHERE timestamp >= $1 GROUP BY platform`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by platform")
	}
	defer rows.Close()
	return scanCounts(rows)
}

func (s *PostgresStore) CountByLevel(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT threat_level, COUNT(*) FROM detections WHERE timestamp >= $1 GROUP BY threat_level`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by level")
	}
	defer rows.Close()
	return scanCounts(rows)
}

func (s *PostgresStore) ReviewQueueDepth(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM detections WHERE requires_human_review AND status = 'NEW'`,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: review queue depth")
	}
	return n, nil
}

func (s *PostgresStore) RecentCritical(ctx context.Context, since time.Time, limit int) ([]model.Detection, error) {
	rows, err := s.pool.Query(ctx, `
SELECT evidence_id, timestamp, platform, threat_score, threat_level,
       threat_category, COALESCE(species_involved, ''), alert_sent, status,
       listing_title, listing_url, COALESCE(listing_price, ''), search_term,
       COALESCE(description, ''), confidence_score, requires_human_review
FROM detections
WHERE threat_level = 'CRITICAL' AND NOT alert_sent AND timestamp >= $1
ORDER BY timestamp DESC
LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent critical")
	}
	defer rows.Close()

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
			return nil, eris.Wrap(err, "postgres: scan critical detection")
		}
		d.ThreatLevel = model.ThreatLevel(level)
		d.ThreatCategory = model.ThreatCategory(category)
		d.Status = model.DetectionStatus(status)
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: recent critical rows")
}

func (s *PostgresStore) MarkAlertSent(ctx context.Context, evidenceID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE detections SET alert_sent = true WHERE evidence_id = $1`,
		evidenceID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark alert sent %s", evidenceID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: detection %s not found", evidenceID)
	}
	return nil
}

func scanCounts(rows pgx.Rows) (map[string]int, error) {
	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan count row")
		}
		out[key] = n
	}
	return out, eris.Wrap(rows.Err(), "postgres: count rows")
}
