package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_InsertStored(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO detections`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := s.InsertDetection(context.Background(), testDetection("EV-1", "https://www.ebay.com/itm/1"))
	require.NoError(t, err)
	assert.Equal(t, ResultStored, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ConflictIsDuplicate(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	// ON CONFLICT DO NOTHING reports zero rows affected.
	mock.ExpectExec(`INSERT INTO detections`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	res, err := s.InsertDetection(context.Background(), testDetection("EV-2", "https://www.ebay.com/itm/1"))
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, res)
}

func TestPostgres_UniqueViolationIsDuplicate(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO detections`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "detections_listing_url_key"})

	res, err := s.InsertDetection(context.Background(), testDetection("EV-3", "https://www.ebay.com/itm/1"))
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, res)
}

func TestPostgres_ImportDetections(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_detections"}, detectionColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "detections"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := s.ImportDetections(context.Background(), []model.Detection{
		testDetection("EV-1", "https://www.ebay.com/itm/1"),
		testDetection("EV-2", "https://www.ebay.com/itm/2"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountByPlatform(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(`SELECT platform, COUNT\(\*\) FROM detections`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"platform", "count"}).
			AddRow("avito", 12).
			AddRow("ebay", 7))

	counts, err := s.CountByPlatform(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"avito": 12, "ebay": 7}, counts)
}

func TestPostgres_ReviewQueueDepth(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM detections WHERE requires_human_review`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	n, err := s.ReviewQueueDepth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestPostgres_MarkAlertSentMissing(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE detections SET alert_sent`).
		WithArgs("EV-x").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.Error(t, s.MarkAlertSent(context.Background(), "EV-x"))
}

func TestPostgres_Migrate(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS detections`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, s.Migrate(context.Background()))
}
