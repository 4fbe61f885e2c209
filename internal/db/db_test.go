package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "detections", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"EV-1", "ebay"}, {"EV-2", "avito"}}
	mock.ExpectCopyFrom(pgx.Identifier([]string{"detections"}), []string{"evidence_id", "platform"}).
		WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "detections", []string{"evidence_id", "platform"}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_Validation(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{Table: "detections"}, [][]any{{1}})
	assert.Error(t, err)

	_, err = BulkUpsert(context.Background(), nil, UpsertConfig{
		Table: "detections", Columns: []string{"a"},
	}, [][]any{{1}})
	assert.Error(t, err)

	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_DoNothing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := UpsertConfig{
		Table:        "detections",
		Columns:      []string{"listing_url", "threat_score"},
		ConflictKeys: []string{"listing_url"},
		DoNothing:    true,
	}
	rows := [][]any{{"https://x.com/1", 85}}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_detections"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier([]string{"_tmp_upsert_detections"}), cfg.Columns).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "detections" .* ON CONFLICT \("listing_url"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, cfg, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
