package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/materialive/internal/config"
	"github.com/georgemunganga/materialive/internal/database"
	"github.com/georgemunganga/materialive/internal/database/dbtest"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := database.Open(config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestMigrate_Idempotent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))

	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func insertSpot(t *testing.T, db *database.DB) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	locID, spotID := uuid.New(), uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO locations (id, ce_locationnum, name, location_type) VALUES ($1, $2, $3, $4)`,
		locID, 1, "GLENDORA", 1)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO staging_spots (id, location_id, code, name, category) VALUES ($1, $2, $3, $4, $5)`,
		spotID, locID, "W1A", "W1A", "will_call_construction")
	require.NoError(t, err)
	return spotID
}

func insertRecord(ctx context.Context, q database.Querier, spotID uuid.UUID, status string) error {
	now := time.Now().UTC()
	_, err := q.ExecContext(ctx,
		`INSERT INTO staging_records (id, spot_id, status, staged_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), spotID, status, now, now)
	return err
}

func TestSchema_ActiveSpotIsExclusive(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	spotID := insertSpot(t, db)

	require.NoError(t, insertRecord(ctx, db, spotID, "staged"))

	err := insertRecord(ctx, db, spotID, "ready")
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	// terminal records do not hold the spot
	require.NoError(t, insertRecord(ctx, db, spotID, "picked_up"))
	require.NoError(t, insertRecord(ctx, db, spotID, "delivered"))
}

func TestSchema_SpotOrCustomLocation(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Now().UTC()

	_, err := db.ExecContext(context.Background(),
		`INSERT INTO staging_records (id, status, staged_at, updated_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), "staged", now, now)
	assert.Error(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	spotID := insertSpot(t, db)
	boom := errors.New("boom")

	err := db.WithSerializableTx(ctx, func(tx *sql.Tx) error {
		if err := insertRecord(ctx, tx, spotID, "staged"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM staging_records`).Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, db.WithTx(ctx, func(tx *sql.Tx) error {
		return insertRecord(ctx, tx, spotID, "staged")
	}))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM staging_records`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestErrorClassification_Postgres(t *testing.T) {
	assert.True(t, database.IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, database.IsSerializationFailure(&pq.Error{Code: "40001"}))
	assert.True(t, database.IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.False(t, database.IsUniqueViolation(errors.New("other")))
}
