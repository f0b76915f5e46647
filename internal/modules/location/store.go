package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/database"
)

type sqlRepository struct{ db *database.DB }

func NewRepository(db *database.DB) Repository { return &sqlRepository{db: db} }

func (r *sqlRepository) CreateLocation(ctx context.Context, l *Location) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO locations (id, ce_locationnum, name, location_type, active, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.Number, l.Name, l.Type, l.Active, l.SyncedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("location %s already exists", l.Name)
	}
	return err
}

func (r *sqlRepository) GetLocationByNumber(ctx context.Context, number int64) (*Location, error) {
	return scanLocation(r.db.QueryRowContext(ctx, `
		SELECT id, ce_locationnum, name, location_type, active, synced_at
		FROM locations WHERE ce_locationnum = $1`, number))
}

func (r *sqlRepository) ListLocations(ctx context.Context) ([]*Location, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ce_locationnum, name, location_type, active, synced_at
		FROM locations WHERE active = $1 ORDER BY name`, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []*Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (r *sqlRepository) UpsertSpot(ctx context.Context, s *Spot) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE staging_spots
		SET name = $1, category = $2, grid_row = $3, grid_col = $4, active = $5
		WHERE location_id = $6 AND code = $7`,
		s.Name, s.Category, s.GridRow, s.GridCol, s.Active, s.LocationID, s.Code)
	if err != nil {
		return false, fmt.Errorf("update spot %s: %w", s.Code, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO staging_spots (id, location_id, code, name, category, grid_row, grid_col, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.LocationID, s.Code, s.Name, s.Category, s.GridRow, s.GridCol, s.Active)
	if err != nil {
		return false, fmt.Errorf("insert spot %s: %w", s.Code, err)
	}
	return true, nil
}

func (r *sqlRepository) GetSpot(ctx context.Context, id uuid.UUID) (*Spot, error) {
	return scanSpot(r.db.QueryRowContext(ctx, `
		SELECT id, location_id, code, name, category, grid_row, grid_col, active
		FROM staging_spots WHERE id = $1`, id))
}

func (r *sqlRepository) ListSpots(ctx context.Context, locationID uuid.UUID, availableOnly bool) ([]*Spot, error) {
	query := `
		SELECT s.id, s.location_id, s.code, s.name, s.category, s.grid_row, s.grid_col, s.active
		FROM staging_spots s
		WHERE s.active = $1`
	args := []interface{}{true}
	if locationID != uuid.Nil {
		query += ` AND s.location_id = $2`
		args = append(args, locationID)
	}
	if availableOnly {
		query += ` AND NOT EXISTS (
			SELECT 1 FROM staging_records r
			WHERE r.spot_id = s.id AND r.status IN ('staged', 'ready'))`
	}
	query += ` ORDER BY ` + CategoryOrderSQL("s.category") + `, s.grid_row, s.grid_col`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []*Spot
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, s)
	}
	return spots, rows.Err()
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLocation(row rowScanner) (*Location, error) {
	l := &Location{}
	var number sql.NullInt64
	var syncedAt sql.NullTime
	err := row.Scan(&l.ID, &number, &l.Name, &l.Type, &l.Active, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("location not found")
	}
	if err != nil {
		return nil, err
	}
	if number.Valid {
		l.Number = &number.Int64
	}
	if syncedAt.Valid {
		l.SyncedAt = &syncedAt.Time
	}
	return l, nil
}

func scanSpot(row rowScanner) (*Spot, error) {
	s := &Spot{}
	err := row.Scan(&s.ID, &s.LocationID, &s.Code, &s.Name, &s.Category, &s.GridRow, &s.GridCol, &s.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("spot not found")
	}
	return s, err
}
