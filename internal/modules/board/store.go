package board

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/database"
	"github.com/georgemunganga/materialive/internal/modules/location"
)

type sqlRepository struct{ db *database.DB }

func NewRepository(db *database.DB) Repository { return &sqlRepository{db: db} }

func (r *sqlRepository) ListSpots(ctx context.Context, locationID uuid.UUID) ([]*Spot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.location_id, s.code, s.name, s.category, s.grid_row, s.grid_col, s.active,
		       sr.id, po.ce_ponum, sr.request_id, sr.job_num, sr.job_name, sr.job_address,
		       sr.pack_number, sr.item_descriptions, sr.status, sr.staged_at
		FROM staging_spots s
		LEFT JOIN staging_records sr ON sr.spot_id = s.id AND sr.status IN ('staged', 'ready')
		LEFT JOIN purchase_orders po ON po.id = sr.po_id
		WHERE s.location_id = $1 AND s.active = $2
		ORDER BY `+location.CategoryOrderSQL("s.category")+`, s.grid_row, s.grid_col`,
		locationID, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []*Spot
	for rows.Next() {
		s := &Spot{}
		var (
			stagingID                              uuid.NullUUID
			poNumber                               sql.NullInt64
			requestID, jobNum, jobName, jobAddress sql.NullString
			packNumber, descriptions, status       sql.NullString
			stagedAt                               sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.LocationID, &s.Code, &s.Name, &s.Category, &s.GridRow, &s.GridCol, &s.Active,
			&stagingID, &poNumber, &requestID, &jobNum, &jobName, &jobAddress,
			&packNumber, &descriptions, &status, &stagedAt); err != nil {
			return nil, err
		}
		if stagingID.Valid {
			s.Occupant = &Occupant{
				StagingID:        stagingID.UUID,
				RequestID:        requestID.String,
				JobNum:           jobNum.String,
				JobName:          jobName.String,
				JobAddress:       jobAddress.String,
				PackNumber:       packNumber.String,
				ItemDescriptions: descriptions.String,
				Status:           status.String,
				StagedAt:         stagedAt.Time,
			}
			if poNumber.Valid {
				s.Occupant.PONumber = &poNumber.Int64
			}
		}
		spots = append(spots, s)
	}
	return spots, rows.Err()
}

func (r *sqlRepository) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM staging_records WHERE status = 'staged'),
		  (SELECT COUNT(*) FROM staging_records WHERE status = 'ready'),
		  (SELECT COUNT(*) FROM staging_records WHERE status IN ('staged', 'ready')),
		  (SELECT COUNT(*) FROM purchase_orders WHERE status IN ('open', 'partial'))`).
		Scan(&st.TotalStaged, &st.ReadyForPickup, &st.PendingDelivery, &st.OpenPOs)
	return st, err
}

func (r *sqlRepository) RecentActivity(ctx context.Context, limit int) ([]*Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sr.staged_at, sr.status, sr.request_id,
		       COALESCE(ss.code, sr.custom_location, '-'),
		       COALESCE(u.username, 'System')
		FROM staging_records sr
		LEFT JOIN staging_spots ss ON ss.id = sr.spot_id
		LEFT JOIN users u ON u.id = sr.staged_by
		ORDER BY sr.staged_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Activity
	for rows.Next() {
		a := &Activity{}
		if err := rows.Scan(&a.Time, &a.Status, &a.RequestID, &a.Location, &a.User); err != nil {
			return nil, err
		}
		a.Action = actionLabel(a.Status)
		list = append(list, a)
	}
	return list, rows.Err()
}
