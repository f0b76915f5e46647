package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/database"
	"github.com/georgemunganga/materialive/internal/modules/purchasing"
)

const recordSelect = `
	SELECT sr.id, sr.po_id, po.ce_ponum, sr.request_id, sr.job_num, sr.job_name, sr.job_address, sr.multi_job,
	       sr.spot_id, COALESCE(ss.code, ''), COALESCE(ss.name, ''), sr.custom_location,
	       sr.pack_number, sr.item_descriptions, sr.notes, sr.status,
	       sr.staged_by, COALESCE(u.full_name, ''), sr.staged_at, sr.updated_at
	FROM staging_records sr
	LEFT JOIN staging_spots ss ON ss.id = sr.spot_id
	LEFT JOIN users u ON u.id = sr.staged_by
	LEFT JOIN purchase_orders po ON po.id = sr.po_id`

type sqlRepository struct{ db *database.DB }

func NewRepository(db *database.DB) Repository { return &sqlRepository{db: db} }

func (r *sqlRepository) Stage(ctx context.Context, rec *Record) error {
	err := r.db.WithSerializableTx(ctx, func(tx *sql.Tx) error {
		if rec.POID != nil {
			var number int64
			err := tx.QueryRowContext(ctx,
				`SELECT ce_ponum FROM purchase_orders WHERE id = $1`, *rec.POID).Scan(&number)
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("purchase order not found")
			}
			if err != nil {
				return err
			}
			rec.PONumber = &number
		}

		for _, l := range rec.Lines {
			if err := loadLine(ctx, tx, rec.POID, l); err != nil {
				return err
			}
		}
		rec.summarize()

		if rec.SpotID != nil {
			if err := checkSpotFree(ctx, tx, rec); err != nil {
				return err
			}
		}

		if rec.JobNum != "" {
			job := &purchasing.Job{}
			err := tx.QueryRowContext(ctx,
				`SELECT address, city, state, zip FROM jobs WHERE job_num = $1`, rec.JobNum).
				Scan(&job.Address, &job.City, &job.State, &job.Zip)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			rec.JobAddress = job.FullAddress()
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO staging_records
			  (id, po_id, request_id, job_num, job_name, job_address, multi_job, spot_id, custom_location,
			   pack_number, item_descriptions, notes, status, staged_by, staged_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			rec.ID, nullUUID(rec.POID), rec.RequestID, rec.JobNum, rec.JobName, rec.JobAddress, rec.MultiJob,
			nullUUID(rec.SpotID), rec.CustomLocation, rec.PackNumber, rec.ItemDescriptions, rec.Notes,
			rec.Status, nullUUID(rec.StagedBy), rec.StagedAt, rec.UpdatedAt)
		if err != nil {
			return err
		}

		for _, l := range rec.Lines {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO staging_record_items (id, staging_record_id, po_item_id, quantity)
				VALUES ($1,$2,$3,$4)`,
				l.ID, rec.ID, l.ItemID, l.Quantity)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return stageError(rec, err)
}

// stageError reports a staging transaction that lost a race with a concurrent
// writer as Conflict. Only a record bound to a spot can collide on the spot.
func stageError(rec *Record, err error) error {
	if !database.IsUniqueViolation(err) && !database.IsSerializationFailure(err) {
		return err
	}
	if rec.SpotID != nil {
		return apperr.Wrap(apperr.KindConflict, err, "spot is already occupied")
	}
	return apperr.Wrap(apperr.KindConflict, err, "staging conflicted with a concurrent request, retry")
}

// loadLine fills l from its PO item and rejects quantities above what has
// been received and not yet staged.
func loadLine(ctx context.Context, tx *sql.Tx, poID *uuid.UUID, l *Line) error {
	var (
		itemPO   uuid.UUID
		received decimal.Decimal
	)
	err := tx.QueryRowContext(ctx, `
		SELECT i.po_id, i.item_num, i.description, i.received,
		       `+purchasing.FirstDistributionSQL("job_num", "i.id")+`,
		       `+purchasing.FirstDistributionSQL("job_name", "i.id")+`
		FROM po_items i
		WHERE i.id = $1`, l.ItemID).
		Scan(&itemPO, &l.ItemNum, &l.Description, &received, &l.JobNum, &l.JobName)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && poID != nil && itemPO != *poID) {
		return apperr.NotFound("item %s not found on purchase order", l.ItemID)
	}
	if err != nil {
		return err
	}

	staged, err := purchasing.StagedQuantities(ctx, tx, "i.id = $1", l.ItemID)
	if err != nil {
		return err
	}
	available := decimal.Max(received.Sub(staged[l.ItemID]), decimal.Zero)
	if l.Quantity.GreaterThan(available) {
		return apperr.InvalidInput("item %s: quantity %s exceeds available %s",
			displayItem(l), l.Quantity.String(), available.String())
	}
	return nil
}

func checkSpotFree(ctx context.Context, tx *sql.Tx, rec *Record) error {
	var active bool
	err := tx.QueryRowContext(ctx,
		`SELECT code, name, active FROM staging_spots WHERE id = $1`, *rec.SpotID).
		Scan(&rec.SpotCode, &rec.SpotName, &active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return apperr.NotFound("spot not found")
	}
	if err != nil {
		return err
	}

	var occupied int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM staging_records
		WHERE spot_id = $1 AND status IN ('staged', 'ready')`, *rec.SpotID).Scan(&occupied)
	if err != nil {
		return err
	}
	if occupied > 0 {
		return apperr.Conflict("spot %s is already occupied", rec.SpotCode)
	}
	return nil
}

func (r *sqlRepository) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, recordSelect+` WHERE sr.id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.staging_record_id, l.po_item_id, l.quantity, i.item_num, i.description
		FROM staging_record_items l
		JOIN po_items i ON i.id = l.po_item_id
		WHERE l.staging_record_id = $1
		ORDER BY i.item_order, i.ce_itemid`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		l := &Line{}
		if err := rows.Scan(&l.ID, &l.RecordID, &l.ItemID, &l.Quantity, &l.ItemNum, &l.Description); err != nil {
			return nil, err
		}
		rec.Lines = append(rec.Lines, l)
	}
	return rec, rows.Err()
}

func (r *sqlRepository) ListActive(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, recordSelect+`
		WHERE sr.status IN ('staged', 'ready')
		ORDER BY sr.staged_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func (r *sqlRepository) SetStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE staging_records SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, at, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("staging record is no longer %s", from)
	}
	return nil
}

func (r *sqlRepository) ConfirmDelivery(ctx context.Context, d *Delivery) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var status Status
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM staging_records WHERE id = $1`, d.RecordID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("staging record not found")
		}
		if err != nil {
			return err
		}
		if !status.Active() {
			return apperr.Conflict("staging record is already %s", status)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO deliveries
			  (id, staging_record_id, delivery_date, signer_name, signer_initial, signer_last_name,
			   signature_data, notes, delivered_by, attachment_uploaded, attachment_path, signed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			d.ID, d.RecordID, d.DeliveryDate, d.SignerName, d.SignerInitial, d.SignerLastName,
			d.SignatureData, d.Notes, nullUUID(d.DeliveredBy), d.AttachmentUploaded, d.AttachmentPath, d.SignedAt)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE staging_records SET status = $1, updated_at = $2
			WHERE id = $3 AND status IN ('staged', 'ready')`,
			StatusPickedUp, d.SignedAt, d.RecordID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("staging record changed during delivery")
		}
		return nil
	})
	if database.IsUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, err, "staging record already has a delivery")
	}
	return err
}

func (r *sqlRepository) SetDeliveryAttachment(ctx context.Context, id uuid.UUID, path string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE deliveries SET attachment_uploaded = $1, attachment_path = $2 WHERE id = $3`,
		true, path, id)
	return err
}

func (r *sqlRepository) ListDeliveries(ctx context.Context, limit int) ([]*DeliverySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.staging_record_id, d.delivery_date, d.signer_name, d.signer_initial, d.signer_last_name,
		       d.notes, d.delivered_by, d.attachment_uploaded, d.attachment_path, d.signed_at,
		       sr.request_id, sr.job_num, sr.job_name, sr.pack_number, sr.item_descriptions,
		       COALESCE(u.full_name, '')
		FROM deliveries d
		JOIN staging_records sr ON sr.id = d.staging_record_id
		LEFT JOIN users u ON u.id = d.delivered_by
		ORDER BY d.signed_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*DeliverySummary
	for rows.Next() {
		s := &DeliverySummary{}
		var (
			deliveredBy uuid.NullUUID
			path        sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.RecordID, &s.DeliveryDate, &s.SignerName, &s.SignerInitial, &s.SignerLastName,
			&s.Notes, &deliveredBy, &s.AttachmentUploaded, &path, &s.SignedAt,
			&s.RequestID, &s.JobNum, &s.JobName, &s.PackNumber, &s.ItemDescriptions, &s.DeliveredByName); err != nil {
			return nil, err
		}
		if deliveredBy.Valid {
			s.DeliveredBy = &deliveredBy.UUID
		}
		if path.Valid {
			s.AttachmentPath = &path.String
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	rec := &Record{}
	var (
		poID, spotID, stagedBy uuid.NullUUID
		poNumber               sql.NullInt64
		custom                 sql.NullString
	)
	err := row.Scan(&rec.ID, &poID, &poNumber, &rec.RequestID, &rec.JobNum, &rec.JobName, &rec.JobAddress, &rec.MultiJob,
		&spotID, &rec.SpotCode, &rec.SpotName, &custom,
		&rec.PackNumber, &rec.ItemDescriptions, &rec.Notes, &rec.Status,
		&stagedBy, &rec.StagedByName, &rec.StagedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("staging record not found")
	}
	if err != nil {
		return nil, err
	}
	if poID.Valid {
		rec.POID = &poID.UUID
	}
	if poNumber.Valid {
		rec.PONumber = &poNumber.Int64
	}
	if spotID.Valid {
		rec.SpotID = &spotID.UUID
	}
	if custom.Valid {
		rec.CustomLocation = &custom.String
	}
	if stagedBy.Valid {
		rec.StagedBy = &stagedBy.UUID
	}
	return rec, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func displayItem(l *Line) string {
	if l.ItemNum != "" {
		return l.ItemNum
	}
	return fmt.Sprint(l.ItemID)
}
