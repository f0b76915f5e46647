package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/database"
	"github.com/georgemunganga/materialive/internal/modules/location"
	"github.com/georgemunganga/materialive/internal/modules/purchasing"
)

type sqlRepository struct{ db *database.DB }

func NewRepository(db *database.DB) Repository { return &sqlRepository{db: db} }

func (r *sqlRepository) UpsertPurchaseOrder(ctx context.Context, tree *POTree) (*POOutcome, error) {
	out := &POOutcome{}
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		*out = POOutcome{}
		po := &tree.PO

		err := tx.QueryRowContext(ctx,
			`SELECT id FROM purchase_orders WHERE ce_ponum = $1`, po.Number).Scan(&po.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			po.ID = uuid.New()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO purchase_orders
				  (id, ce_ponum, vendor_num, vendor_name, po_date, blurb, request_id, ce_attachid, status, synced_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				po.ID, po.Number, po.VendorNum, po.VendorName, po.PODate, po.Blurb,
				po.RequestID, po.AttachID, po.Status, po.SyncedAt)
			if err != nil {
				return fmt.Errorf("insert purchase order %d: %w", po.Number, err)
			}
			out.Inserted = true
		case err != nil:
			return fmt.Errorf("lookup purchase order %d: %w", po.Number, err)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE purchase_orders
				SET vendor_num=$1, vendor_name=$2, po_date=$3, blurb=$4, request_id=$5,
				    ce_attachid=$6, status=$7, synced_at=$8
				WHERE id=$9`,
				po.VendorNum, po.VendorName, po.PODate, po.Blurb, po.RequestID,
				po.AttachID, po.Status, po.SyncedAt, po.ID)
			if err != nil {
				return fmt.Errorf("update purchase order %d: %w", po.Number, err)
			}
		}

		for i := range tree.Items {
			if err := upsertItem(ctx, tx, po, &tree.Items[i], out); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE received_items SET po_id = $1 WHERE ce_ponum = $2 AND po_id IS NULL`,
			po.ID, po.Number)
		if err != nil {
			return fmt.Errorf("link received items of po %d: %w", po.Number, err)
		}
		n, _ := res.RowsAffected()
		out.ReceivedItemsLinked = int(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// upsertItem keys items on (po, external item id). Distributions of a new
// item are inserted as given; those of an existing item are matched on
// (item, external item id, occurrence) and inserted when no match exists.
func upsertItem(ctx context.Context, tx *sql.Tx, po *purchasing.PurchaseOrder, it *ItemTree, out *POOutcome) error {
	item := &it.Item
	item.POID = po.ID

	err := tx.QueryRowContext(ctx,
		`SELECT id FROM po_items WHERE po_id = $1 AND ce_itemid = $2`, po.ID, item.ExternalID).Scan(&item.ID)
	if errors.Is(err, sql.ErrNoRows) {
		item.ID = uuid.New()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO po_items
			  (id, po_id, ce_itemid, item_order, item_num, description, vendor_item_num,
			   outstanding, received, unposted, synced_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			item.ID, item.POID, item.ExternalID, item.Order, item.ItemNum, item.Description,
			item.VendorItemNum, item.Outstanding, item.Received, item.Unposted, item.SyncedAt)
		if err != nil {
			return fmt.Errorf("insert item %d of po %d: %w", item.ExternalID, po.Number, err)
		}
		out.ItemsInserted++

		for i := range it.Distributions {
			if err := insertDistribution(ctx, tx, item.ID, &it.Distributions[i]); err != nil {
				return err
			}
			out.DistributionsInserted++
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup item %d of po %d: %w", item.ExternalID, po.Number, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE po_items
		SET item_order=$1, item_num=$2, description=$3, vendor_item_num=$4,
		    outstanding=$5, received=$6, unposted=$7, synced_at=$8
		WHERE id=$9`,
		item.Order, item.ItemNum, item.Description, item.VendorItemNum,
		item.Outstanding, item.Received, item.Unposted, item.SyncedAt, item.ID)
	if err != nil {
		return fmt.Errorf("update item %d of po %d: %w", item.ExternalID, po.Number, err)
	}
	out.ItemsUpdated++

	for i := range it.Distributions {
		d := &it.Distributions[i]
		res, err := tx.ExecContext(ctx, `
			UPDATE po_distributions
			SET dist_order=$1, job_num=$2, job_name=$3, phase_num=$4, phase_name=$5,
			    cat_num=$6, cat_name=$7, outstanding=$8, received=$9, unposted=$10
			WHERE po_item_id=$11 AND ce_itemid=$12 AND occurrence=$13`,
			d.Order, d.JobNum, d.JobName, d.PhaseNum, d.PhaseName,
			d.CatNum, d.CatName, d.Outstanding, d.Received, d.Unposted,
			item.ID, d.ExternalID, d.Occurrence)
		if err != nil {
			return fmt.Errorf("update distribution of item %d: %w", item.ExternalID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			out.DistributionsUpdated++
			continue
		}
		if err := insertDistribution(ctx, tx, item.ID, d); err != nil {
			return err
		}
		out.DistributionsInserted++
	}
	return nil
}

func insertDistribution(ctx context.Context, tx *sql.Tx, itemID uuid.UUID, d *purchasing.Distribution) error {
	d.ID = uuid.New()
	d.ItemID = itemID
	_, err := tx.ExecContext(ctx, `
		INSERT INTO po_distributions
		  (id, po_item_id, ce_itemid, occurrence, dist_order, job_num, job_name,
		   phase_num, phase_name, cat_num, cat_name, outstanding, received, unposted)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		d.ID, d.ItemID, d.ExternalID, d.Occurrence, d.Order, d.JobNum, d.JobName,
		d.PhaseNum, d.PhaseName, d.CatNum, d.CatName, d.Outstanding, d.Received, d.Unposted)
	if err != nil {
		return fmt.Errorf("insert distribution: %w", err)
	}
	return nil
}

func (r *sqlRepository) UpsertReceivedItem(ctx context.Context, ri *purchasing.ReceivedItem) (bool, error) {
	var inserted bool
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var poID uuid.NullUUID
		if ri.PONumber != nil {
			err := tx.QueryRowContext(ctx,
				`SELECT id FROM purchase_orders WHERE ce_ponum = $1`, *ri.PONumber).Scan(&poID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("resolve po %d: %w", *ri.PONumber, err)
			}
		}
		ri.POID = nil
		if poID.Valid {
			ri.POID = &poID.UUID
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE received_items
			SET po_id=$1, ce_ponum=$2, item_num=$3, job_num=$4, received_date=$5, quantity=$6, synced_at=$7
			WHERE ce_serialnum=$8`,
			poID, ri.PONumber, ri.ItemNum, ri.JobNum, ri.ReceivedDate, ri.Quantity, ri.SyncedAt, ri.SerialNum)
		if err != nil {
			return fmt.Errorf("update received item %d: %w", ri.SerialNum, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		ri.ID = uuid.New()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO received_items
			  (id, ce_serialnum, po_id, ce_ponum, item_num, job_num, received_date, quantity, synced_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			ri.ID, ri.SerialNum, poID, ri.PONumber, ri.ItemNum, ri.JobNum, ri.ReceivedDate, ri.Quantity, ri.SyncedAt)
		if err != nil {
			return fmt.Errorf("insert received item %d: %w", ri.SerialNum, err)
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *sqlRepository) UpsertLocation(ctx context.Context, l *location.Location) (bool, error) {
	var inserted bool
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE locations SET name=$1, location_type=$2, active=$3, synced_at=$4
			WHERE ce_locationnum=$5`,
			l.Name, l.Type, l.Active, l.SyncedAt, l.Number)
		if err != nil {
			return fmt.Errorf("update location %d: %w", *l.Number, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		l.ID = uuid.New()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO locations (id, ce_locationnum, name, location_type, active, synced_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			l.ID, l.Number, l.Name, l.Type, l.Active, l.SyncedAt)
		if err != nil {
			return fmt.Errorf("insert location %d: %w", *l.Number, err)
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *sqlRepository) UpsertJob(ctx context.Context, j *purchasing.Job) (bool, error) {
	var inserted bool
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE jobs
			SET name=$1, address=$2, city=$3, state=$4, zip=$5, status=$6, ce_attachid=$7, synced_at=$8
			WHERE job_num=$9`,
			j.Name, j.Address, j.City, j.State, j.Zip, j.Status, j.AttachID, j.SyncedAt, j.JobNum)
		if err != nil {
			return fmt.Errorf("update job %s: %w", j.JobNum, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		j.ID = uuid.New()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO jobs (id, job_num, name, address, city, state, zip, status, ce_attachid, synced_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			j.ID, j.JobNum, j.Name, j.Address, j.City, j.State, j.Zip, j.Status, j.AttachID, j.SyncedAt)
		if err != nil {
			return fmt.Errorf("insert job %s: %w", j.JobNum, err)
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *sqlRepository) AppendLog(ctx context.Context, e *LogEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_log
		  (id, sync_type, status, records_synced, inserted, updated, skipped, error_message, started_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.Kind, e.Status, e.RecordsSynced, e.Inserted, e.Updated, e.Skipped,
		e.ErrorMessage, e.StartedAt, e.CompletedAt)
	return err
}

func (r *sqlRepository) LastLog(ctx context.Context, kind Kind) (*LogEntry, error) {
	e := &LogEntry{}
	var startedAt, completedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sync_type, status, records_synced, inserted, updated, skipped, error_message, started_at, completed_at
		FROM sync_log
		WHERE sync_type = $1
		ORDER BY completed_at DESC
		LIMIT 1`, kind).
		Scan(&e.ID, &e.Kind, &e.Status, &e.RecordsSynced, &e.Inserted, &e.Updated, &e.Skipped,
			&e.ErrorMessage, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("no %s sync recorded", kind)
	}
	if err != nil {
		return nil, err
	}
	e.StartedAt, e.CompletedAt = &startedAt, &completedAt
	return e, nil
}

func (r *sqlRepository) Counts(ctx context.Context) (*Counts, error) {
	c := &Counts{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM purchase_orders),
		  (SELECT COUNT(*) FROM po_items),
		  (SELECT COUNT(*) FROM received_items),
		  (SELECT COUNT(*) FROM locations),
		  (SELECT COUNT(*) FROM jobs)`).
		Scan(&c.PurchaseOrders, &c.POItems, &c.ReceivedItems, &c.Locations, &c.Jobs)
	return c, err
}
