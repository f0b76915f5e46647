package purchasing

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/database"
)

// StagedQuantities sums, per item, the quantity committed to staging records
// that have not been returned. cond filters po_items aliased i and takes the
// single argument arg. Quantities are added as decimals so fractional lines
// stay exact on both dialects.
func StagedQuantities(ctx context.Context, q database.Querier, cond string, arg any) (map[uuid.UUID]decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT l.po_item_id, l.quantity
		FROM staging_record_items l
		JOIN staging_records sr ON sr.id = l.staging_record_id
		JOIN po_items i ON i.id = l.po_item_id
		WHERE `+cond+` AND sr.status <> 'returned'`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	staged := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var (
			itemID uuid.UUID
			qty    decimal.Decimal
		)
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, err
		}
		staged[itemID] = staged[itemID].Add(qty)
	}
	return staged, rows.Err()
}

// FirstDistributionSQL selects column from the first distribution of itemColumn.
func FirstDistributionSQL(column, itemColumn string) string {
	return `COALESCE((
		SELECT d.` + column + ` FROM po_distributions d
		WHERE d.po_item_id = ` + itemColumn + `
		ORDER BY d.dist_order LIMIT 1), '')`
}

const poColumns = `id, ce_ponum, vendor_num, vendor_name, po_date, blurb, request_id, ce_attachid, status, synced_at`

type sqlRepository struct{ db *database.DB }

func NewRepository(db *database.DB) Repository { return &sqlRepository{db: db} }

func (r *sqlRepository) ListOpen(ctx context.Context) ([]*POSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+poColumns+`,
		       (SELECT COUNT(*) FROM po_items WHERE po_id = purchase_orders.id) AS items_count
		FROM purchase_orders
		WHERE status IN ('open', 'partial')
		ORDER BY po_date DESC, ce_ponum DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*POSummary
	for rows.Next() {
		s := &POSummary{}
		var attachID sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Number, &s.VendorNum, &s.VendorName, &s.PODate, &s.Blurb,
			&s.RequestID, &attachID, &s.Status, &s.SyncedAt, &s.ItemsCount); err != nil {
			return nil, err
		}
		if attachID.Valid {
			s.AttachID = &attachID.Int64
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *sqlRepository) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	return ScanPurchaseOrder(r.db.QueryRowContext(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
}

func (r *sqlRepository) GetByNumber(ctx context.Context, number int64) (*PurchaseOrder, error) {
	return ScanPurchaseOrder(r.db.QueryRowContext(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE ce_ponum = $1`, number))
}

func (r *sqlRepository) ListItemAvailability(ctx context.Context, poID uuid.UUID) ([]*ItemAvailability, error) {
	staged, err := StagedQuantities(ctx, r.db, "i.po_id = $1", poID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.po_id, i.ce_itemid, i.item_order, i.item_num, i.description, i.vendor_item_num,
		       i.outstanding, i.received, i.unposted, i.synced_at,
		       `+FirstDistributionSQL("job_num", "i.id")+`,
		       `+FirstDistributionSQL("job_name", "i.id")+`
		FROM po_items i
		WHERE i.po_id = $1
		ORDER BY i.item_order, i.ce_itemid`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ItemAvailability
	for rows.Next() {
		a := &ItemAvailability{}
		if err := rows.Scan(&a.ID, &a.POID, &a.ExternalID, &a.Order, &a.ItemNum, &a.Description,
			&a.VendorItemNum, &a.Outstanding, &a.Received, &a.Unposted, &a.SyncedAt,
			&a.JobNum, &a.JobName); err != nil {
			return nil, err
		}
		a.Staged = staged[a.ID]
		a.Available = decimal.Max(a.Received.Sub(a.Staged), decimal.Zero)
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *sqlRepository) ListDistributions(ctx context.Context, itemID uuid.UUID) ([]*Distribution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, po_item_id, ce_itemid, occurrence, dist_order, job_num, job_name,
		       phase_num, phase_name, cat_num, cat_name, outstanding, received, unposted
		FROM po_distributions
		WHERE po_item_id = $1
		ORDER BY dist_order`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dists []*Distribution
	for rows.Next() {
		d := &Distribution{}
		if err := rows.Scan(&d.ID, &d.ItemID, &d.ExternalID, &d.Occurrence, &d.Order, &d.JobNum, &d.JobName,
			&d.PhaseNum, &d.PhaseName, &d.CatNum, &d.CatName, &d.Outstanding, &d.Received, &d.Unposted); err != nil {
			return nil, err
		}
		dists = append(dists, d)
	}
	return dists, rows.Err()
}

func (r *sqlRepository) ListReceivedItems(ctx context.Context, poNumber int64) ([]*ReceivedItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ce_serialnum, po_id, ce_ponum, item_num, job_num, received_date, quantity, synced_at
		FROM received_items
		WHERE ce_ponum = $1
		ORDER BY received_date, ce_serialnum`, poNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*ReceivedItem
	for rows.Next() {
		ri, err := ScanReceivedItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, ri)
	}
	return list, rows.Err()
}

func (r *sqlRepository) GetJob(ctx context.Context, jobNum string) (*Job, error) {
	j := &Job{}
	var attachID sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, job_num, name, address, city, state, zip, status, ce_attachid, synced_at
		FROM jobs WHERE job_num = $1`, jobNum).
		Scan(&j.ID, &j.JobNum, &j.Name, &j.Address, &j.City, &j.State, &j.Zip, &j.Status, &attachID, &j.SyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("job %s not found", jobNum)
	}
	if err != nil {
		return nil, err
	}
	if attachID.Valid {
		j.AttachID = &attachID.Int64
	}
	return j, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// ScanPurchaseOrder scans the columns listed in poColumns.
func ScanPurchaseOrder(row rowScanner) (*PurchaseOrder, error) {
	po := &PurchaseOrder{}
	var attachID sql.NullInt64
	err := row.Scan(&po.ID, &po.Number, &po.VendorNum, &po.VendorName, &po.PODate, &po.Blurb,
		&po.RequestID, &attachID, &po.Status, &po.SyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("purchase order not found")
	}
	if err != nil {
		return nil, err
	}
	if attachID.Valid {
		po.AttachID = &attachID.Int64
	}
	return po, nil
}

// ScanReceivedItem scans a received_items row.
func ScanReceivedItem(row rowScanner) (*ReceivedItem, error) {
	ri := &ReceivedItem{}
	var (
		poID     uuid.NullUUID
		poNumber sql.NullInt64
	)
	err := row.Scan(&ri.ID, &ri.SerialNum, &poID, &poNumber, &ri.ItemNum, &ri.JobNum,
		&ri.ReceivedDate, &ri.Quantity, &ri.SyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("received item not found")
	}
	if err != nil {
		return nil, err
	}
	if poID.Valid {
		ri.POID = &poID.UUID
	}
	if poNumber.Valid {
		ri.PONumber = &poNumber.Int64
	}
	return ri, nil
}
