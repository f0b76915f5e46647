package staging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for staging records and deliveries.
type Repository interface {
	// Stage validates rec.Lines against the stored items, checks that the
	// spot is free and inserts the record and its lines, all in one
	// serializable transaction. It fills the line details and the record
	// snapshot before inserting.
	Stage(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListActive(ctx context.Context) ([]*Record, error)
	// SetStatus moves a record from one status to another and fails with
	// Conflict if the record is no longer in from.
	SetStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) error

	// ConfirmDelivery inserts d and marks its record picked up in one
	// transaction.
	ConfirmDelivery(ctx context.Context, d *Delivery) error
	SetDeliveryAttachment(ctx context.Context, id uuid.UUID, path string) error
	ListDeliveries(ctx context.Context, limit int) ([]*DeliverySummary, error)
}
