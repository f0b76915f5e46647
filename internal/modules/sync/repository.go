package sync

import (
	"context"

	"github.com/georgemunganga/materialive/internal/modules/location"
	"github.com/georgemunganga/materialive/internal/modules/purchasing"
)

// Repository writes ERP data. Every upsert runs in its own transaction.
type Repository interface {
	// UpsertPurchaseOrder reconciles the PO, its items and distributions,
	// and links received items that arrived before the PO.
	UpsertPurchaseOrder(ctx context.Context, tree *POTree) (*POOutcome, error)
	// UpsertReceivedItem resolves ri.POID from ri.PONumber (nil when the
	// number is absent or the PO is not known yet) and upserts by serial number.
	UpsertReceivedItem(ctx context.Context, ri *purchasing.ReceivedItem) (bool, error)
	UpsertLocation(ctx context.Context, l *location.Location) (bool, error)
	UpsertJob(ctx context.Context, j *purchasing.Job) (bool, error)

	AppendLog(ctx context.Context, e *LogEntry) error
	LastLog(ctx context.Context, kind Kind) (*LogEntry, error)
	Counts(ctx context.Context) (*Counts, error)
}
