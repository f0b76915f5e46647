package purchasing

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the read side of purchasing data. Writes happen
// through the sync reconciler.
type Repository interface {
	ListOpen(ctx context.Context) ([]*POSummary, error)
	GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	GetByNumber(ctx context.Context, number int64) (*PurchaseOrder, error)
	ListItemAvailability(ctx context.Context, poID uuid.UUID) ([]*ItemAvailability, error)
	ListDistributions(ctx context.Context, itemID uuid.UUID) ([]*Distribution, error)
	ListReceivedItems(ctx context.Context, poNumber int64) ([]*ReceivedItem, error)
	GetJob(ctx context.Context, jobNum string) (*Job, error)
}
