package staging

import (
	"context"

	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/modules/auth"
)

// Service stages received material and moves staging records through
// their lifecycle. Every mutation requires a principal allowed to write.
type Service interface {
	// Stage occupies a spot (or a custom location) with the requested item
	// quantities. A spot that is already occupied yields Conflict.
	Stage(ctx context.Context, p auth.Principal, req StageRequest) (*Record, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*Record, error)
	ListActive(ctx context.Context) ([]*Record, error)
	// UpdateStatus applies a direct status write: ready, returned or
	// delivered. picked_up is only reachable through ConfirmDelivery.
	UpdateStatus(ctx context.Context, p auth.Principal, id uuid.UUID, status Status) (*Record, error)
	// ConfirmDelivery records the signed pickup and marks the record
	// picked up.
	ConfirmDelivery(ctx context.Context, p auth.Principal, req DeliveryRequest) (*Delivery, error)
	ListDeliveries(ctx context.Context) ([]*DeliverySummary, error)
}
