package board

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the board read queries.
type Repository interface {
	// ListSpots returns the active spots of a location in board order, each
	// joined with its active staging record.
	ListSpots(ctx context.Context, locationID uuid.UUID) ([]*Spot, error)
	Stats(ctx context.Context) (*Stats, error)
	RecentActivity(ctx context.Context, limit int) ([]*Activity, error)
}
