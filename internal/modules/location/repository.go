package location

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines location and spot storage.
type Repository interface {
	CreateLocation(ctx context.Context, l *Location) error
	GetLocationByNumber(ctx context.Context, number int64) (*Location, error)
	ListLocations(ctx context.Context) ([]*Location, error)

	// UpsertSpot inserts the spot or updates the one with the same
	// (location, code), reporting whether a row was inserted.
	UpsertSpot(ctx context.Context, s *Spot) (bool, error)
	GetSpot(ctx context.Context, id uuid.UUID) (*Spot, error)
	// ListSpots returns active spots in board order. A zero locationID
	// means all locations.
	ListSpots(ctx context.Context, locationID uuid.UUID, availableOnly bool) ([]*Spot, error)
}
