package location

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/materialive/internal/apperr"
)

// Service defines location and spot business logic.
type Service interface {
	// Seed creates the layout's locations and spots, updating spots that
	// already exist. It is safe to run repeatedly.
	Seed(ctx context.Context, layout *Layout) (*SeedResult, error)
	ListLocations(ctx context.Context) ([]*Location, error)
	ListSpots(ctx context.Context, locationID uuid.UUID, availableOnly bool) ([]*Spot, error)
	GetSpot(ctx context.Context, id uuid.UUID) (*Spot, error)
}

// SeedResult counts what Seed changed.
type SeedResult struct {
	LocationsCreated int `json:"locations_created"`
	SpotsInserted    int `json:"spots_inserted"`
	SpotsUpdated     int `json:"spots_updated"`
}

type service struct {
	repo Repository
	log  *zap.Logger
}

// NewService creates a new location service.
func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) Seed(ctx context.Context, layout *Layout) (*SeedResult, error) {
	res := &SeedResult{}
	for _, ll := range layout.Locations {
		loc, err := s.repo.GetLocationByNumber(ctx, ll.Number)
		if apperr.Is(err, apperr.KindNotFound) {
			number := ll.Number
			loc = &Location{
				ID:     uuid.New(),
				Number: &number,
				Name:   ll.Name,
				Type:   WarehouseLocationType,
				Active: true,
			}
			if err := s.repo.CreateLocation(ctx, loc); err != nil {
				return nil, fmt.Errorf("create location %s: %w", ll.Name, err)
			}
			res.LocationsCreated++
		} else if err != nil {
			return nil, err
		}

		for _, spot := range ll.Spots() {
			spot.LocationID = loc.ID
			inserted, err := s.repo.UpsertSpot(ctx, spot)
			if err != nil {
				return nil, err
			}
			if inserted {
				res.SpotsInserted++
			} else {
				res.SpotsUpdated++
			}
		}
	}

	s.log.Info("spot layout seeded",
		zap.Int("locations_created", res.LocationsCreated),
		zap.Int("spots_inserted", res.SpotsInserted),
		zap.Int("spots_updated", res.SpotsUpdated))
	return res, nil
}

func (s *service) ListLocations(ctx context.Context) ([]*Location, error) {
	return s.repo.ListLocations(ctx)
}

func (s *service) ListSpots(ctx context.Context, locationID uuid.UUID, availableOnly bool) ([]*Spot, error) {
	return s.repo.ListSpots(ctx, locationID, availableOnly)
}

func (s *service) GetSpot(ctx context.Context, id uuid.UUID) (*Spot, error) {
	return s.repo.GetSpot(ctx, id)
}
