package board

import (
	"context"
	"strings"

	"github.com/georgemunganga/materialive/internal/modules/location"
)

// DefaultLocationNumber is the location shown when none is requested.
const DefaultLocationNumber = 1

const recentActivityLimit = 10

// Service builds the warehouse board and dashboard read models.
type Service interface {
	Board(ctx context.Context, locationNumber int64) (*Board, error)
	Dashboard(ctx context.Context) (*Dashboard, error)
}

type service struct {
	repo      Repository
	locations location.Repository
}

// NewService creates a new board service.
func NewService(repo Repository, locations location.Repository) Service {
	return &service{repo: repo, locations: locations}
}

func (s *service) Board(ctx context.Context, locationNumber int64) (*Board, error) {
	loc, err := s.locations.GetLocationByNumber(ctx, locationNumber)
	if err != nil {
		return nil, err
	}
	spots, err := s.repo.ListSpots(ctx, loc.ID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[location.Category][]*Spot, len(location.Categories))
	for _, sp := range spots {
		byCategory[sp.Category] = append(byCategory[sp.Category], sp)
	}

	b := &Board{Location: loc, Sections: []*Section{}}
	for _, c := range location.Categories {
		if len(byCategory[c]) == 0 {
			continue
		}
		b.Sections = append(b.Sections, &Section{
			Category:  c,
			Title:     c.Title(),
			ClassName: strings.ReplaceAll(string(c), "_", "-"),
			Spots:     byCategory[c],
		})
	}
	return b, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentActivity(ctx, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []*Activity{}
	}
	return &Dashboard{Stats: *stats, RecentActivity: recent}, nil
}
