package purchasing

import (
	"context"

	"github.com/google/uuid"
)

// Service exposes purchase orders to the receiving and staging screens.
type Service interface {
	ListOpenPOs(ctx context.Context) ([]*POSummary, error)
	GetPO(ctx context.Context, id uuid.UUID) (*PODetail, error)
	ListItems(ctx context.Context, poID uuid.UUID) ([]*ItemAvailability, error)
}

// PODetail is a purchase order with its items and receiving events.
type PODetail struct {
	*PurchaseOrder
	Items         []*ItemAvailability `json:"items"`
	ReceivedItems []*ReceivedItem     `json:"received_items"`
}

type service struct {
	repo Repository
}

// NewService creates a new purchasing service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListOpenPOs(ctx context.Context) ([]*POSummary, error) {
	return s.repo.ListOpen(ctx)
}

func (s *service) GetPO(ctx context.Context, id uuid.UUID) (*PODetail, error) {
	po, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItemAvailability(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	received, err := s.repo.ListReceivedItems(ctx, po.Number)
	if err != nil {
		return nil, err
	}
	return &PODetail{PurchaseOrder: po, Items: items, ReceivedItems: received}, nil
}

func (s *service) ListItems(ctx context.Context, poID uuid.UUID) ([]*ItemAvailability, error) {
	if _, err := s.repo.GetByID(ctx, poID); err != nil {
		return nil, err
	}
	return s.repo.ListItemAvailability(ctx, poID)
}
