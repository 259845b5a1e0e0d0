package service

import (
	"context"

	"tixgate/internal/cache"
	"tixgate/internal/model"
	"tixgate/internal/repository"
)

// CatalogService serves the public show page: the show itself and its ticket
// types with live availability. Availability prefers the Redis gate and falls
// back to the database count when the gate is cold.
type CatalogService interface {
	GetShow(ctx context.Context, showID int) (*model.ShowDetail, error)
}

type CatalogServiceImpl struct {
	showRepo       repository.ShowRepository
	ticketTypeRepo repository.TicketTypeRepository
	gate           cache.InventoryGate
}

func NewCatalogService(
	showRepo repository.ShowRepository,
	ticketTypeRepo repository.TicketTypeRepository,
	gate cache.InventoryGate,
) CatalogService {
	return &CatalogServiceImpl{showRepo: showRepo, ticketTypeRepo: ticketTypeRepo, gate: gate}
}

func (s *CatalogServiceImpl) GetShow(ctx context.Context, showID int) (*model.ShowDetail, error) {
	show, err := s.showRepo.FindByID(ctx, showID)
	if err != nil {
		return nil, err
	}

	types, err := s.ticketTypeRepo.ListByShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	detail := &model.ShowDetail{Show: show}
	for _, t := range types {
		remaining := t.Remaining()
		if stock, err := s.gate.GetStock(ctx, t.ID); err == nil {
			remaining = stock
		}
		detail.TicketTypes = append(detail.TicketTypes, &model.TicketTypeAvailability{
			TicketType: t,
			Remaining:  remaining,
		})
	}

	return detail, nil
}
