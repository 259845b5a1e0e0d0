package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tixgate/internal/cache"
	"tixgate/internal/database"
	"tixgate/internal/model"
	"tixgate/internal/monitoring"
	"tixgate/internal/repository"
	apperrors "tixgate/pkg/app_errors"
	"tixgate/pkg/logger"
)

// ReservationService atomically reserves inventory and creates time-bounded
// pending orders. The capacity invariant is carried entirely by the bounded
// quantity_sold updates inside the transaction; concurrent reservations can
// never oversell a ticket type, only fail.
type ReservationService interface {
	Reserve(ctx context.Context, buyerID int, buyerWallet string, req model.ReserveRequest) (*model.Order, error)
	// GetOrder returns the buyer's order after applying the lazy expiry
	// check, so a stale pending order reads as cancelled.
	GetOrder(ctx context.Context, buyerID int, orderID int) (*model.Order, error)
}

type ReservationServiceImpl struct {
	starter        database.TxStarter
	showRepo       repository.ShowRepository
	ticketTypeRepo repository.TicketTypeRepository
	orderRepo      repository.OrderRepository
	gate           cache.InventoryGate
	expiry         ExpiryService
	ttl            time.Duration
	retryCfg       database.RetryConfig
}

func NewReservationService(
	starter database.TxStarter,
	showRepo repository.ShowRepository,
	ticketTypeRepo repository.TicketTypeRepository,
	orderRepo repository.OrderRepository,
	gate cache.InventoryGate,
	expiry ExpiryService,
	ttl time.Duration,
	retryCfg database.RetryConfig,
) ReservationService {
	return &ReservationServiceImpl{
		starter:        starter,
		showRepo:       showRepo,
		ticketTypeRepo: ticketTypeRepo,
		orderRepo:      orderRepo,
		gate:           gate,
		expiry:         expiry,
		ttl:            ttl,
		retryCfg:       retryCfg,
	}
}

func (s *ReservationServiceImpl) Reserve(ctx context.Context, buyerID int, buyerWallet string, req model.ReserveRequest) (*model.Order, error) {
	start := time.Now()
	order, err := s.reserve(ctx, buyerID, buyerWallet, req)
	monitoring.ObserveReservation(reservationResult(err), start)
	return order, err
}

func reservationResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		return "sold_out"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	default:
		return "rejected"
	}
}

func (s *ReservationServiceImpl) reserve(ctx context.Context, buyerID int, buyerWallet string, req model.ReserveRequest) (*model.Order, error) {
	items, err := normalizeItems(req.Items)
	if err != nil {
		return nil, err
	}

	show, err := s.showRepo.FindByID(ctx, req.ShowID)
	if err != nil {
		return nil, err
	}
	if show.HasStarted(time.Now().UTC()) {
		return nil, apperrors.ErrShowStarted
	}

	// A buyer holds at most one live reservation: cancel any pending order
	// created within the current TTL window before taking new inventory.
	if err := s.cancelPriorPending(ctx, buyerID); err != nil {
		return nil, err
	}

	// Redis fast path: fail sold-out and over-limit requests before the
	// database transaction. Advisory only; the transaction re-checks.
	reserved, err := s.reserveGate(ctx, buyerID, items)
	if err != nil {
		s.releaseGate(ctx, buyerID, reserved)
		return nil, err
	}

	order, err := s.reserveTx(ctx, buyerID, buyerWallet, show.ID, items)
	if err != nil {
		s.releaseGate(ctx, buyerID, items)
		return nil, err
	}

	return order, nil
}

// normalizeItems validates the request shape and returns the items sorted by
// ticket type id. Every path that touches multiple types walks them in this
// order so concurrent reservations cannot deadlock each other.
func normalizeItems(items []model.ReserveItem) ([]model.ReserveItem, error) {
	if len(items) == 0 {
		return nil, apperrors.ErrInvalidInput
	}

	seen := make(map[int]bool, len(items))
	out := make([]model.ReserveItem, 0, len(items))
	for _, item := range items {
		if item.TicketTypeID <= 0 || item.Quantity <= 0 {
			return nil, apperrors.ErrInvalidInput
		}
		if seen[item.TicketTypeID] {
			return nil, apperrors.ErrInvalidInput
		}
		seen[item.TicketTypeID] = true
		out = append(out, item)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TicketTypeID < out[j].TicketTypeID })
	return out, nil
}

func (s *ReservationServiceImpl) cancelPriorPending(ctx context.Context, buyerID int) error {
	since := time.Now().UTC().Add(-s.ttl)
	pending, err := s.orderRepo.FindPendingByBuyer(ctx, buyerID, since)
	if err != nil {
		return err
	}

	for _, order := range pending {
		if err := s.expiry.CancelPending(ctx, order.ID); err != nil {
			return err
		}
		logger.WithComponent("reservation").Info("cancelled buyer's prior pending order",
			zap.Int("buyer_id", buyerID), zap.Int("order_id", order.ID))
	}
	return nil
}

// reserveGate walks the items through the Redis gate, warming a cold type
// from the database once before giving up on it. Returns the prefix of items
// that were applied, so the caller can roll back exactly those on failure.
func (s *ReservationServiceImpl) reserveGate(ctx context.Context, buyerID int, items []model.ReserveItem) ([]model.ReserveItem, error) {
	var applied []model.ReserveItem
	for _, item := range items {
		err := s.gate.Reserve(ctx, item.TicketTypeID, item.Quantity, buyerID)
		if errors.Is(err, cache.ErrNotWarmed) {
			ticketType, findErr := s.ticketTypeRepo.FindByID(ctx, item.TicketTypeID)
			if findErr != nil {
				return applied, findErr
			}
			if warmErr := s.gate.Warm(ctx, ticketType.ID, ticketType.Remaining(), ticketType.MaxPurchase); warmErr != nil {
				return applied, warmErr
			}
			err = s.gate.Reserve(ctx, item.TicketTypeID, item.Quantity, buyerID)
		}
		if err != nil {
			return applied, err
		}
		applied = append(applied, item)
	}
	return applied, nil
}

func (s *ReservationServiceImpl) releaseGate(ctx context.Context, buyerID int, items []model.ReserveItem) {
	for _, item := range items {
		if err := s.gate.Release(ctx, item.TicketTypeID, item.Quantity, buyerID); err != nil {
			logger.WithComponent("reservation").Warn("inventory gate release failed",
				zap.Int("ticket_type_id", item.TicketTypeID), zap.Error(err))
		}
	}
}

func (s *ReservationServiceImpl) reserveTx(ctx context.Context, buyerID int, buyerWallet string, showID int, items []model.ReserveItem) (*model.Order, error) {
	ids := make([]int, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.TicketTypeID)
	}

	var created *model.Order
	err := database.WithTxRetry(ctx, s.starter, s.retryCfg, func(tx pgx.Tx) error {
		// Re-read inside the transaction: capacity and prices must not come
		// from a stale snapshot or from the client.
		types, err := s.ticketTypeRepo.FindForShow(ctx, tx, showID, ids)
		if err != nil {
			return err
		}
		if len(types) != len(items) {
			return apperrors.ErrTicketTypeNotFound
		}

		byID := make(map[int]*model.TicketType, len(types))
		for _, t := range types {
			byID[t.ID] = t
		}

		total := decimal.Zero
		orderItems := make([]*model.OrderItem, 0, len(items))
		for _, item := range items {
			t := byID[item.TicketTypeID]
			if err := t.ValidateQuantity(item.Quantity); err != nil {
				return err
			}
			orderItems = append(orderItems, &model.OrderItem{
				TicketTypeID:    t.ID,
				Quantity:        item.Quantity,
				PriceAtPurchase: t.Price,
			})
			total = total.Add(t.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		if !total.IsPositive() {
			return apperrors.ErrInvalidAmount
		}

		order := &model.Order{
			BuyerID:     buyerID,
			BuyerWallet: buyerWallet,
			ShowID:      showID,
			TotalAmount: total,
			Status:      model.OrderStatusPending,
			ExpiresAt:   time.Now().UTC().Add(s.ttl),
		}
		created, err = s.orderRepo.Create(ctx, tx, order)
		if err != nil {
			return err
		}

		for _, item := range orderItems {
			item.OrderID = created.ID
		}
		if err := s.orderRepo.CreateItems(ctx, tx, orderItems); err != nil {
			return err
		}
		created.Items = orderItems

		// One bounded increment per type; any of them failing aborts the
		// whole transaction, so the order and its hold are all-or-nothing.
		for _, item := range items {
			if err := s.ticketTypeRepo.ReserveStock(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *ReservationServiceImpl) GetOrder(ctx context.Context, buyerID int, orderID int) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.ErrOrderNotFound
	}

	return s.expiry.ExpireIfDue(ctx, order)
}
