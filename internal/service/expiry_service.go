package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tixgate/internal/cache"
	"tixgate/internal/database"
	"tixgate/internal/model"
	"tixgate/internal/monitoring"
	"tixgate/internal/repository"
	apperrors "tixgate/pkg/app_errors"
	"tixgate/pkg/logger"
)

// ExpiryService cancels pending orders whose reservation TTL ran out and
// returns their inventory. Expiry is data-driven: the deadline lives on the
// order, and both the ticker-driven reaper and the lazy check on status reads
// converge on the same conditional transition.
type ExpiryService interface {
	// ReapExpired cancels a batch of expired pending orders and reports how
	// many it settled.
	ReapExpired(ctx context.Context) (int, error)
	// ExpireIfDue applies the lazy expiry check to one order and returns its
	// current state.
	ExpireIfDue(ctx context.Context, order *model.Order) (*model.Order, error)
	// CancelPending cancels one pending order and releases its inventory.
	// An order that already left pending is skipped without error: another
	// path has resolved it.
	CancelPending(ctx context.Context, orderID int) error
}

const reapBatchSize = 100

type ExpiryServiceImpl struct {
	starter        database.TxStarter
	orderRepo      repository.OrderRepository
	ticketTypeRepo repository.TicketTypeRepository
	gate           cache.InventoryGate
	retryCfg       database.RetryConfig
}

func NewExpiryService(
	starter database.TxStarter,
	orderRepo repository.OrderRepository,
	ticketTypeRepo repository.TicketTypeRepository,
	gate cache.InventoryGate,
	retryCfg database.RetryConfig,
) ExpiryService {
	return &ExpiryServiceImpl{
		starter:        starter,
		orderRepo:      orderRepo,
		ticketTypeRepo: ticketTypeRepo,
		gate:           gate,
		retryCfg:       retryCfg,
	}
}

// cancelInTx flips the order to cancelled and releases its inventory in the
// caller's transaction. Returns the released items for the post-commit gate
// rollback, or nil if the order had already left pending.
func (s *ExpiryServiceImpl) cancelInTx(ctx context.Context, tx pgx.Tx, orderID int) ([]*model.OrderItem, error) {
	_, err := s.orderRepo.MarkIfPending(ctx, tx, orderID, model.OrderStatusCancelled)
	if err != nil {
		if errors.Is(err, apperrors.ErrOrderNotPending) {
			return nil, nil
		}
		return nil, err
	}

	items, err := s.orderRepo.ListItemsTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if err := s.ticketTypeRepo.ReleaseStock(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
			return nil, err
		}
	}

	return items, nil
}

// releaseGate rolls the Redis fast path back after the database transaction
// committed. Best effort: the gate is advisory, a failed rollback only costs
// fast-path accuracy.
func (s *ExpiryServiceImpl) releaseGate(ctx context.Context, buyerID int, items []*model.OrderItem) {
	for _, item := range items {
		if err := s.gate.Release(ctx, item.TicketTypeID, item.Quantity, buyerID); err != nil {
			logger.WithComponent("expiry").Warn("inventory gate release failed",
				zap.Int("ticket_type_id", item.TicketTypeID), zap.Error(err))
		}
	}
}

func (s *ExpiryServiceImpl) CancelPending(ctx context.Context, orderID int) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	var released []*model.OrderItem
	err = database.WithTxRetry(ctx, s.starter, s.retryCfg, func(tx pgx.Tx) error {
		var txErr error
		released, txErr = s.cancelInTx(ctx, tx, orderID)
		return txErr
	})
	if err != nil {
		return err
	}

	s.releaseGate(ctx, order.BuyerID, released)
	return nil
}

func (s *ExpiryServiceImpl) ReapExpired(ctx context.Context) (int, error) {
	type releasedOrder struct {
		buyerID int
		items   []*model.OrderItem
	}

	var reaped []releasedOrder
	err := database.WithTxRetry(ctx, s.starter, s.retryCfg, func(tx pgx.Tx) error {
		reaped = reaped[:0]

		expired, err := s.orderRepo.FindExpiredForUpdate(ctx, tx, time.Now().UTC(), reapBatchSize)
		if err != nil {
			return err
		}

		for _, order := range expired {
			items, err := s.cancelInTx(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			if items != nil {
				reaped = append(reaped, releasedOrder{buyerID: order.BuyerID, items: items})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, r := range reaped {
		s.releaseGate(ctx, r.buyerID, r.items)
	}

	if len(reaped) > 0 {
		monitoring.CountReaped(len(reaped))
		logger.WithComponent("expiry").Info("reaped expired orders", zap.Int("count", len(reaped)))
	}

	return len(reaped), nil
}

func (s *ExpiryServiceImpl) ExpireIfDue(ctx context.Context, order *model.Order) (*model.Order, error) {
	if !order.IsExpired(time.Now().UTC()) {
		return order, nil
	}

	if err := s.CancelPending(ctx, order.ID); err != nil {
		return nil, err
	}

	return s.orderRepo.FindByID(ctx, order.ID)
}
