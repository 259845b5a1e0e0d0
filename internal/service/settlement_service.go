package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tixgate/internal/cache"
	"tixgate/internal/database"
	"tixgate/internal/model"
	"tixgate/internal/monitoring"
	"tixgate/internal/queue"
	"tixgate/internal/repository"
	apperrors "tixgate/pkg/app_errors"
	"tixgate/pkg/logger"
)

// SettlementService is the single idempotent core both confirmation
// transports funnel into. It turns a verified payment confirmation into one
// terminal order transition and one ledger entry, plus the order's tickets
// when the payment succeeded, exactly once no matter how often the gateway
// re-delivers.
type SettlementService interface {
	Settle(ctx context.Context, conf *model.PaymentConfirmation) (*model.SettlementResult, error)
	// Refund flips an order's successful ledger entry to refunded and
	// cancels its tickets. Idempotent: a second refund fails with
	// ErrAlreadyRefunded.
	Refund(ctx context.Context, orderID int) error
	// ListTransactions returns the order's ledger entries, oldest first.
	ListTransactions(ctx context.Context, orderID int) ([]*model.Transaction, error)
}

type SettlementServiceImpl struct {
	starter        database.TxStarter
	orderRepo      repository.OrderRepository
	txnRepo        repository.TransactionRepository
	ticketRepo     repository.TicketRepository
	ticketTypeRepo repository.TicketTypeRepository
	gate           cache.InventoryGate
	mintQueue      queue.MintQueue
	retryCfg       database.RetryConfig
}

func NewSettlementService(
	starter database.TxStarter,
	orderRepo repository.OrderRepository,
	txnRepo repository.TransactionRepository,
	ticketRepo repository.TicketRepository,
	ticketTypeRepo repository.TicketTypeRepository,
	gate cache.InventoryGate,
	mintQueue queue.MintQueue,
	retryCfg database.RetryConfig,
) SettlementService {
	return &SettlementServiceImpl{
		starter:        starter,
		orderRepo:      orderRepo,
		txnRepo:        txnRepo,
		ticketRepo:     ticketRepo,
		ticketTypeRepo: ticketTypeRepo,
		gate:           gate,
		mintQueue:      mintQueue,
		retryCfg:       retryCfg,
	}
}

func (s *SettlementServiceImpl) Settle(ctx context.Context, conf *model.PaymentConfirmation) (*model.SettlementResult, error) {
	order, err := s.orderRepo.FindByID(ctx, conf.OrderID)
	if err != nil {
		monitoring.CountSettlement("unknown_order")
		return nil, err
	}

	// Idempotency gate: a terminal order already holds its recorded
	// outcome. Re-delivery returns that outcome and writes nothing.
	if order.Status.IsTerminal() {
		monitoring.CountSettlement("duplicate")
		return &model.SettlementResult{OrderID: order.ID, Status: order.Status, Duplicate: true}, nil
	}

	if !conf.Amount.Equal(order.TotalAmount) {
		monitoring.CountSettlement("amount_mismatch")
		logger.WithComponent("settlement").Warn("amount mismatch",
			zap.Int("order_id", order.ID),
			zap.String("confirmed", conf.Amount.String()),
			zap.String("expected", order.TotalAmount.String()))
		return nil, apperrors.ErrAmountMismatch
	}

	if conf.Success {
		return s.settleSuccess(ctx, order, conf)
	}
	return s.settleFailure(ctx, order, conf)
}

func (s *SettlementServiceImpl) settleSuccess(ctx context.Context, order *model.Order, conf *model.PaymentConfirmation) (*model.SettlementResult, error) {
	var ticketCount int
	err := database.WithTxRetry(ctx, s.starter, s.retryCfg, func(tx pgx.Tx) error {
		// Conditional flip: if the reaper won the race this hits zero rows
		// and the transaction aborts without side effects.
		paid, err := s.orderRepo.MarkPaidIfPending(ctx, tx, order.ID, conf.PaymentMethod, conf.TransactionCode, time.Now().UTC())
		if err != nil {
			return err
		}

		code := conf.TransactionCode
		_, err = s.txnRepo.Append(ctx, tx, &model.Transaction{
			OrderID:         paid.ID,
			Amount:          paid.TotalAmount,
			PaymentMethod:   conf.PaymentMethod,
			TransactionCode: &code,
			Status:          model.TransactionStatusSuccess,
		})
		if err != nil {
			return err
		}

		ticketCount, err = s.materializeTickets(ctx, tx, paid)
		return err
	})

	if errors.Is(err, apperrors.ErrOrderNotPending) {
		return s.recordedOutcome(ctx, order.ID)
	}
	if err != nil {
		monitoring.CountSettlement("error")
		return nil, err
	}

	monitoring.CountSettlement("paid")

	// Mint dispatch happens after commit and never affects the settled
	// state: a failed publish is logged and left to the reconciler.
	job := &model.MintJob{OrderID: order.ID, Recipient: order.BuyerWallet, Quantity: ticketCount}
	if err := s.mintQueue.PublishMintJob(ctx, job); err != nil {
		monitoring.CountMintPublish("error")
		logger.WithComponent("settlement").Error("mint job publish failed",
			zap.Int("order_id", order.ID), zap.Error(err))
	} else {
		monitoring.CountMintPublish("success")
	}

	return &model.SettlementResult{OrderID: order.ID, Status: model.OrderStatusPaid}, nil
}

// materializeTickets creates one ticket per purchased unit inside the
// settlement transaction. Only ever reached once per order: the conditional
// paid flip guards re-entry.
func (s *SettlementServiceImpl) materializeTickets(ctx context.Context, tx pgx.Tx, order *model.Order) (int, error) {
	items, err := s.orderRepo.ListItemsTx(ctx, tx, order.ID)
	if err != nil {
		return 0, err
	}

	var tickets []*model.Ticket
	for _, item := range items {
		for i := 0; i < item.Quantity; i++ {
			tickets = append(tickets, &model.Ticket{
				TicketTypeID: item.TicketTypeID,
				OrderID:      order.ID,
				OwnerID:      order.BuyerID,
				ScanCode:     uuid.NewString(),
				Status:       model.TicketStatusPending,
				MintStatus:   model.MintStatusUnminted,
			})
		}
	}

	if len(tickets) == 0 {
		return 0, apperrors.ErrInvalidInput
	}

	if err := s.ticketRepo.CreateBatch(ctx, tx, tickets); err != nil {
		return 0, err
	}
	return len(tickets), nil
}

func (s *SettlementServiceImpl) settleFailure(ctx context.Context, order *model.Order, conf *model.PaymentConfirmation) (*model.SettlementResult, error) {
	var released []*model.OrderItem
	err := database.WithTxRetry(ctx, s.starter, s.retryCfg, func(tx pgx.Tx) error {
		failed, err := s.orderRepo.MarkIfPending(ctx, tx, order.ID, model.OrderStatusFailed)
		if err != nil {
			return err
		}

		var code *string
		if conf.TransactionCode != "" {
			c := conf.TransactionCode
			code = &c
		}
		_, err = s.txnRepo.Append(ctx, tx, &model.Transaction{
			OrderID:         failed.ID,
			Amount:          failed.TotalAmount,
			PaymentMethod:   conf.PaymentMethod,
			TransactionCode: code,
			Status:          model.TransactionStatusFailed,
		})
		if err != nil {
			return err
		}

		// Release the hold: a failed payment returns inventory the same way
		// expiry does.
		released, err = s.orderRepo.ListItemsTx(ctx, tx, failed.ID)
		if err != nil {
			return err
		}
		for _, item := range released {
			if err := s.ticketTypeRepo.ReleaseStock(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, apperrors.ErrOrderNotPending) {
		return s.recordedOutcome(ctx, order.ID)
	}
	if err != nil {
		monitoring.CountSettlement("error")
		return nil, err
	}

	for _, item := range released {
		if gateErr := s.gate.Release(ctx, item.TicketTypeID, item.Quantity, order.BuyerID); gateErr != nil {
			logger.WithComponent("settlement").Warn("inventory gate release failed",
				zap.Int("ticket_type_id", item.TicketTypeID), zap.Error(gateErr))
		}
	}

	monitoring.CountSettlement("failed")
	return &model.SettlementResult{OrderID: order.ID, Status: model.OrderStatusFailed}, nil
}

// recordedOutcome answers a confirmation that lost the terminal-transition
// race: re-read the order and report whoever won.
func (s *SettlementServiceImpl) recordedOutcome(ctx context.Context, orderID int) (*model.SettlementResult, error) {
	current, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	monitoring.CountSettlement("duplicate")
	return &model.SettlementResult{OrderID: current.ID, Status: current.Status, Duplicate: true}, nil
}

func (s *SettlementServiceImpl) Refund(ctx context.Context, orderID int) error {
	return database.WithTxRetry(ctx, s.starter, s.retryCfg, func(tx pgx.Tx) error {
		txn, err := s.txnRepo.FindSuccessByOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if txn.Status == model.TransactionStatusRefunded {
			return apperrors.ErrAlreadyRefunded
		}
		if err := s.txnRepo.MarkRefunded(ctx, tx, txn.ID); err != nil {
			return err
		}
		return s.ticketRepo.CancelByOrder(ctx, tx, orderID)
	})
}

func (s *SettlementServiceImpl) ListTransactions(ctx context.Context, orderID int) ([]*model.Transaction, error) {
	return s.txnRepo.ListByOrder(ctx, orderID)
}
