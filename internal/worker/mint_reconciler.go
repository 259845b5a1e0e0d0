package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tixgate/internal/model"
	"tixgate/internal/monitoring"
	"tixgate/internal/queue"
	"tixgate/internal/repository"
	"tixgate/pkg/logger"
)

const reconcileBatchSize = 50

// MintReconciler periodically re-dispatches paid orders whose mint job was
// lost, either because the post-settlement publish failed or because the
// worker crashed mid-flight. Re-dispatch is safe: the queue is at-least-once
// anyway and the external worker is idempotent on order id.
type MintReconciler interface {
	Start(ctx context.Context)
}

type MintReconcilerImpl struct {
	ticketRepo  repository.TicketRepository
	orderRepo   repository.OrderRepository
	mintQueue   queue.MintQueue
	interval    time.Duration
	gracePeriod time.Duration
}

func NewMintReconciler(
	ticketRepo repository.TicketRepository,
	orderRepo repository.OrderRepository,
	mintQueue queue.MintQueue,
	interval time.Duration,
	gracePeriod time.Duration,
) MintReconciler {
	return &MintReconcilerImpl{
		ticketRepo:  ticketRepo,
		orderRepo:   orderRepo,
		mintQueue:   mintQueue,
		interval:    interval,
		gracePeriod: gracePeriod,
	}
}

func (w *MintReconcilerImpl) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		log := logger.WithComponent("mint_reconciler")
		log.Info("mint reconciler started", zap.Duration("interval", w.interval))

		for {
			select {
			case <-ctx.Done():
				log.Info("mint reconciler stopped")
				return
			case <-ticker.C:
				if err := w.sweep(ctx); err != nil {
					log.Error("reconcile sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

func (w *MintReconcilerImpl) sweep(ctx context.Context) error {
	olderThan := time.Now().UTC().Add(-w.gracePeriod)
	orders, err := w.ticketRepo.FindUnmintedOrders(ctx, olderThan, reconcileBatchSize)
	if err != nil {
		return err
	}

	log := logger.WithComponent("mint_reconciler")
	for _, order := range orders {
		items, err := w.orderRepo.ListItems(ctx, order.ID)
		if err != nil {
			log.Error("failed to load order items", zap.Int("order_id", order.ID), zap.Error(err))
			continue
		}

		quantity := 0
		for _, item := range items {
			quantity += item.Quantity
		}

		job := &model.MintJob{OrderID: order.ID, Recipient: order.BuyerWallet, Quantity: quantity}
		if err := w.mintQueue.PublishMintJob(ctx, job); err != nil {
			monitoring.CountMintPublish("error")
			log.Error("reconcile publish failed", zap.Int("order_id", order.ID), zap.Error(err))
			continue
		}

		monitoring.CountMintPublish("reconciled")
		log.Info("re-dispatched mint job", zap.Int("order_id", order.ID), zap.Int("quantity", quantity))
	}

	return nil
}
