package worker

import (
	"context"

	"go.uber.org/zap"

	"tixgate/internal/minter"
	"tixgate/internal/model"
	"tixgate/internal/monitoring"
	"tixgate/internal/queue"
	"tixgate/internal/repository"
	"tixgate/pkg/logger"
)

// MintWorker drains the mint queue and submits each job to the external
// minting worker. Delivery is at-least-once and the external worker is
// idempotent on order id, so a redelivered job is harmless.
type MintWorker interface {
	Start(ctx context.Context) error
}

type MintWorkerImpl struct {
	queue      queue.MintQueue
	client     minter.Client
	ticketRepo repository.TicketRepository
}

func NewMintWorker(q queue.MintQueue, client minter.Client, ticketRepo repository.TicketRepository) MintWorker {
	return &MintWorkerImpl{queue: q, client: client, ticketRepo: ticketRepo}
}

func (w *MintWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeMintJobs(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			w.handle(ctx, msg)
		}
	}()
	return nil
}

func (w *MintWorkerImpl) handle(ctx context.Context, msg queue.Delivery) {
	log := logger.WithComponent("mint_worker").With(zap.Int("order_id", msg.Job.OrderID))

	// Mark the hand-off before calling out, so the reconciler can tell a
	// dispatched order from one whose publish was lost.
	if _, err := w.ticketRepo.SetMintStatusByOrder(ctx, msg.Job.OrderID, model.MintStatusUnminted, model.MintStatusPending); err != nil {
		log.Warn("failed to mark tickets mint-pending", zap.Error(err))
	}

	if err := w.client.Mint(ctx, msg.Job); err != nil {
		log.Error("mint dispatch failed, will retry", zap.Error(err))
		monitoring.CountMintProcessed("error")
		msg.Nack(true)
		return
	}

	monitoring.CountMintProcessed("success")
	msg.Ack()
}

// MarkDiscarded is the queue's poison-message hook: tickets of a job that
// exhausted its retries are flagged failed for manual reconciliation.
func MarkDiscarded(ticketRepo repository.TicketRepository) func(job *model.MintJob) {
	return func(job *model.MintJob) {
		ctx := context.Background()
		for _, from := range []model.MintStatus{model.MintStatusUnminted, model.MintStatusPending} {
			if _, err := ticketRepo.SetMintStatusByOrder(ctx, job.OrderID, from, model.MintStatusFailed); err != nil {
				logger.WithComponent("mint_worker").Error("failed to mark tickets mint-failed",
					zap.Int("order_id", job.OrderID), zap.Error(err))
			}
		}
		monitoring.CountMintProcessed("discarded")
	}
}
