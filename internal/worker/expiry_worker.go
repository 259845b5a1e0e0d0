package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tixgate/internal/service"
	"tixgate/pkg/logger"
)

// ExpiryWorker sweeps expired pending orders on a fixed interval. The lazy
// check on order reads handles the window between sweeps.
type ExpiryWorker interface {
	Start(ctx context.Context)
}

type ExpiryWorkerImpl struct {
	expiry   service.ExpiryService
	interval time.Duration
}

func NewExpiryWorker(expiry service.ExpiryService, interval time.Duration) ExpiryWorker {
	return &ExpiryWorkerImpl{expiry: expiry, interval: interval}
}

func (w *ExpiryWorkerImpl) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		log := logger.WithComponent("expiry_worker")
		log.Info("expiry worker started", zap.Duration("interval", w.interval))

		for {
			select {
			case <-ctx.Done():
				log.Info("expiry worker stopped")
				return
			case <-ticker.C:
				reaped, err := w.expiry.ReapExpired(ctx)
				if err != nil {
					log.Error("expiry sweep failed", zap.Error(err))
					continue
				}
				if reaped > 0 {
					log.Info("expired orders reaped", zap.Int("count", reaped))
				}
			}
		}
	}()
}
