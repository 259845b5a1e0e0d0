package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tixgate/config"
	"tixgate/internal/cache"
	"tixgate/internal/database"
	"tixgate/internal/gateway"
	"tixgate/internal/handler"
	"tixgate/internal/minter"
	"tixgate/internal/queue"
	"tixgate/internal/repository"
	"tixgate/internal/service"
	"tixgate/internal/worker"
	"tixgate/pkg/logger"
)

func main() {
	log := logger.L
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatal("failed to initialize redis", zap.Error(err))
	}
	defer rdb.Close()

	showRepo := repository.NewShowRepository(pool)
	ticketTypeRepo := repository.NewTicketTypeRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	txnRepo := repository.NewTransactionRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	gate := cache.NewInventoryGate(rdb)

	mintQueue, err := queue.NewRedisStreamMintQueue(rdb, "", nil, worker.MarkDiscarded(ticketRepo))
	if err != nil {
		log.Fatal("failed to initialize mint queue", zap.Error(err))
	}

	retryCfg := database.RetryConfig{
		MaxRetries: cfg.Reservation.MaxRetries,
		BaseDelay:  cfg.Reservation.RetryBaseDelay,
	}

	expiryService := service.NewExpiryService(pool, orderRepo, ticketTypeRepo, gate, retryCfg)
	reservationService := service.NewReservationService(
		pool, showRepo, ticketTypeRepo, orderRepo, gate, expiryService, cfg.Reservation.TTL, retryCfg)
	settlementService := service.NewSettlementService(
		pool, orderRepo, txnRepo, ticketRepo, ticketTypeRepo, gate, mintQueue, retryCfg)
	ticketService := service.NewTicketService(pool, orderRepo, ticketRepo, retryCfg)
	catalogService := service.NewCatalogService(showRepo, ticketTypeRepo, gate)

	mintClient := minter.NewHTTPClient(cfg.Mint.WorkerURL, cfg.Mint.RequestTimeout)
	mintWorker := worker.NewMintWorker(mintQueue, mintClient, ticketRepo)
	if err := mintWorker.Start(ctx); err != nil {
		log.Fatal("failed to start mint worker", zap.Error(err))
	}
	worker.NewExpiryWorker(expiryService, cfg.Reservation.ReapInterval).Start(ctx)
	worker.NewMintReconciler(
		ticketRepo, orderRepo, mintQueue, cfg.Mint.ReconcileInterval, cfg.Mint.ReconcileAfter).Start(ctx)

	verifier := gateway.NewVerifier(cfg.Payment.HashSecret)
	auth := handler.Auth(cfg.Auth.JWTSecret)
	callbackAuth := handler.CallbackAuth(cfg.Auth.CallbackToken)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.NewShowHandler(catalogService).RegisterRoutes(router)
	handler.NewOrderHandler(reservationService, settlementService, ticketService).RegisterRoutes(router, auth)
	handler.NewPaymentHandler(verifier, settlementService).RegisterRoutes(router)
	handler.NewTicketHandler(ticketService).RegisterRoutes(router, auth, callbackAuth)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
