package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tixgate/internal/database"
	"tixgate/internal/model"
	"tixgate/internal/repository"
	apperrors "tixgate/pkg/app_errors"
	"tixgate/pkg/logger"
)

// TicketService covers the materialized tickets after settlement: buyer
// listing, door check-in and applying the minting worker's results.
type TicketService interface {
	ListByOrder(ctx context.Context, buyerID int, orderID int) ([]*model.Ticket, error)
	CheckIn(ctx context.Context, scanCode string) error
	// ApplyMintResult assigns token ids per order from the worker's
	// callback and marks the tickets minted.
	ApplyMintResult(ctx context.Context, result *model.MintResult) error
}

type TicketServiceImpl struct {
	starter    database.TxStarter
	orderRepo  repository.OrderRepository
	ticketRepo repository.TicketRepository
	retryCfg   database.RetryConfig
}

func NewTicketService(
	starter database.TxStarter,
	orderRepo repository.OrderRepository,
	ticketRepo repository.TicketRepository,
	retryCfg database.RetryConfig,
) TicketService {
	return &TicketServiceImpl{
		starter:    starter,
		orderRepo:  orderRepo,
		ticketRepo: ticketRepo,
		retryCfg:   retryCfg,
	}
}

func (s *TicketServiceImpl) ListByOrder(ctx context.Context, buyerID int, orderID int) ([]*model.Ticket, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.ErrOrderNotFound
	}

	return s.ticketRepo.ListByOrder(ctx, orderID)
}

func (s *TicketServiceImpl) CheckIn(ctx context.Context, scanCode string) error {
	err := s.ticketRepo.CheckIn(ctx, scanCode)
	if errors.Is(err, apperrors.ErrTicketNotCheckable) {
		// Distinguish an unknown scan code from a ticket that exists but
		// is already checked in or cancelled.
		if _, findErr := s.ticketRepo.FindByScanCode(ctx, scanCode); errors.Is(findErr, apperrors.ErrTicketNotFound) {
			return apperrors.ErrTicketNotFound
		}
	}
	return err
}

func (s *TicketServiceImpl) ApplyMintResult(ctx context.Context, result *model.MintResult) error {
	for _, mapping := range result.Mapping {
		err := database.WithTxRetry(ctx, s.starter, s.retryCfg, func(tx pgx.Tx) error {
			return s.ticketRepo.AssignTokens(ctx, tx, mapping.OrderID, mapping.TokenIDs)
		})
		if err != nil {
			return err
		}
		logger.WithComponent("ticket").Info("tickets minted",
			zap.Int("order_id", mapping.OrderID),
			zap.Int("tokens", len(mapping.TokenIDs)),
			zap.String("tx_hash", result.TxHash))
	}
	return nil
}
