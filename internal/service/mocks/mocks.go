// Package mocks provides testify mocks for the service interfaces, used by
// handler and worker tests.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tixgate/internal/model"
)

type MockReservationService struct {
	mock.Mock
}

func NewMockReservationService() *MockReservationService {
	return &MockReservationService{}
}

func (m *MockReservationService) Reserve(ctx context.Context, buyerID int, buyerWallet string, req model.ReserveRequest) (*model.Order, error) {
	args := m.Called(ctx, buyerID, buyerWallet, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockReservationService) GetOrder(ctx context.Context, buyerID int, orderID int) (*model.Order, error) {
	args := m.Called(ctx, buyerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

type MockSettlementService struct {
	mock.Mock
}

func NewMockSettlementService() *MockSettlementService {
	return &MockSettlementService{}
}

func (m *MockSettlementService) Settle(ctx context.Context, conf *model.PaymentConfirmation) (*model.SettlementResult, error) {
	args := m.Called(ctx, conf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SettlementResult), args.Error(1)
}

func (m *MockSettlementService) Refund(ctx context.Context, orderID int) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockSettlementService) ListTransactions(ctx context.Context, orderID int) ([]*model.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) ListByOrder(ctx context.Context, buyerID int, orderID int) ([]*model.Ticket, error) {
	args := m.Called(ctx, buyerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *MockTicketService) CheckIn(ctx context.Context, scanCode string) error {
	args := m.Called(ctx, scanCode)
	return args.Error(0)
}

func (m *MockTicketService) ApplyMintResult(ctx context.Context, result *model.MintResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

type MockExpiryService struct {
	mock.Mock
}

func NewMockExpiryService() *MockExpiryService {
	return &MockExpiryService{}
}

func (m *MockExpiryService) ReapExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockExpiryService) ExpireIfDue(ctx context.Context, order *model.Order) (*model.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockExpiryService) CancelPending(ctx context.Context, orderID int) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type MockCatalogService struct {
	mock.Mock
}

func NewMockCatalogService() *MockCatalogService {
	return &MockCatalogService{}
}

func (m *MockCatalogService) GetShow(ctx context.Context, showID int) (*model.ShowDetail, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShowDetail), args.Error(1)
}
