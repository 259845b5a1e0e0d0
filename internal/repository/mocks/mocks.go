// Package mocks provides testify mocks for the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"tixgate/internal/model"
)

type MockShowRepository struct {
	mock.Mock
}

func NewMockShowRepository() *MockShowRepository {
	return &MockShowRepository{}
}

func (m *MockShowRepository) FindByID(ctx context.Context, id int) (*model.Show, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Show), args.Error(1)
}

type MockTicketTypeRepository struct {
	mock.Mock
}

func NewMockTicketTypeRepository() *MockTicketTypeRepository {
	return &MockTicketTypeRepository{}
}

func (m *MockTicketTypeRepository) FindByID(ctx context.Context, id int) (*model.TicketType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketType), args.Error(1)
}

func (m *MockTicketTypeRepository) ListByShow(ctx context.Context, showID int) ([]*model.TicketType, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TicketType), args.Error(1)
}

func (m *MockTicketTypeRepository) FindForShow(ctx context.Context, tx pgx.Tx, showID int, ids []int) ([]*model.TicketType, error) {
	args := m.Called(ctx, tx, showID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TicketType), args.Error(1)
}

func (m *MockTicketTypeRepository) ReserveStock(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	args := m.Called(ctx, tx, id, quantity)
	return args.Error(0)
}

func (m *MockTicketTypeRepository) ReleaseStock(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	args := m.Called(ctx, tx, id, quantity)
	return args.Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{}
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id int) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListItems(ctx context.Context, orderID int) ([]*model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) FindPendingByBuyer(ctx context.Context, buyerID int, since time.Time) ([]*model.Order, error) {
	args := m.Called(ctx, buyerID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	args := m.Called(ctx, tx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []*model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) ListItemsTx(ctx context.Context, tx pgx.Tx, orderID int) ([]*model.OrderItem, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) MarkIfPending(ctx context.Context, tx pgx.Tx, id int, status model.OrderStatus) (*model.Order, error) {
	args := m.Called(ctx, tx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkPaidIfPending(ctx context.Context, tx pgx.Tx, id int, method, transactionCode string, paidAt time.Time) (*model.Order, error) {
	args := m.Called(ctx, tx, id, method, transactionCode, paidAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindExpiredForUpdate(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]*model.Order, error) {
	args := m.Called(ctx, tx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

func (m *MockTransactionRepository) ListByOrder(ctx context.Context, orderID int) ([]*model.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Append(ctx context.Context, tx pgx.Tx, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, tx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindSuccessByOrder(ctx context.Context, tx pgx.Tx, orderID int) (*model.Transaction, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkRefunded(ctx context.Context, tx pgx.Tx, id int) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) ListByOrder(ctx context.Context, orderID int) ([]*model.Ticket, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *MockTicketRepository) FindByScanCode(ctx context.Context, scanCode string) (*model.Ticket, error) {
	args := m.Called(ctx, scanCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketRepository) CheckIn(ctx context.Context, scanCode string) error {
	args := m.Called(ctx, scanCode)
	return args.Error(0)
}

func (m *MockTicketRepository) SetMintStatusByOrder(ctx context.Context, orderID int, from, to model.MintStatus) (int, error) {
	args := m.Called(ctx, orderID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketRepository) FindUnmintedOrders(ctx context.Context, olderThan time.Time, limit int) ([]*model.Order, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockTicketRepository) CreateBatch(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error {
	args := m.Called(ctx, tx, tickets)
	return args.Error(0)
}

func (m *MockTicketRepository) CancelByOrder(ctx context.Context, tx pgx.Tx, orderID int) error {
	args := m.Called(ctx, tx, orderID)
	return args.Error(0)
}

func (m *MockTicketRepository) AssignTokens(ctx context.Context, tx pgx.Tx, orderID int, tokenIDs []string) error {
	args := m.Called(ctx, tx, orderID, tokenIDs)
	return args.Error(0)
}
