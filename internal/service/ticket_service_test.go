package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cacheMocks "tixgate/internal/cache/mocks"
	"tixgate/internal/model"
	repoMocks "tixgate/internal/repository/mocks"
	"tixgate/internal/service"
	"tixgate/internal/testutil"
	apperrors "tixgate/pkg/app_errors"
)

type ticketFixture struct {
	starter *testutil.FakeTxStarter
	orders  *repoMocks.MockOrderRepository
	tickets *repoMocks.MockTicketRepository
	svc     service.TicketService
}

func newTicketFixture() *ticketFixture {
	f := &ticketFixture{
		starter: testutil.NewFakeTxStarter(),
		orders:  repoMocks.NewMockOrderRepository(),
		tickets: repoMocks.NewMockTicketRepository(),
	}
	f.svc = service.NewTicketService(f.starter, f.orders, f.tickets, testRetry)
	return f
}

func TestTicketService_ListByOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newTicketFixture()

		f.orders.On("FindByID", ctx, 55).Return(&model.Order{ID: 55, BuyerID: 7}, nil).Once()
		f.tickets.On("ListByOrder", ctx, 55).Return([]*model.Ticket{{ID: 1}, {ID: 2}}, nil).Once()

		tickets, err := f.svc.ListByOrder(ctx, 7, 55)
		require.NoError(t, err)
		assert.Len(t, tickets, 2)
	})

	t.Run("Failed - other buyer's order", func(t *testing.T) {
		f := newTicketFixture()

		f.orders.On("FindByID", ctx, 55).Return(&model.Order{ID: 55, BuyerID: 8}, nil).Once()

		_, err := f.svc.ListByOrder(ctx, 7, 55)
		assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
		f.tickets.AssertNotCalled(t, "ListByOrder", mock.Anything, mock.Anything)
	})
}

func TestTicketService_CheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newTicketFixture()
		f.tickets.On("CheckIn", ctx, "scan-1").Return(nil).Once()
		require.NoError(t, f.svc.CheckIn(ctx, "scan-1"))
	})

	t.Run("Failed - already used", func(t *testing.T) {
		f := newTicketFixture()
		f.tickets.On("CheckIn", ctx, "scan-1").Return(apperrors.ErrTicketNotCheckable).Once()
		f.tickets.On("FindByScanCode", ctx, "scan-1").Return(&model.Ticket{ID: 1, ScanCode: "scan-1", Status: model.TicketStatusCheckedIn}, nil).Once()
		assert.ErrorIs(t, f.svc.CheckIn(ctx, "scan-1"), apperrors.ErrTicketNotCheckable)
	})

	t.Run("Failed - unknown scan code", func(t *testing.T) {
		f := newTicketFixture()
		f.tickets.On("CheckIn", ctx, "scan-x").Return(apperrors.ErrTicketNotCheckable).Once()
		f.tickets.On("FindByScanCode", ctx, "scan-x").Return(nil, apperrors.ErrTicketNotFound).Once()
		assert.ErrorIs(t, f.svc.CheckIn(ctx, "scan-x"), apperrors.ErrTicketNotFound)
	})
}

func TestTicketService_ApplyMintResult(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - assigns tokens per order", func(t *testing.T) {
		f := newTicketFixture()

		f.tickets.On("AssignTokens", ctx, mock.Anything, 55, []string{"101", "102"}).Return(nil).Once()
		f.tickets.On("AssignTokens", ctx, mock.Anything, 56, []string{"103"}).Return(nil).Once()

		result := &model.MintResult{
			TxHash: "0xhash",
			Mapping: []model.MintOrderMapping{
				{OrderID: 55, TokenIDs: []string{"101", "102"}},
				{OrderID: 56, TokenIDs: []string{"103"}},
			},
		}
		require.NoError(t, f.svc.ApplyMintResult(ctx, result))
		assert.Equal(t, 2, f.starter.Tx.Commits)
		f.tickets.AssertExpectations(t)
	})

	t.Run("Failed - token count mismatch aborts that order", func(t *testing.T) {
		f := newTicketFixture()

		f.tickets.On("AssignTokens", ctx, mock.Anything, 55, []string{"101"}).
			Return(apperrors.ErrInvalidInput).Once()

		result := &model.MintResult{
			Mapping: []model.MintOrderMapping{{OrderID: 55, TokenIDs: []string{"101"}}},
		}
		assert.ErrorIs(t, f.svc.ApplyMintResult(ctx, result), apperrors.ErrInvalidInput)
	})
}

func TestCatalogService_GetShow(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - gate stock preferred over database count", func(t *testing.T) {
		showRepo := repoMocks.NewMockShowRepository()
		typeRepo := repoMocks.NewMockTicketTypeRepository()
		gate := cacheMocks.NewMockInventoryGate()

		showRepo.On("FindByID", ctx, 1).Return(futureShow(1), nil).Once()
		typeRepo.On("ListByShow", ctx, 1).Return([]*model.TicketType{vipType(10)}, nil).Once()
		gate.On("GetStock", ctx, 10).Return(42, nil).Once()

		svc := service.NewCatalogService(showRepo, typeRepo, gate)
		detail, err := svc.GetShow(ctx, 1)

		require.NoError(t, err)
		require.Len(t, detail.TicketTypes, 1)
		assert.Equal(t, 42, detail.TicketTypes[0].Remaining)
	})

	t.Run("Success - cold gate falls back to database count", func(t *testing.T) {
		showRepo := repoMocks.NewMockShowRepository()
		typeRepo := repoMocks.NewMockTicketTypeRepository()
		gate := cacheMocks.NewMockInventoryGate()

		showRepo.On("FindByID", ctx, 1).Return(futureShow(1), nil).Once()
		typeRepo.On("ListByShow", ctx, 1).Return([]*model.TicketType{vipType(10)}, nil).Once()
		gate.On("GetStock", ctx, 10).Return(0, apperrors.ErrInternalServerError).Once()

		svc := service.NewCatalogService(showRepo, typeRepo, gate)
		detail, err := svc.GetShow(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, 90, detail.TicketTypes[0].Remaining)
	})

	t.Run("Failed - unknown show", func(t *testing.T) {
		showRepo := repoMocks.NewMockShowRepository()
		typeRepo := repoMocks.NewMockTicketTypeRepository()
		gate := cacheMocks.NewMockInventoryGate()

		showRepo.On("FindByID", ctx, 1).Return(nil, apperrors.ErrShowNotFound).Once()

		svc := service.NewCatalogService(showRepo, typeRepo, gate)
		_, err := svc.GetShow(ctx, 1)
		assert.ErrorIs(t, err, apperrors.ErrShowNotFound)
	})
}
