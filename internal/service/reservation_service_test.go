package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tixgate/internal/cache"
	cacheMocks "tixgate/internal/cache/mocks"
	"tixgate/internal/database"
	"tixgate/internal/model"
	repoMocks "tixgate/internal/repository/mocks"
	"tixgate/internal/service"
	serviceMocks "tixgate/internal/service/mocks"
	"tixgate/internal/testutil"
	apperrors "tixgate/pkg/app_errors"
)

var testRetry = database.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}

const reservationTTL = 15 * time.Minute

type reservationFixture struct {
	starter  *testutil.FakeTxStarter
	showRepo *repoMocks.MockShowRepository
	typeRepo *repoMocks.MockTicketTypeRepository
	orders   *repoMocks.MockOrderRepository
	gate     *cacheMocks.MockInventoryGate
	expiry   *serviceMocks.MockExpiryService
	svc      service.ReservationService
}

func newReservationFixture() *reservationFixture {
	f := &reservationFixture{
		starter:  testutil.NewFakeTxStarter(),
		showRepo: repoMocks.NewMockShowRepository(),
		typeRepo: repoMocks.NewMockTicketTypeRepository(),
		orders:   repoMocks.NewMockOrderRepository(),
		gate:     cacheMocks.NewMockInventoryGate(),
		expiry:   serviceMocks.NewMockExpiryService(),
	}
	f.svc = service.NewReservationService(
		f.starter, f.showRepo, f.typeRepo, f.orders, f.gate, f.expiry, reservationTTL, testRetry)
	return f
}

func futureShow(id int) *model.Show {
	return &model.Show{ID: id, Name: "Evening Show", StartsAt: time.Now().UTC().Add(2 * time.Hour)}
}

func vipType(id int) *model.TicketType {
	return &model.TicketType{
		ID:            id,
		ShowID:        1,
		Name:          "VIP",
		Price:         decimal.RequireFromString("150.00"),
		QuantityTotal: 100,
		QuantitySold:  10,
		MinPurchase:   1,
		MaxPurchase:   4,
	}
}

func TestReservationService_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newReservationFixture()

		f.showRepo.On("FindByID", ctx, 1).Return(futureShow(1), nil).Once()
		f.orders.On("FindPendingByBuyer", ctx, 7, mock.Anything).Return([]*model.Order{}, nil).Once()
		f.gate.On("Reserve", ctx, 10, 2, 7).Return(nil).Once()
		f.typeRepo.On("FindForShow", ctx, mock.Anything, 1, []int{10}).Return([]*model.TicketType{vipType(10)}, nil).Once()
		f.orders.On("Create", ctx, mock.Anything, mock.Anything).Return(&model.Order{
			ID:          55,
			BuyerID:     7,
			BuyerWallet: "0xabc",
			ShowID:      1,
			TotalAmount: decimal.RequireFromString("300.00"),
			Status:      model.OrderStatusPending,
			ExpiresAt:   time.Now().UTC().Add(reservationTTL),
		}, nil).Once()
		f.orders.On("CreateItems", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		f.typeRepo.On("ReserveStock", ctx, mock.Anything, 10, 2).Return(nil).Once()

		req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 10, Quantity: 2}}}
		order, err := f.svc.Reserve(ctx, 7, "0xabc", req)

		require.NoError(t, err)
		assert.Equal(t, 55, order.ID)
		assert.Equal(t, model.OrderStatusPending, order.Status)
		assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("300.00")))
		assert.Len(t, order.Items, 1)
		assert.True(t, order.Items[0].PriceAtPurchase.Equal(decimal.RequireFromString("150.00")))
		assert.Equal(t, 1, f.starter.Tx.Commits)

		f.gate.AssertExpectations(t)
		f.orders.AssertExpectations(t)
		f.typeRepo.AssertExpectations(t)
	})

	t.Run("Success - cancels prior pending order first", func(t *testing.T) {
		f := newReservationFixture()

		prior := &model.Order{ID: 40, BuyerID: 7, Status: model.OrderStatusPending}
		f.showRepo.On("FindByID", ctx, 1).Return(futureShow(1), nil).Once()
		f.orders.On("FindPendingByBuyer", ctx, 7, mock.Anything).Return([]*model.Order{prior}, nil).Once()
		f.expiry.On("CancelPending", ctx, 40).Return(nil).Once()
		f.gate.On("Reserve", ctx, 10, 1, 7).Return(nil).Once()
		f.typeRepo.On("FindForShow", ctx, mock.Anything, 1, []int{10}).Return([]*model.TicketType{vipType(10)}, nil).Once()
		f.orders.On("Create", ctx, mock.Anything, mock.Anything).Return(&model.Order{ID: 56, BuyerID: 7}, nil).Once()
		f.orders.On("CreateItems", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		f.typeRepo.On("ReserveStock", ctx, mock.Anything, 10, 1).Return(nil).Once()

		req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 10, Quantity: 1}}}
		_, err := f.svc.Reserve(ctx, 7, "0xabc", req)

		require.NoError(t, err)
		f.expiry.AssertExpectations(t)
	})

	t.Run("Success - warms cold gate from database", func(t *testing.T) {
		f := newReservationFixture()

		f.showRepo.On("FindByID", ctx, 1).Return(futureShow(1), nil).Once()
		f.orders.On("FindPendingByBuyer", ctx, 7, mock.Anything).Return([]*model.Order{}, nil).Once()
		f.gate.On("Reserve", ctx, 10, 2, 7).Return(cache.ErrNotWarmed).Once()
		f.typeRepo.On("FindByID", ctx, 10).Return(vipType(10), nil).Once()
		f.gate.On("Warm", ctx, 10, 90, 4).Return(nil).Once()
		f.gate.On("Reserve", ctx, 10, 2, 7).Return(nil).Once()
		f.typeRepo.On("FindForShow", ctx, mock.Anything, 1, []int{10}).Return([]*model.TicketType{vipType(10)}, nil).Once()
		f.orders.On("Create", ctx, mock.Anything, mock.Anything).Return(&model.Order{ID: 57, BuyerID: 7}, nil).Once()
		f.orders.On("CreateItems", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		f.typeRepo.On("ReserveStock", ctx, mock.Anything, 10, 2).Return(nil).Once()

		req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 10, Quantity: 2}}}
		_, err := f.svc.Reserve(ctx, 7, "0xabc", req)

		require.NoError(t, err)
		f.gate.AssertExpectations(t)
	})

	t.Run("Failed - sold out at the gate", func(t *testing.T) {
		f := newReservationFixture()

		f.showRepo.On("FindByID", ctx, 1).Return(futureShow(1), nil).Once()
		f.orders.On("FindPendingByBuyer", ctx, 7, mock.Anything).Return([]*model.Order{}, nil).Once()
		f.gate.On("Reserve", ctx, 10, 2, 7).Return(apperrors.ErrInsufficientStock).Once()

		req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 10, Quantity: 2}}}
		_, err := f.svc.Reserve(ctx, 7, "0xabc", req)

		assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
		f.gate.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failed - gate rolled back when transaction fails", func(t *testing.T) {
		f := newReservationFixture()

		f.showRepo.On("FindByID", ctx, 1).Return(futureShow(1), nil).Once()
		f.orders.On("FindPendingByBuyer", ctx, 7, mock.Anything).Return([]*model.Order{}, nil).Once()
		f.gate.On("Reserve", ctx, 10, 2, 7).Return(nil).Once()
		f.typeRepo.On("FindForShow", ctx, mock.Anything, 1, []int{10}).Return([]*model.TicketType{vipType(10)}, nil).Once()
		f.orders.On("Create", ctx, mock.Anything, mock.Anything).Return(&model.Order{ID: 58, BuyerID: 7}, nil).Once()
		f.orders.On("CreateItems", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		f.typeRepo.On("ReserveStock", ctx, mock.Anything, 10, 2).Return(apperrors.ErrInsufficientStock).Once()
		f.gate.On("Release", ctx, 10, 2, 7).Return(nil).Once()

		req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 10, Quantity: 2}}}
		_, err := f.svc.Reserve(ctx, 7, "0xabc", req)

		assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
		f.gate.AssertExpectations(t)
	})

	t.Run("Failed - quantity above per-order limit", func(t *testing.T) {
		f := newReservationFixture()

		f.showRepo.On("FindByID", ctx, 1).Return(futureShow(1), nil).Once()
		f.orders.On("FindPendingByBuyer", ctx, 7, mock.Anything).Return([]*model.Order{}, nil).Once()
		f.gate.On("Reserve", ctx, 10, 9, 7).Return(nil).Once()
		f.typeRepo.On("FindForShow", ctx, mock.Anything, 1, []int{10}).Return([]*model.TicketType{vipType(10)}, nil).Once()
		f.gate.On("Release", ctx, 10, 9, 7).Return(nil).Once()

		req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 10, Quantity: 9}}}
		_, err := f.svc.Reserve(ctx, 7, "0xabc", req)

		assert.ErrorIs(t, err, apperrors.ErrExceedsMaxPurchase)
	})

	t.Run("Failed - show already started", func(t *testing.T) {
		f := newReservationFixture()

		started := &model.Show{ID: 1, StartsAt: time.Now().UTC().Add(-time.Minute)}
		f.showRepo.On("FindByID", ctx, 1).Return(started, nil).Once()

		req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 10, Quantity: 1}}}
		_, err := f.svc.Reserve(ctx, 7, "0xabc", req)

		assert.ErrorIs(t, err, apperrors.ErrShowStarted)
	})

	t.Run("Failed - unknown ticket type for show", func(t *testing.T) {
		f := newReservationFixture()

		f.showRepo.On("FindByID", ctx, 1).Return(futureShow(1), nil).Once()
		f.orders.On("FindPendingByBuyer", ctx, 7, mock.Anything).Return([]*model.Order{}, nil).Once()
		f.gate.On("Reserve", ctx, 99, 1, 7).Return(nil).Once()
		f.typeRepo.On("FindForShow", ctx, mock.Anything, 1, []int{99}).Return([]*model.TicketType{}, nil).Once()
		f.gate.On("Release", ctx, 99, 1, 7).Return(nil).Once()

		req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 99, Quantity: 1}}}
		_, err := f.svc.Reserve(ctx, 7, "0xabc", req)

		assert.ErrorIs(t, err, apperrors.ErrTicketTypeNotFound)
	})

	t.Run("Failed - duplicate ticket type in request", func(t *testing.T) {
		f := newReservationFixture()

		req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{
			{TicketTypeID: 10, Quantity: 1},
			{TicketTypeID: 10, Quantity: 2},
		}}
		_, err := f.svc.Reserve(ctx, 7, "0xabc", req)

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		f.showRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("Failed - empty items", func(t *testing.T) {
		f := newReservationFixture()

		_, err := f.svc.Reserve(ctx, 7, "0xabc", model.ReserveRequest{ShowID: 1})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestReservationService_GetOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - lazy expiry applied", func(t *testing.T) {
		f := newReservationFixture()

		stale := &model.Order{ID: 55, BuyerID: 7, Status: model.OrderStatusPending}
		cancelled := &model.Order{ID: 55, BuyerID: 7, Status: model.OrderStatusCancelled}
		f.orders.On("FindByID", ctx, 55).Return(stale, nil).Once()
		f.expiry.On("ExpireIfDue", ctx, stale).Return(cancelled, nil).Once()

		order, err := f.svc.GetOrder(ctx, 7, 55)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, order.Status)
	})

	t.Run("Failed - other buyer's order reads as not found", func(t *testing.T) {
		f := newReservationFixture()

		f.orders.On("FindByID", ctx, 55).Return(&model.Order{ID: 55, BuyerID: 8}, nil).Once()

		_, err := f.svc.GetOrder(ctx, 7, 55)
		assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
		f.expiry.AssertNotCalled(t, "ExpireIfDue", mock.Anything, mock.Anything)
	})
}
