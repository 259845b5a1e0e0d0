package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tixgate/internal/cache"
	"tixgate/internal/model"
	"tixgate/internal/repository"
	"tixgate/internal/service"
	"tixgate/internal/testutil"
	apperrors "tixgate/pkg/app_errors"
)

// contendedTypeRepo keeps the bounded-update semantics of the SQL in memory,
// so many goroutines can fight over one ticket type's capacity without a
// database.
type contendedTypeRepo struct {
	repository.TicketTypeRepository
	mu sync.Mutex
	tt model.TicketType
}

func newContendedTypeRepo(total int) *contendedTypeRepo {
	return &contendedTypeRepo{tt: model.TicketType{
		ID:            10,
		ShowID:        1,
		Name:          "GA",
		Price:         decimal.RequireFromString("150.00"),
		QuantityTotal: total,
		MinPurchase:   1,
	}}
}

func (r *contendedTypeRepo) snapshot() *model.TicketType {
	r.mu.Lock()
	defer r.mu.Unlock()
	tt := r.tt
	return &tt
}

func (r *contendedTypeRepo) FindByID(ctx context.Context, id int) (*model.TicketType, error) {
	return r.snapshot(), nil
}

func (r *contendedTypeRepo) FindForShow(ctx context.Context, tx pgx.Tx, showID int, ids []int) ([]*model.TicketType, error) {
	return []*model.TicketType{r.snapshot()}, nil
}

func (r *contendedTypeRepo) ReserveStock(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tt.QuantitySold+quantity > r.tt.QuantityTotal {
		return apperrors.ErrInsufficientStock
	}
	r.tt.QuantitySold += quantity
	return nil
}

func (r *contendedTypeRepo) ReleaseStock(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tt.QuantitySold < quantity {
		return apperrors.ErrTicketTypeNotFound
	}
	r.tt.QuantitySold -= quantity
	return nil
}

func (r *contendedTypeRepo) Sold() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tt.QuantitySold
}

// memoryOrderRepo stores orders under a mutex with the same conditional
// transitions the SQL carries.
type memoryOrderRepo struct {
	repository.OrderRepository
	mu     sync.Mutex
	nextID int
	orders map[int]*model.Order
	items  map[int][]*model.OrderItem
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{
		orders: make(map[int]*model.Order),
		items:  make(map[int][]*model.OrderItem),
	}
}

func (r *memoryOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *order
	stored.ID = r.nextID
	r.orders[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *memoryOrderRepo) CreateItems(ctx context.Context, tx pgx.Tx, items []*model.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.OrderID] = append(r.items[item.OrderID], item)
	}
	return nil
}

func (r *memoryOrderRepo) FindByID(ctx context.Context, id int) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	out := *order
	return &out, nil
}

func (r *memoryOrderRepo) FindPendingByBuyer(ctx context.Context, buyerID int, since time.Time) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, order := range r.orders {
		if order.BuyerID == buyerID && order.Status == model.OrderStatusPending {
			pending := *order
			out = append(out, &pending)
		}
	}
	return out, nil
}

func (r *memoryOrderRepo) MarkIfPending(ctx context.Context, tx pgx.Tx, id int, status model.OrderStatus) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status != model.OrderStatusPending {
		return nil, apperrors.ErrOrderNotPending
	}
	order.Status = status
	out := *order
	return &out, nil
}

func (r *memoryOrderRepo) ListItemsTx(ctx context.Context, tx pgx.Tx, orderID int) ([]*model.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.OrderItem(nil), r.items[orderID]...), nil
}

// openGate lets every request through; capacity rests entirely on the
// bounded updates, which is exactly what these tests exercise.
type openGate struct{ cache.InventoryGate }

func (openGate) Reserve(context.Context, int, int, int) error { return nil }
func (openGate) Release(context.Context, int, int, int) error { return nil }

type staticShowRepo struct {
	repository.ShowRepository
	show model.Show
}

func (r *staticShowRepo) FindByID(ctx context.Context, id int) (*model.Show, error) {
	show := r.show
	return &show, nil
}

// freshTxStarter hands every caller its own fake transaction so concurrent
// reservations share no transaction state.
type freshTxStarter struct{}

func (freshTxStarter) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return &testutil.FakeTx{}, nil
}

func newContendedServices(types *contendedTypeRepo, orders *memoryOrderRepo) (service.ExpiryService, service.ReservationService) {
	starter := freshTxStarter{}
	gate := openGate{}
	shows := &staticShowRepo{show: model.Show{ID: 1, Name: "Evening Show", StartsAt: time.Now().UTC().Add(2 * time.Hour)}}
	expiry := service.NewExpiryService(starter, orders, types, gate, testRetry)
	reservation := service.NewReservationService(starter, shows, types, orders, gate, expiry, reservationTTL, testRetry)
	return expiry, reservation
}

// 100 buyers competing for 10 tickets: exactly 10 reservations succeed, the
// rest fail sold-out, and quantity_sold never passes quantity_total.
func TestReservationService_ConcurrentNoOversell(t *testing.T) {
	const (
		buyers     = 100
		totalStock = 10
	)

	types := newContendedTypeRepo(totalStock)
	orders := newMemoryOrderRepo()
	_, reservation := newContendedServices(types, orders)

	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0
	soldOut := 0

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(buyerID int) {
			defer wg.Done()

			req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 10, Quantity: 1}}}
			_, err := reservation.Reserve(context.Background(), buyerID, fmt.Sprintf("0x%03d", buyerID), req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, apperrors.ErrInsufficientStock):
				soldOut++
			default:
				t.Errorf("unexpected reservation error: %v", err)
			}
		}(i + 1)
	}

	wg.Wait()

	assert.Equal(t, totalStock, success, "successful reservations should equal total stock")
	assert.Equal(t, buyers-totalStock, soldOut)
	assert.Equal(t, totalStock, types.Sold(), "no oversell past quantity_total")
}

// One ticket, two simultaneous buyers: exactly one wins. When the winner's
// hold is cancelled by the reaper path, the capacity returns and a third
// buyer succeeds.
func TestReservationService_SingleTicketContentionThenExpiry(t *testing.T) {
	ctx := context.Background()
	types := newContendedTypeRepo(1)
	orders := newMemoryOrderRepo()
	expiry, reservation := newContendedServices(types, orders)

	req := model.ReserveRequest{ShowID: 1, Items: []model.ReserveItem{{TicketTypeID: 10, Quantity: 1}}}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	wonOrders := make(chan int, 2)
	for buyerID := 1; buyerID <= 2; buyerID++ {
		wg.Add(1)
		go func(buyerID int) {
			defer wg.Done()
			order, err := reservation.Reserve(ctx, buyerID, "0xabc", req)
			if err == nil {
				wonOrders <- order.ID
			}
			results <- err
		}(buyerID)
	}
	wg.Wait()
	close(results)
	close(wonOrders)

	success := 0
	soldOut := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, apperrors.ErrInsufficientStock):
			soldOut++
		default:
			t.Fatalf("unexpected reservation error: %v", err)
		}
	}
	require.Equal(t, 1, success, "exactly one buyer should hold the ticket")
	require.Equal(t, 1, soldOut)
	assert.Equal(t, 1, types.Sold())

	// the winner's hold expires: cancelling releases the capacity
	winner := <-wonOrders
	require.NoError(t, expiry.CancelPending(ctx, winner))
	assert.Equal(t, 0, types.Sold())

	cancelled, err := orders.FindByID(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)

	// a third buyer now gets the returned ticket
	order, err := reservation.Reserve(ctx, 3, "0xdef", req)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, 1, types.Sold())
}
