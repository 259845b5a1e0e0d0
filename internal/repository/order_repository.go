package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tixgate/internal/model"
	apperrors "tixgate/pkg/app_errors"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id int) (*model.Order, error)
	ListItems(ctx context.Context, orderID int) ([]*model.OrderItem, error)
	FindPendingByBuyer(ctx context.Context, buyerID int, since time.Time) ([]*model.Order, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error)
	CreateItems(ctx context.Context, tx pgx.Tx, items []*model.OrderItem) error
	ListItemsTx(ctx context.Context, tx pgx.Tx, orderID int) ([]*model.OrderItem, error)
	// MarkIfPending flips a pending order to a terminal status; the WHERE
	// clause makes settlement and expiry mutually exclusive. Zero rows
	// affected returns ErrOrderNotPending.
	MarkIfPending(ctx context.Context, tx pgx.Tx, id int, status model.OrderStatus) (*model.Order, error)
	MarkPaidIfPending(ctx context.Context, tx pgx.Tx, id int, method, transactionCode string, paidAt time.Time) (*model.Order, error)
	FindExpiredForUpdate(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]*model.Order, error)
}

type OrderRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &OrderRepositoryImpl{pool: pool}
}

const orderColumns = `id, buyer_id, buyer_wallet, show_id, total_amount, status, expires_at,
		payment_method, transaction_code, paid_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&order.BuyerWallet,
		&order.ShowID,
		&order.TotalAmount,
		&order.Status,
		&order.ExpiresAt,
		&order.PaymentMethod,
		&order.TransactionCode,
		&order.PaidAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	query := fmt.Sprintf(`
		INSERT INTO orders (buyer_id, buyer_wallet, show_id, total_amount, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, orderColumns)

	created, err := scanOrder(tx.QueryRow(ctx, query,
		order.BuyerID, order.BuyerWallet, order.ShowID, order.TotalAmount, order.Status, order.ExpiresAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	created.Items = order.Items
	return created, nil
}

func (r *OrderRepositoryImpl) CreateItems(ctx context.Context, tx pgx.Tx, items []*model.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, ticket_type_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	for _, item := range items {
		err := tx.QueryRow(ctx, query,
			item.OrderID, item.TicketTypeID, item.Quantity, item.PriceAtPurchase,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

func (r *OrderRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

const orderItemColumns = `id, order_id, ticket_type_id, quantity, price_at_purchase`

func scanOrderItems(rows pgx.Rows) ([]*model.OrderItem, error) {
	defer rows.Close()

	var items []*model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.TicketTypeID,
			&item.Quantity,
			&item.PriceAtPurchase,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *OrderRepositoryImpl) ListItems(ctx context.Context, orderID int) ([]*model.OrderItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_items WHERE order_id = $1 ORDER BY ticket_type_id`, orderItemColumns)

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	return scanOrderItems(rows)
}

func (r *OrderRepositoryImpl) ListItemsTx(ctx context.Context, tx pgx.Tx, orderID int) ([]*model.OrderItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_items WHERE order_id = $1 ORDER BY ticket_type_id`, orderItemColumns)

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	return scanOrderItems(rows)
}

// FindPendingByBuyer returns the buyer's pending orders created since the
// given time. The reservation service cancels these before opening a new
// reservation so one buyer cannot hold multiple slices of inventory.
func (r *OrderRepositoryImpl) FindPendingByBuyer(ctx context.Context, buyerID int, since time.Time) ([]*model.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE buyer_id = $1 AND status = $2 AND created_at >= $3
		ORDER BY created_at
	`, orderColumns)

	rows, err := r.pool.Query(ctx, query, buyerID, model.OrderStatusPending, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepositoryImpl) MarkIfPending(ctx context.Context, tx pgx.Tx, id int, status model.OrderStatus) (*model.Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING %s
	`, orderColumns)

	order, err := scanOrder(tx.QueryRow(ctx, query, status, time.Now().UTC(), id, model.OrderStatusPending))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrOrderNotPending
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	return order, nil
}

func (r *OrderRepositoryImpl) MarkPaidIfPending(ctx context.Context, tx pgx.Tx, id int, method, transactionCode string, paidAt time.Time) (*model.Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders
		SET status = $1, payment_method = $2, transaction_code = $3, paid_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7
		RETURNING %s
	`, orderColumns)

	order, err := scanOrder(tx.QueryRow(ctx, query,
		model.OrderStatusPaid, method, transactionCode, paidAt, time.Now().UTC(), id, model.OrderStatusPending,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrOrderNotPending
		}
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	return order, nil
}

// FindExpiredForUpdate picks up to limit expired pending orders, locking them
// with SKIP LOCKED so concurrent reaper instances shard the work instead of
// blocking on each other.
func (r *OrderRepositoryImpl) FindExpiredForUpdate(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]*model.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`, orderColumns)

	rows, err := tx.Query(ctx, query, model.OrderStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
