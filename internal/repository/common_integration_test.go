package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tixgate/internal/model"
	"tixgate/internal/testutil"
)

// Repository tests run against the throwaway database from config.LoadTest.
// They skip unless TIXGATE_TEST_INTEGRATION is set.
var (
	integrationOnce sync.Once
	integrationPool *pgxpool.Pool
	integrationErr  error
)

func setupIntegration(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TIXGATE_TEST_INTEGRATION") == "" {
		t.Skip("TIXGATE_TEST_INTEGRATION not set, skipping database integration tests")
	}

	integrationOnce.Do(func() {
		pool, rdb, _, err := testutil.Setup()
		if err != nil {
			integrationErr = err
			return
		}
		// repository tests only need postgres
		rdb.Close()
		integrationPool = pool
	})
	if integrationErr != nil {
		t.Fatalf("failed to set up integration environment: %v", integrationErr)
	}

	truncateAll(t)
	return integrationPool
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := integrationPool.Exec(context.Background(),
		"TRUNCATE tickets, transactions, order_items, orders, ticket_types, shows RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func beginTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	tx, err := integrationPool.Begin(context.Background())
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

func commitTestTx(t *testing.T, tx pgx.Tx) {
	t.Helper()
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("failed to commit transaction: %v", err)
	}
}

func createTestShow(t *testing.T, startsAt time.Time) int {
	t.Helper()

	var id int
	err := integrationPool.QueryRow(context.Background(), `
		INSERT INTO shows (event_id, name, starts_at)
		VALUES (1, 'Test Show', $1)
		RETURNING id
	`, startsAt).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test show: %v", err)
	}

	return id
}

func createTestTicketType(t *testing.T, showID, total, sold int) int {
	t.Helper()

	var id int
	err := integrationPool.QueryRow(context.Background(), `
		INSERT INTO ticket_types (show_id, name, price, quantity_total, quantity_sold, min_purchase, max_purchase)
		VALUES ($1, 'GA', 150.00, $2, $3, 1, 4)
		RETURNING id
	`, showID, total, sold).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test ticket type: %v", err)
	}

	return id
}

func createTestOrder(t *testing.T, buyerID, showID int, status model.OrderStatus, expiresAt time.Time) int {
	t.Helper()

	var id int
	err := integrationPool.QueryRow(context.Background(), `
		INSERT INTO orders (buyer_id, buyer_wallet, show_id, total_amount, status, expires_at)
		VALUES ($1, '0xabc', $2, 300.00, $3, $4)
		RETURNING id
	`, buyerID, showID, status, expiresAt).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test order: %v", err)
	}

	return id
}

func markTestOrderPaid(t *testing.T, orderID int, paidAt time.Time) {
	t.Helper()

	_, err := integrationPool.Exec(context.Background(), `
		UPDATE orders SET status = 'paid', paid_at = $1 WHERE id = $2
	`, paidAt, orderID)
	if err != nil {
		t.Fatalf("failed to mark test order paid: %v", err)
	}
}

func createTestOrderItem(t *testing.T, orderID, ticketTypeID, quantity int) {
	t.Helper()

	_, err := integrationPool.Exec(context.Background(), `
		INSERT INTO order_items (order_id, ticket_type_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, 150.00)
	`, orderID, ticketTypeID, quantity)
	if err != nil {
		t.Fatalf("failed to create test order item: %v", err)
	}
}

func testPrice() decimal.Decimal {
	return decimal.RequireFromString("150.00")
}

func newScanCode() string {
	return uuid.NewString()
}
