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

type TicketRepository interface {
	ListByOrder(ctx context.Context, orderID int) ([]*model.Ticket, error)
	FindByScanCode(ctx context.Context, scanCode string) (*model.Ticket, error)
	CheckIn(ctx context.Context, scanCode string) error
	SetMintStatusByOrder(ctx context.Context, orderID int, from, to model.MintStatus) (int, error)
	// FindUnmintedOrders returns paid orders whose tickets are still waiting
	// for a mint, for the reconciler to re-dispatch.
	FindUnmintedOrders(ctx context.Context, olderThan time.Time, limit int) ([]*model.Order, error)

	// Transaction methods
	CreateBatch(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error
	CancelByOrder(ctx context.Context, tx pgx.Tx, orderID int) error
	AssignTokens(ctx context.Context, tx pgx.Tx, orderID int, tokenIDs []string) error
}

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{pool: pool}
}

const ticketColumns = `id, ticket_type_id, order_id, owner_id, scan_code, status,
		mint_status, token_id, created_at, updated_at`

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(
		&t.ID,
		&t.TicketTypeID,
		&t.OrderID,
		&t.OwnerID,
		&t.ScanCode,
		&t.Status,
		&t.MintStatus,
		&t.TokenID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateBatch materializes tickets inside the settlement transaction via
// COPY, one row per admission unit.
func (r *TicketRepositoryImpl) CreateBatch(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error {
	rows := make([][]interface{}, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, []interface{}{
			t.TicketTypeID, t.OrderID, t.OwnerID, t.ScanCode, string(t.Status), string(t.MintStatus),
		})
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"tickets"},
		[]string{"ticket_type_id", "order_id", "owner_id", "scan_code", "status", "mint_status"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to create tickets: %w", err)
	}

	return nil
}

func (r *TicketRepositoryImpl) ListByOrder(ctx context.Context, orderID int) ([]*model.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE order_id = $1 ORDER BY id`, ticketColumns)

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (r *TicketRepositoryImpl) FindByScanCode(ctx context.Context, scanCode string) (*model.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE scan_code = $1`, ticketColumns)

	t, err := scanTicket(r.pool.QueryRow(ctx, query, scanCode))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}

	return t, nil
}

// CheckIn flips a pending ticket to checked_in. The status guard rejects
// duplicate scans and cancelled or expired tickets in one statement.
func (r *TicketRepositoryImpl) CheckIn(ctx context.Context, scanCode string) error {
	query := `
		UPDATE tickets
		SET status = $1, updated_at = $2
		WHERE scan_code = $3 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query, model.TicketStatusCheckedIn, time.Now().UTC(), scanCode, model.TicketStatusPending)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrTicketNotCheckable
	}

	return nil
}

// SetMintStatusByOrder moves every ticket of an order from one mint status to
// another and reports how many moved. Used by the mint worker (unminted ->
// pending, pending -> failed) outside any settlement transaction.
func (r *TicketRepositoryImpl) SetMintStatusByOrder(ctx context.Context, orderID int, from, to model.MintStatus) (int, error) {
	query := `
		UPDATE tickets
		SET mint_status = $1, updated_at = $2
		WHERE order_id = $3 AND mint_status = $4
	`

	result, err := r.pool.Exec(ctx, query, to, time.Now().UTC(), orderID, from)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

func (r *TicketRepositoryImpl) CancelByOrder(ctx context.Context, tx pgx.Tx, orderID int) error {
	query := `
		UPDATE tickets
		SET status = $1, updated_at = $2
		WHERE order_id = $3 AND status = $4
	`

	_, err := tx.Exec(ctx, query, model.TicketStatusCancelled, time.Now().UTC(), orderID, model.TicketStatusPending)
	return err
}

// AssignTokens writes the minted token ids onto an order's tickets in
// creation order and marks them minted. Token count mismatches are rejected
// so a malformed callback cannot partially label an order.
func (r *TicketRepositoryImpl) AssignTokens(ctx context.Context, tx pgx.Tx, orderID int, tokenIDs []string) error {
	rows, err := tx.Query(ctx, `SELECT id FROM tickets WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return err
	}

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(ids) == 0 {
		return apperrors.ErrTicketNotFound
	}
	if len(ids) != len(tokenIDs) {
		return fmt.Errorf("%w: %d tickets, %d tokens", apperrors.ErrInvalidInput, len(ids), len(tokenIDs))
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for i, id := range ids {
		batch.Queue(`
			UPDATE tickets
			SET token_id = $1, mint_status = $2, updated_at = $3
			WHERE id = $4
		`, tokenIDs[i], model.MintStatusMinted, now, id)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range ids {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to assign token: %w", err)
		}
	}

	return nil
}

// FindUnmintedOrders joins paid orders against tickets still unminted (or
// stuck in pending) past the grace period.
func (r *TicketRepositoryImpl) FindUnmintedOrders(ctx context.Context, olderThan time.Time, limit int) ([]*model.Order, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM orders o
		JOIN tickets t ON t.order_id = o.id
		WHERE o.status = $1
		  AND t.mint_status IN ($2, $3)
		  AND o.paid_at < $4
		ORDER BY o.id
		LIMIT $5
	`, prefixColumns("o", orderColumns))

	rows, err := r.pool.Query(ctx, query,
		model.OrderStatusPaid, model.MintStatusUnminted, model.MintStatusPending, olderThan, limit,
	)
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
