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

type TicketTypeRepository interface {
	FindByID(ctx context.Context, id int) (*model.TicketType, error)
	ListByShow(ctx context.Context, showID int) ([]*model.TicketType, error)

	// Transaction methods
	FindForShow(ctx context.Context, tx pgx.Tx, showID int, ids []int) ([]*model.TicketType, error)
	ReserveStock(ctx context.Context, tx pgx.Tx, id int, quantity int) error
	ReleaseStock(ctx context.Context, tx pgx.Tx, id int, quantity int) error
}

type TicketTypeRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketTypeRepository(pool *pgxpool.Pool) TicketTypeRepository {
	return &TicketTypeRepositoryImpl{pool: pool}
}

const ticketTypeColumns = `id, show_id, name, price, quantity_total, quantity_sold,
		min_purchase, max_purchase, created_at, updated_at`

func scanTicketType(row pgx.Row) (*model.TicketType, error) {
	var t model.TicketType
	err := row.Scan(
		&t.ID,
		&t.ShowID,
		&t.Name,
		&t.Price,
		&t.QuantityTotal,
		&t.QuantitySold,
		&t.MinPurchase,
		&t.MaxPurchase,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketTypeRepositoryImpl) FindByID(ctx context.Context, id int) (*model.TicketType, error) {
	query := fmt.Sprintf(`SELECT %s FROM ticket_types WHERE id = $1`, ticketTypeColumns)

	t, err := scanTicketType(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketTypeNotFound
		}
		return nil, err
	}

	return t, nil
}

func (r *TicketTypeRepositoryImpl) ListByShow(ctx context.Context, showID int) ([]*model.TicketType, error) {
	query := fmt.Sprintf(`SELECT %s FROM ticket_types WHERE show_id = $1 ORDER BY id`, ticketTypeColumns)

	rows, err := r.pool.Query(ctx, query, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*model.TicketType
	for rows.Next() {
		t, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return types, nil
}

// FindForShow re-reads the requested ticket types inside the reservation
// transaction, so capacity checks never run against a stale snapshot. Rows
// come back ordered by id; callers that lock or update multiple types in one
// transaction must keep that order to avoid deadlocking each other.
func (r *TicketTypeRepositoryImpl) FindForShow(ctx context.Context, tx pgx.Tx, showID int, ids []int) ([]*model.TicketType, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM ticket_types
		WHERE show_id = $1 AND id = ANY($2)
		ORDER BY id
	`, ticketTypeColumns)

	rows, err := tx.Query(ctx, query, showID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*model.TicketType
	for rows.Next() {
		t, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return types, nil
}

// ReserveStock applies a bounded increment to quantity_sold. The WHERE clause
// carries the capacity invariant: if the increment would pass quantity_total
// no row matches and the reservation fails with ErrInsufficientStock.
func (r *TicketTypeRepositoryImpl) ReserveStock(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	query := `
		UPDATE ticket_types
		SET quantity_sold = quantity_sold + $1, updated_at = $2
		WHERE id = $3 AND quantity_sold + $1 <= quantity_total
	`

	result, err := tx.Exec(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrInsufficientStock
	}

	return nil
}

// ReleaseStock is the symmetric bounded decrement used by the expiry reaper,
// failed settlements and buyer self-cancellation. quantity_sold never drops
// below zero.
func (r *TicketTypeRepositoryImpl) ReleaseStock(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	query := `
		UPDATE ticket_types
		SET quantity_sold = quantity_sold - $1, updated_at = $2
		WHERE id = $3 AND quantity_sold >= $1
	`

	result, err := tx.Exec(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrTicketTypeNotFound
	}

	return nil
}
