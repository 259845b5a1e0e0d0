package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tixgate/internal/model"
	apperrors "tixgate/pkg/app_errors"
)

// TransactionRepository writes the append-only settlement ledger. Entries are
// never deleted; the only legal mutation is success -> refunded.
type TransactionRepository interface {
	ListByOrder(ctx context.Context, orderID int) ([]*model.Transaction, error)

	// Transaction methods
	Append(ctx context.Context, tx pgx.Tx, txn *model.Transaction) (*model.Transaction, error)
	FindSuccessByOrder(ctx context.Context, tx pgx.Tx, orderID int) (*model.Transaction, error)
	MarkRefunded(ctx context.Context, tx pgx.Tx, id int) error
}

type TransactionRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) TransactionRepository {
	return &TransactionRepositoryImpl{pool: pool}
}

const transactionColumns = `id, order_id, amount, payment_method, transaction_code, status, created_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var txn model.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.OrderID,
		&txn.Amount,
		&txn.PaymentMethod,
		&txn.TransactionCode,
		&txn.Status,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepositoryImpl) Append(ctx context.Context, tx pgx.Tx, txn *model.Transaction) (*model.Transaction, error) {
	query := fmt.Sprintf(`
		INSERT INTO transactions (order_id, amount, payment_method, transaction_code, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, transactionColumns)

	created, err := scanTransaction(tx.QueryRow(ctx, query,
		txn.OrderID, txn.Amount, txn.PaymentMethod, txn.TransactionCode, txn.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	return created, nil
}

func (r *TransactionRepositoryImpl) ListByOrder(ctx context.Context, orderID int) ([]*model.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE order_id = $1
		ORDER BY created_at
	`, transactionColumns)

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return txns, nil
}

// FindSuccessByOrder returns the order's settled ledger entry, whether still
// success or already refunded, so the refund path can distinguish "nothing to
// refund" from "refunded twice".
func (r *TransactionRepositoryImpl) FindSuccessByOrder(ctx context.Context, tx pgx.Tx, orderID int) (*model.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE order_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1
	`, transactionColumns)

	statuses := []string{string(model.TransactionStatusSuccess), string(model.TransactionStatusRefunded)}
	txn, err := scanTransaction(tx.QueryRow(ctx, query, orderID, statuses))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNoSuccessfulTxn
		}
		return nil, err
	}

	return txn, nil
}

// MarkRefunded flips a successful ledger entry to refunded. The status guard
// makes a second refund of the same entry fail with ErrAlreadyRefunded
// instead of silently succeeding twice.
func (r *TransactionRepositoryImpl) MarkRefunded(ctx context.Context, tx pgx.Tx, id int) error {
	query := `
		UPDATE transactions
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := tx.Exec(ctx, query, model.TransactionStatusRefunded, id, model.TransactionStatusSuccess)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrAlreadyRefunded
	}

	return nil
}
