package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusSuccess  TransactionStatus = "success"
	TransactionStatusFailed   TransactionStatus = "failed"
	TransactionStatusRefunded TransactionStatus = "refunded"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusRefunded:
		return true
	}
	return false
}

// Transaction is an append-only ledger entry, one per settlement attempt.
// It is deliberately separate from the order: the order is mutable state,
// the ledger is the audit trail. The only permitted change after creation
// is success -> refunded, guarded by a conditional update.
type Transaction struct {
	ID              int               `json:"id" db:"id"`
	OrderID         int               `json:"order_id" db:"order_id"`
	Amount          decimal.Decimal   `json:"amount" db:"amount"`
	PaymentMethod   string            `json:"payment_method" db:"payment_method"`
	TransactionCode *string           `json:"transaction_code,omitempty" db:"transaction_code"`
	Status          TransactionStatus `json:"status" db:"status"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}
