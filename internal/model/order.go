package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status is a final state. A terminal order
// never changes status again; this is the settlement idempotency gate.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled || s == OrderStatusFailed
}

// CanTransitionTo checks the order state machine: pending goes to exactly one
// terminal state, terminal states go nowhere.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s != OrderStatusPending {
		return false
	}
	return target.IsTerminal()
}

// Order is the mutable reservation state. Status only ever moves through a
// conditional "still pending" update, so the settlement processor and the
// expiry reaper cannot both win the same order.
type Order struct {
	ID      int `json:"id" db:"id"`
	BuyerID int `json:"buyer_id" db:"buyer_id"`
	// BuyerWallet is the payout address the mint job is dispatched to,
	// captured from the buyer's token at reservation time.
	BuyerWallet string          `json:"buyer_wallet" db:"buyer_wallet"`
	ShowID      int             `json:"show_id" db:"show_id"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status      OrderStatus     `json:"status" db:"status"`
	ExpiresAt   time.Time       `json:"expires_at" db:"expires_at"`

	// payment metadata, set once on settlement
	PaymentMethod   *string    `json:"payment_method,omitempty" db:"payment_method"`
	TransactionCode *string    `json:"transaction_code,omitempty" db:"transaction_code"`
	PaidAt          *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Items []*OrderItem `json:"items,omitempty" db:"-"`
}

// IsExpired reports whether a pending order has outlived its reservation TTL.
// Expiry is data-driven; nothing relies on a live timer having fired.
func (o *Order) IsExpired(now time.Time) bool {
	return o.Status == OrderStatusPending && now.After(o.ExpiresAt)
}

// TicketCount is the number of tickets the order materializes when paid.
func (o *Order) TicketCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// OrderItem is an immutable line item. PriceAtPurchase snapshots the catalog
// price so later price changes cannot alter a committed order.
type OrderItem struct {
	ID              int             `json:"id" db:"id"`
	OrderID         int             `json:"order_id" db:"order_id"`
	TicketTypeID    int             `json:"ticket_type_id" db:"ticket_type_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase" db:"price_at_purchase"`
}

// Subtotal is PriceAtPurchase * Quantity.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ReserveItem is one requested line of a reservation.
type ReserveItem struct {
	TicketTypeID int `json:"ticket_type_id" binding:"required"`
	Quantity     int `json:"quantity" binding:"required,min=1"`
}

// ReserveRequest creates a pending order holding inventory for the buyer.
type ReserveRequest struct {
	ShowID int           `json:"show_id" binding:"required"`
	Items  []ReserveItem `json:"items" binding:"required,min=1,dive"`
}

// ReserveResponse is returned to the buyer after a committed reservation.
type ReserveResponse struct {
	OrderID     int             `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// OrderStatusResponse is the order-status read, including the order's
// ledger entries so the buyer sees failed and refunded attempts.
type OrderStatusResponse struct {
	OrderID      int             `json:"order_id"`
	Status       OrderStatus     `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Transactions []*Transaction  `json:"transactions,omitempty"`
}
