package model

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "tixgate/pkg/app_errors"
)

// TicketType is the capacity unit. QuantitySold is the single point of write
// contention in the system; it is only ever mutated through bounded SQL
// updates, never from values read into application memory.
type TicketType struct {
	ID            int             `json:"id" db:"id"`
	ShowID        int             `json:"show_id" db:"show_id"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	QuantityTotal int             `json:"quantity_total" db:"quantity_total"`
	QuantitySold  int             `json:"quantity_sold" db:"quantity_sold"`
	MinPurchase   int             `json:"min_purchase" db:"min_purchase"`
	MaxPurchase   int             `json:"max_purchase" db:"max_purchase"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Remaining returns the unsold capacity at the time of the read. Advisory
// only; reservations re-check inside their transaction.
func (t *TicketType) Remaining() int {
	return t.QuantityTotal - t.QuantitySold
}

// ValidateQuantity checks the per-order purchase bounds.
func (t *TicketType) ValidateQuantity(quantity int) error {
	if quantity < t.MinPurchase {
		return apperrors.ErrBelowMinPurchase
	}
	if t.MaxPurchase > 0 && quantity > t.MaxPurchase {
		return apperrors.ErrExceedsMaxPurchase
	}
	return nil
}
