package model

import "time"

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusCheckedIn TicketStatus = "checked_in"
	TicketStatusExpired   TicketStatus = "expired"
	TicketStatusCancelled TicketStatus = "cancelled"
)

func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusPending, TicketStatusCheckedIn, TicketStatusExpired, TicketStatusCancelled:
		return true
	}
	return false
}

type MintStatus string

const (
	MintStatusUnminted MintStatus = "unminted"
	MintStatusPending  MintStatus = "pending"
	MintStatusMinted   MintStatus = "minted"
	MintStatusFailed   MintStatus = "failed"
)

func (s MintStatus) IsValid() bool {
	switch s {
	case MintStatusUnminted, MintStatusPending, MintStatusMinted, MintStatusFailed:
		return true
	}
	return false
}

// Ticket is one admission unit, materialized exactly once when its order is
// paid. ScanCode is globally unique and is what the door scanner presents.
type Ticket struct {
	ID           int          `json:"id" db:"id"`
	TicketTypeID int          `json:"ticket_type_id" db:"ticket_type_id"`
	OrderID      int          `json:"order_id" db:"order_id"`
	OwnerID      int          `json:"owner_id" db:"owner_id"`
	ScanCode     string       `json:"scan_code" db:"scan_code"`
	Status       TicketStatus `json:"status" db:"status"`
	MintStatus   MintStatus   `json:"mint_status" db:"mint_status"`
	TokenID      *string      `json:"token_id,omitempty" db:"token_id"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// CheckInRequest presents a scan code at the door.
type CheckInRequest struct {
	ScanCode string `json:"scan_code" binding:"required"`
}
