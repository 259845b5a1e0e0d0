package model

import "github.com/shopspring/decimal"

// PaymentConfirmation is a verified, already-authenticated confirmation from
// the gateway. Both the server-to-server webhook and the client finalize
// redirect are parsed into this value before reaching the settlement core;
// the transports differ only in how the acknowledgement is rendered.
type PaymentConfirmation struct {
	OrderID int
	// Success is the gateway's response code collapsed to its outcome.
	Success bool
	// Amount is in major units; transports convert from the gateway's
	// minor-unit (x100) representation before building the confirmation.
	Amount          decimal.Decimal
	PaymentMethod   string
	TransactionCode string
}

// SettlementResult is the recorded outcome of a settlement, also returned for
// duplicate confirmations so the gateway sees the original result.
type SettlementResult struct {
	OrderID int         `json:"order_id"`
	Status  OrderStatus `json:"status"`
	// Duplicate marks a re-delivered confirmation for an order that had
	// already reached a terminal state. Nothing was written.
	Duplicate bool `json:"duplicate"`
}

// MintJob is the hand-off to the external minting worker. At-least-once
// delivery; the worker is idempotent on OrderID.
type MintJob struct {
	OrderID   int    `json:"order_id"`
	Recipient string `json:"recipient"`
	Quantity  int    `json:"quantity"`
}

// MintResult is the worker's callback payload after anchoring tickets
// on-chain. Mapping assigns token ids to each order's tickets in creation
// order.
type MintResult struct {
	OrderIDs []int              `json:"order_ids"`
	TxHash   string             `json:"tx_hash"`
	Mapping  []MintOrderMapping `json:"mapping"`
}

type MintOrderMapping struct {
	OrderID  int      `json:"order_id"`
	TokenIDs []string `json:"token_ids"`
}
