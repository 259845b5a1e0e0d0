package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "tixgate/pkg/app_errors"
)

// ErrNotWarmed means the gate has no counters for a ticket type yet. The
// caller warms it from the database and retries; the gate never guesses.
var ErrNotWarmed = errors.New("ticket type not warmed in inventory gate")

// InventoryGate is a best-effort Redis fast path in front of the reservation
// transaction: sold-out and over-limit requests fail here before touching
// postgres. It is advisory only: the database's bounded updates remain the
// source of truth, and every release path (expiry, failed settlement, buyer
// self-cancel) must roll the gate back to keep it roughly in sync.
type InventoryGate interface {
	Warm(ctx context.Context, ticketTypeID int, stock int, limit int) error
	GetStock(ctx context.Context, ticketTypeID int) (int, error)
	// Reserve atomically checks stock and the buyer's purchase ledger for
	// one ticket type and applies the decrement.
	Reserve(ctx context.Context, ticketTypeID int, quantity int, buyerID int) error
	// Release undoes a Reserve. Safe to call for never-warmed types.
	Release(ctx context.Context, ticketTypeID int, quantity int, buyerID int) error
}

type RedisInventoryGate struct {
	client *redis.Client
}

func NewInventoryGate(client *redis.Client) InventoryGate {
	return &RedisInventoryGate{client: client}
}

func (g *RedisInventoryGate) infoKey(ticketTypeID int) string {
	return fmt.Sprintf("tickettype:%d:info", ticketTypeID)
}

func (g *RedisInventoryGate) buyersKey(ticketTypeID int) string {
	return fmt.Sprintf("tickettype:%d:buyers", ticketTypeID)
}

func (g *RedisInventoryGate) Warm(ctx context.Context, ticketTypeID int, stock int, limit int) error {
	return g.client.HSet(ctx, g.infoKey(ticketTypeID), "stock", stock, "limit", limit).Err()
}

func (g *RedisInventoryGate) GetStock(ctx context.Context, ticketTypeID int) (int, error) {
	val, err := g.client.HGet(ctx, g.infoKey(ticketTypeID), "stock").Int()
	if err == redis.Nil {
		return -1, ErrNotWarmed
	}
	return val, err
}

// reserveScript checks stock and the per-buyer ledger, then applies both
// decrements in one atomic step.
const reserveScript = `
	local info_key = KEYS[1]
	local buyers_key = KEYS[2]
	local buyer_id = ARGV[1]
	local qty = tonumber(ARGV[2])

	local info = redis.call('HMGET', info_key, 'stock', 'limit')
	local stock = info[1]
	local limit = info[2]

	if not stock or not limit then
		return -3
	end
	if tonumber(stock) < qty then
		return -1
	end

	local bought = redis.call('HGET', buyers_key, buyer_id) or '0'
	if tonumber(limit) > 0 and tonumber(bought) + qty > tonumber(limit) then
		return -2
	end

	redis.call('HINCRBY', info_key, 'stock', -qty)
	redis.call('HINCRBY', buyers_key, buyer_id, qty)
	return 1
`

func (g *RedisInventoryGate) Reserve(ctx context.Context, ticketTypeID int, quantity int, buyerID int) error {
	result, err := g.client.Eval(ctx, reserveScript,
		[]string{g.infoKey(ticketTypeID), g.buyersKey(ticketTypeID)},
		buyerID, quantity,
	).Result()
	if err != nil {
		return err
	}

	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("unexpected gate result %v", result)
	}

	switch code {
	case 1:
		return nil
	case -1:
		return apperrors.ErrInsufficientStock
	case -2:
		return apperrors.ErrExceedsMaxPurchase
	case -3:
		return ErrNotWarmed
	default:
		return fmt.Errorf("unexpected gate code %d", code)
	}
}

// releaseScript is a no-op for never-warmed types so release paths do not
// conjure counters out of nothing.
const releaseScript = `
	local info_key = KEYS[1]
	local buyers_key = KEYS[2]
	local buyer_id = ARGV[1]
	local qty = tonumber(ARGV[2])

	if redis.call('EXISTS', info_key) == 0 then
		return 0
	end

	redis.call('HINCRBY', info_key, 'stock', qty)
	redis.call('HINCRBY', buyers_key, buyer_id, -qty)
	return 1
`

func (g *RedisInventoryGate) Release(ctx context.Context, ticketTypeID int, quantity int, buyerID int) error {
	return g.client.Eval(ctx, releaseScript,
		[]string{g.infoKey(ticketTypeID), g.buyersKey(ticketTypeID)},
		buyerID, quantity,
	).Err()
}
