// Package redis implements the escrow ledger on Redis. Each account is a hash
// with "free" and "reserved" integer fields; every balance movement runs as a
// single Lua script so it is atomic per call.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"hatchery/pkg/domain"
)

var _ domain.EscrowLedger = (*Ledger)(nil)

// MaxAmount is the largest amount accepted. Lua numbers are float64, so
// larger values would lose precision inside the scripts.
const MaxAmount domain.Balance = 1<<53 - 1

const (
	fieldFree     = "free"
	fieldReserved = "reserved"

	// DefaultKeyPrefix namespaces account hashes.
	DefaultKeyPrefix = "hatchery:escrow:"
)

var errAmountTooLarge = errors.New("amount exceeds ledger precision")

// Scripts pass ARGV and stored values to HINCRBY as strings; Lua would
// format large numbers in exponent notation.
var reserveScript = redis.NewScript(`
local free = tonumber(redis.call('HGET', KEYS[1], 'free') or '0')
if free < tonumber(ARGV[1]) then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'free', '-' .. ARGV[1])
redis.call('HINCRBY', KEYS[1], 'reserved', ARGV[1])
return 1
`)

var unreserveScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], 'reserved') or '0'
local reserved = tonumber(raw)
local amount = tonumber(ARGV[1])
local moved = ARGV[1]
if reserved < amount then
  moved = raw
end
if tonumber(moved) > 0 then
  redis.call('HINCRBY', KEYS[1], 'reserved', '-' .. moved)
  redis.call('HINCRBY', KEYS[1], 'free', moved)
end
return amount - tonumber(moved)
`)

var transferReservedScript = redis.NewScript(`
local reserved = tonumber(redis.call('HGET', KEYS[1], 'reserved') or '0')
if reserved < tonumber(ARGV[1]) then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'reserved', '-' .. ARGV[1])
redis.call('HINCRBY', KEYS[2], 'free', ARGV[1])
return 1
`)

// Ledger stores balances in Redis hashes.
type Ledger struct {
	client *redis.Client
	prefix string
}

// NewLedger wraps a client. An empty prefix selects DefaultKeyPrefix.
func NewLedger(client *redis.Client, prefix string) *Ledger {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Ledger{client: client, prefix: prefix}
}

func (l *Ledger) key(id domain.AccountID) string {
	return l.prefix + string(id)
}

func checkAmount(amount domain.Balance) error {
	if amount > MaxAmount {
		return fmt.Errorf("%d: %w", amount, errAmountTooLarge)
	}
	return nil
}

// Deposit credits free balance.
func (l *Ledger) Deposit(ctx context.Context, id domain.AccountID, amount domain.Balance) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.client.HIncrBy(ctx, l.key(id), fieldFree, int64(amount)).Err(); err != nil {
		return fmt.Errorf("deposit to %q: %w", id, err)
	}
	return nil
}

// Genesis sets the free balance of every listed account that has no hash
// yet. Accounts already present keep their balances, so seeding on every
// start is safe.
func (l *Ledger) Genesis(ctx context.Context, balances map[domain.AccountID]domain.Balance) error {
	for id, amount := range balances {
		if err := checkAmount(amount); err != nil {
			return err
		}
		if err := l.client.HSetNX(ctx, l.key(id), fieldFree, strconv.FormatUint(uint64(amount), 10)).Err(); err != nil {
			return fmt.Errorf("seed %q: %w", id, err)
		}
	}
	return nil
}

// Reserve moves amount from free to reserved.
func (l *Ledger) Reserve(ctx context.Context, id domain.AccountID, amount domain.Balance) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	ok, err := reserveScript.Run(ctx, l.client, []string{l.key(id)}, uint64(amount)).Int()
	if err != nil {
		return fmt.Errorf("reserve for %q: %w", id, err)
	}
	if ok == 0 {
		return fmt.Errorf("reserve %d from %q: %w", amount, id, domain.ErrInsufficientFunds)
	}
	return nil
}

// Unreserve moves up to amount back to free, returning the remainder.
func (l *Ledger) Unreserve(ctx context.Context, id domain.AccountID, amount domain.Balance) (domain.Balance, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, nil
	}
	left, err := unreserveScript.Run(ctx, l.client, []string{l.key(id)}, uint64(amount)).Int64()
	if err != nil {
		return 0, fmt.Errorf("unreserve for %q: %w", id, err)
	}
	return domain.Balance(left), nil
}

// TransferReservedToFree moves reserved funds of from into to's free balance.
func (l *Ledger) TransferReservedToFree(ctx context.Context, from, to domain.AccountID, amount domain.Balance) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	ok, err := transferReservedScript.Run(ctx, l.client, []string{l.key(from), l.key(to)}, uint64(amount)).Int()
	if err != nil {
		return fmt.Errorf("transfer reserved from %q: %w", from, err)
	}
	if ok == 0 {
		return fmt.Errorf("transfer %d reserved from %q: %w", amount, from, domain.ErrInsufficientFunds)
	}
	return nil
}

// FreeBalance reports the spendable balance.
func (l *Ledger) FreeBalance(ctx context.Context, id domain.AccountID) (domain.Balance, error) {
	return l.field(ctx, id, fieldFree)
}

// ReservedBalance reports the reserved balance.
func (l *Ledger) ReservedBalance(ctx context.Context, id domain.AccountID) (domain.Balance, error) {
	return l.field(ctx, id, fieldReserved)
}

func (l *Ledger) field(ctx context.Context, id domain.AccountID, field string) (domain.Balance, error) {
	raw, err := l.client.HGet(ctx, l.key(id), field).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s balance of %q: %w", field, id, err)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s balance of %q: %w", field, id, err)
	}
	return domain.Balance(v), nil
}
