// Package memory implements an in-process escrow ledger holding free and
// reserved balances per account.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"hatchery/pkg/domain"
)

var _ domain.EscrowLedger = (*Ledger)(nil)

type account struct {
	free     domain.Balance
	reserved domain.Balance
}

// Ledger is a mutex-guarded map of balances. The zero value is not usable;
// construct with NewLedger.
type Ledger struct {
	mu       sync.Mutex
	accounts map[domain.AccountID]account
}

// NewLedger returns a ledger whose accounts start with the supplied free
// balances and nothing reserved.
func NewLedger(genesis map[domain.AccountID]domain.Balance) *Ledger {
	l := &Ledger{accounts: make(map[domain.AccountID]account, len(genesis))}
	for id, free := range genesis {
		l.accounts[id] = account{free: free}
	}
	return l
}

// Deposit credits free balance. It fails with ErrBalanceOverflow when the
// account's total would no longer fit in a Balance.
func (l *Ledger) Deposit(_ context.Context, id domain.AccountID, amount domain.Balance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, err := credit(id, l.accounts[id], amount)
	if err != nil {
		return err
	}
	l.accounts[id] = acct
	return nil
}

// Reserve moves amount from free to reserved.
func (l *Ledger) Reserve(_ context.Context, id domain.AccountID, amount domain.Balance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.accounts[id]
	if acct.free < amount {
		return fmt.Errorf("reserve %d from %q with %d free: %w", amount, id, acct.free, domain.ErrInsufficientFunds)
	}
	acct.free -= amount
	acct.reserved += amount
	l.accounts[id] = acct
	return nil
}

// Unreserve moves up to amount back to free and returns the part of amount
// that was not reserved.
func (l *Ledger) Unreserve(_ context.Context, id domain.AccountID, amount domain.Balance) (domain.Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.accounts[id]
	moved := min(amount, acct.reserved)
	acct.reserved -= moved
	acct.free += moved
	l.accounts[id] = acct
	return amount - moved, nil
}

// TransferReservedToFree moves amount out of from's reserved balance into
// to's free balance.
func (l *Ledger) TransferReservedToFree(_ context.Context, from, to domain.AccountID, amount domain.Balance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	src := l.accounts[from]
	if src.reserved < amount {
		return fmt.Errorf("transfer %d reserved from %q holding %d: %w", amount, from, src.reserved, domain.ErrInsufficientFunds)
	}
	if from == to {
		src.reserved -= amount
		src.free += amount
		l.accounts[from] = src
		return nil
	}
	dst, err := credit(to, l.accounts[to], amount)
	if err != nil {
		return err
	}
	src.reserved -= amount
	l.accounts[from] = src
	l.accounts[to] = dst
	return nil
}

// FreeBalance reports the spendable balance.
func (l *Ledger) FreeBalance(_ context.Context, id domain.AccountID) (domain.Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[id].free, nil
}

// ReservedBalance reports the reserved balance.
func (l *Ledger) ReservedBalance(_ context.Context, id domain.AccountID) (domain.Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[id].reserved, nil
}

// credit adds amount to acct's free balance. free+reserved never exceeds
// math.MaxUint64, so moves between the two halves cannot overflow.
func credit(id domain.AccountID, acct account, amount domain.Balance) (account, error) {
	total := acct.free + acct.reserved
	if total > math.MaxUint64-amount {
		return acct, fmt.Errorf("credit %d to %q holding %d: %w", amount, id, total, domain.ErrBalanceOverflow)
	}
	acct.free += amount
	return acct, nil
}
