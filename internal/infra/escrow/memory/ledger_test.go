package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"hatchery/pkg/domain"
)

func balances(t *testing.T, l *Ledger, id domain.AccountID) (domain.Balance, domain.Balance) {
	t.Helper()
	ctx := context.Background()
	free, err := l.FreeBalance(ctx, id)
	if err != nil {
		t.Fatalf("free: %v", err)
	}
	reserved, err := l.ReservedBalance(ctx, id)
	if err != nil {
		t.Fatalf("reserved: %v", err)
	}
	return free, reserved
}

func TestLedgerReserveAndUnreserve(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(map[domain.AccountID]domain.Balance{"1": 10000})

	if err := l.Reserve(ctx, "1", 10001); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if free, reserved := balances(t, l, "1"); free != 10000 || reserved != 0 {
		t.Fatalf("failed reserve must not move funds: %d/%d", free, reserved)
	}
	if err := l.Reserve(ctx, "1", 2500); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if free, reserved := balances(t, l, "1"); free != 7500 || reserved != 2500 {
		t.Fatalf("unexpected balances %d/%d", free, reserved)
	}

	left, err := l.Unreserve(ctx, "1", 3000)
	if err != nil {
		t.Fatalf("unreserve: %v", err)
	}
	if left != 500 {
		t.Fatalf("expected 500 not unreserved, got %d", left)
	}
	if free, reserved := balances(t, l, "1"); free != 10000 || reserved != 0 {
		t.Fatalf("unexpected balances %d/%d", free, reserved)
	}
}

func TestLedgerTransferReservedToFree(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(map[domain.AccountID]domain.Balance{"1": 10000, "2": 10000})
	if err := l.Reserve(ctx, "1", 1000); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := l.TransferReservedToFree(ctx, "1", "2", 1001); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := l.TransferReservedToFree(ctx, "1", "2", 600); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if free, reserved := balances(t, l, "1"); free != 9000 || reserved != 400 {
		t.Fatalf("sender balances %d/%d", free, reserved)
	}
	if free, reserved := balances(t, l, "2"); free != 10600 || reserved != 0 {
		t.Fatalf("recipient balances %d/%d", free, reserved)
	}
}

func TestLedgerCreditOverflowFails(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(map[domain.AccountID]domain.Balance{"payer": 20})
	if err := l.Deposit(ctx, "whale", math.MaxUint64-5); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := l.Reserve(ctx, "whale", 10); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := l.Deposit(ctx, "whale", 10); !errors.Is(err, domain.ErrBalanceOverflow) {
		t.Fatalf("expected overflow on deposit, got %v", err)
	}
	if free, reserved := balances(t, l, "whale"); free != math.MaxUint64-15 || reserved != 10 {
		t.Fatalf("failed deposit changed balances: %d/%d", free, reserved)
	}

	if err := l.Reserve(ctx, "payer", 20); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := l.TransferReservedToFree(ctx, "payer", "whale", 20); !errors.Is(err, domain.ErrBalanceOverflow) {
		t.Fatalf("expected overflow on transfer, got %v", err)
	}
	if free, reserved := balances(t, l, "payer"); free != 0 || reserved != 20 {
		t.Fatalf("failed transfer must leave the payer's reserve intact: %d/%d", free, reserved)
	}
	if err := l.TransferReservedToFree(ctx, "payer", "whale", 5); err != nil {
		t.Fatalf("transfer up to the limit: %v", err)
	}
	if free, _ := balances(t, l, "whale"); free != math.MaxUint64-10 {
		t.Fatalf("unexpected whale free balance %d", free)
	}
	if free, reserved := balances(t, l, "nobody"); free != 0 || reserved != 0 {
		t.Fatalf("unknown accounts must read as empty")
	}
}
