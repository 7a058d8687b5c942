package domain

import "context"

// SeedSize is the length of a block-scoped entropy seed.
const SeedSize = 32

// Seed is the block/epoch-scoped random material supplied by the host.
type Seed [SeedSize]byte

// EntropySource supplies the per-block seed and the index of the operation
// currently executing within that block. Both are read-only to the core.
type EntropySource interface {
	CurrentSeed() Seed
	OperationIndex() uint32
}

// EscrowLedger is the fungible balance subsystem consulted by funded
// operations. It has no shared atomicity with the creature registry.
type EscrowLedger interface {
	// Reserve moves amount from the account's free balance into its reserved
	// balance, failing with ErrInsufficientFunds when free balance is short.
	Reserve(ctx context.Context, account AccountID, amount Balance) error
	// Unreserve moves up to amount back to the free balance. The returned
	// value is the part of amount that was not reserved and so not moved.
	Unreserve(ctx context.Context, account AccountID, amount Balance) (Balance, error)
	// TransferReservedToFree moves amount out of from's reserved balance into
	// to's free balance, failing with ErrInsufficientFunds when from has less
	// reserved.
	TransferReservedToFree(ctx context.Context, from, to AccountID, amount Balance) error
	FreeBalance(ctx context.Context, account AccountID) (Balance, error)
	ReservedBalance(ctx context.Context, account AccountID) (Balance, error)
}

// Request is an inbound call as delivered by the host, before authentication.
type Request struct {
	Account   AccountID `json:"account"`
	Namespace string    `json:"namespace"`
	Nonce     uint64    `json:"nonce"`
	Signature []byte    `json:"signature,omitempty"`
	Body      []byte    `json:"body"`
}

// Authenticator attributes a request to an account. Failures wrap
// ErrUnauthenticated.
type Authenticator interface {
	Authenticate(ctx context.Context, req Request) (AccountID, error)
}
