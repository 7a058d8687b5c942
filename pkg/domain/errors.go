package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by registry, breeding and escrow operations. Callers
// match them with errors.Is; call sites wrap them with context.
var (
	// ErrCounterOverflow reports that the creature id space is exhausted.
	ErrCounterOverflow = errors.New("creature id counter overflow")
	// ErrUnknownCreature reports that no creature exists for the supplied owner and id.
	ErrUnknownCreature = errors.New("unknown creature")
	// ErrIdenticalParents reports a breeding request naming the same creature twice.
	ErrIdenticalParents = errors.New("breeding requires two different parents")
	// ErrInsufficientFunds reports that an account cannot cover a reservation or
	// reserved-balance transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBalanceOverflow reports a credit that would push an account's total
	// balance past the largest representable amount.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrUnauthenticated reports a request that could not be attributed to an account.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// UnknownCreatureError names the owner/id pair that missed.
type UnknownCreatureError struct {
	Owner AccountID
	ID    CreatureID
}

func (e UnknownCreatureError) Error() string {
	return fmt.Sprintf("creature %d not owned by %q", e.ID, e.Owner)
}

// Is matches ErrUnknownCreature.
func (e UnknownCreatureError) Is(target error) bool {
	return target == ErrUnknownCreature
}
