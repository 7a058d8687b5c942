package core

import (
	"context"
	"errors"
	"fmt"

	"hatchery/pkg/domain"
)

// ErrEscrowUnavailable is returned by funded and escrow operations when the
// service was built without WithEscrowLedger.
var ErrEscrowUnavailable = errors.New("escrow ledger not configured")

// ReserveFunds moves amount of account's free balance into reserve.
func (s *Service) ReserveFunds(ctx context.Context, account AccountID, amount Balance) error {
	return s.mutate(ctx, OpReserveFunds, account, func(ctx context.Context) (string, error) {
		ledger, err := s.ledger()
		if err != nil {
			return "", err
		}
		if err := ledger.Reserve(ctx, account, amount); err != nil {
			return "", fmt.Errorf("reserve %d for %q: %w", amount, account, err)
		}
		s.emit(ctx, Event{Kind: domain.EventFundsReserved, Account: account, Amount: amount})
		return string(account), nil
	})
}

// ReleaseFunds returns up to amount of account's reserve to its free balance.
// Asking for more than is reserved is not an error; the part that could not
// be released is returned.
func (s *Service) ReleaseFunds(ctx context.Context, account AccountID, amount Balance) (Balance, error) {
	var remainder Balance
	err := s.mutate(ctx, OpReleaseFunds, account, func(ctx context.Context) (string, error) {
		ledger, err := s.ledger()
		if err != nil {
			return "", err
		}
		remainder, err = ledger.Unreserve(ctx, account, amount)
		if err != nil {
			return "", fmt.Errorf("release %d for %q: %w", amount, account, err)
		}
		s.emit(ctx, Event{Kind: domain.EventFundsReleased, Account: account, Amount: amount - remainder})
		return string(account), nil
	})
	return remainder, err
}

// TransferReserved pays amount out of from's reserve into to's free balance.
func (s *Service) TransferReserved(ctx context.Context, from, to AccountID, amount Balance) error {
	return s.mutate(ctx, OpTransferReserved, from, func(ctx context.Context) (string, error) {
		ledger, err := s.ledger()
		if err != nil {
			return "", err
		}
		if err := ledger.TransferReservedToFree(ctx, from, to, amount); err != nil {
			return "", fmt.Errorf("transfer reserved %d from %q to %q: %w", amount, from, to, err)
		}
		s.emit(ctx, Event{Kind: domain.EventFundsTransferred, Account: from, Counterparty: to, Amount: amount})
		return string(from), nil
	})
}

// FundedCreate creates a creature and then reserves amount from owner. When
// the reservation fails the creature is retracted, the counter restored and
// the reservation error returned.
func (s *Service) FundedCreate(ctx context.Context, owner AccountID, amount Balance) (CreatureID, error) {
	return s.funded(ctx, OpFundedCreate, owner, amount, func(ctx context.Context) (CreatureID, error) {
		return s.create(ctx, owner)
	})
}

// FundedBreed is Breed followed by a reservation of amount, with the same
// compensation as FundedCreate.
func (s *Service) FundedBreed(ctx context.Context, owner AccountID, p1, p2 CreatureID, amount Balance) (CreatureID, error) {
	return s.funded(ctx, OpFundedBreed, owner, amount, func(ctx context.Context) (CreatureID, error) {
		return s.breed(ctx, owner, p1, p2)
	})
}

func (s *Service) funded(ctx context.Context, op string, owner AccountID, amount Balance, mint func(context.Context) (CreatureID, error)) (CreatureID, error) {
	var id CreatureID
	err := s.mutate(ctx, op, owner, func(ctx context.Context) (string, error) {
		ledger, err := s.ledger()
		if err != nil {
			return "", err
		}
		created, err := mint(ctx)
		if err != nil {
			return "", err
		}
		entityID := created.String()
		if err := ledger.Reserve(ctx, owner, amount); err != nil {
			reserveErr := fmt.Errorf("reserve %d for creature %d: %w", amount, created, err)
			if retractErr := s.retract(ctx, owner, created); retractErr != nil {
				return entityID, errors.Join(reserveErr, retractErr)
			}
			return entityID, reserveErr
		}
		id = created
		s.emit(ctx, Event{Kind: domain.EventCreated, Account: owner, CreatureID: created})
		s.emit(ctx, Event{Kind: domain.EventFundsReserved, Account: owner, Amount: amount, CreatureID: created})
		return entityID, nil
	})
	return id, err
}

func (s *Service) ledger() (domain.EscrowLedger, error) {
	if s.opts.escrow == nil {
		return nil, ErrEscrowUnavailable
	}
	return s.opts.escrow, nil
}
