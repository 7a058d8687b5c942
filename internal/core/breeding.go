package core

import (
	"context"
	"fmt"

	"hatchery/pkg/domain"
)

// Breed creates a child of two creatures owned by owner. Each genome byte of
// the child takes the bits of p1 where the entropy selector is set and the
// bits of p2 elsewhere. Identical parents are rejected before ownership is
// checked, and neither rejection allocates an id.
func (s *Service) Breed(ctx context.Context, owner AccountID, p1, p2 CreatureID) (CreatureID, error) {
	var id CreatureID
	err := s.mutate(ctx, OpBreed, owner, func(ctx context.Context) (string, error) {
		var err error
		id, err = s.breed(ctx, owner, p1, p2)
		if err != nil {
			return "", err
		}
		s.emit(ctx, Event{Kind: domain.EventCreated, Account: owner, CreatureID: id})
		return id.String(), nil
	})
	return id, err
}

func (s *Service) breed(ctx context.Context, owner AccountID, p1, p2 CreatureID) (CreatureID, error) {
	if p1 == p2 {
		return 0, fmt.Errorf("breed %d with itself: %w", p1, domain.ErrIdenticalParents)
	}
	var id CreatureID
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		first, ok := tx.FindCreature(owner, p1)
		if !ok {
			return domain.UnknownCreatureError{Owner: owner, ID: p1}
		}
		second, ok := tx.FindCreature(owner, p2)
		if !ok {
			return domain.UnknownCreatureError{Owner: owner, ID: p2}
		}
		next, err := tx.NextCreatureID()
		if err != nil {
			return err
		}
		child := domain.CombineGenomes(first.Genome, second.Genome, s.mixer.Derive(owner))
		if err := tx.InsertCreature(owner, next, Creature{Genome: child}); err != nil {
			return err
		}
		id = next
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("breed %d and %d for %q: %w", p1, p2, owner, err)
	}
	return id, nil
}
