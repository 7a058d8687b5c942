package core

import (
	"context"
	"fmt"

	"hatchery/pkg/domain"
)

const ownershipConsistencyRuleName = "ownership_consistency"

// OwnershipConsistencyRule checks that the primary store, reverse index and
// per-owner listings agree for every owner and creature a transaction touched.
func OwnershipConsistencyRule() domain.Rule {
	return ownershipConsistencyRule{}
}

type ownershipConsistencyRule struct{}

func (ownershipConsistencyRule) Name() string { return ownershipConsistencyRuleName }

func (ownershipConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	owners := make(map[domain.AccountID]struct{})
	// last recorded owner per creature; empty after a retraction
	expected := make(map[domain.CreatureID]domain.AccountID)
	var order []domain.CreatureID
	for _, change := range changes {
		if change.Entity != domain.EntityCreature {
			continue
		}
		var id domain.CreatureID
		var owner domain.AccountID
		if before, ok := change.Before.(domain.Ownership); ok {
			owners[before.Owner] = struct{}{}
			id = before.ID
		}
		if after, ok := change.After.(domain.Ownership); ok {
			owners[after.Owner] = struct{}{}
			id, owner = after.ID, after.Owner
		}
		if _, tracked := expected[id]; !tracked {
			order = append(order, id)
		}
		expected[id] = owner
	}

	for _, id := range order {
		want := expected[id]
		got, found := view.OwnerOf(id)
		switch {
		case want == "" && found:
			res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("retracted creature %d still indexed to %q", id, got)))
		case want != "" && (!found || got != want):
			res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("reverse index maps creature %d to %q, expected %q", id, got, want)))
		}
		for owner := range owners {
			if owner == want {
				continue
			}
			if _, stale := view.FindCreature(owner, id); stale {
				res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("creature %d still keyed under %q", id, owner)))
			}
		}
	}

	listed := make(map[domain.AccountID]map[domain.CreatureID]struct{}, len(owners))
	for owner := range owners {
		seen := make(map[domain.CreatureID]struct{})
		listed[owner] = seen
		for _, entry := range view.ListCreatures(owner) {
			if _, dup := seen[entry.ID]; dup {
				res.Violations = append(res.Violations, ownershipViolation(entry.ID, fmt.Sprintf("creature %d listed twice for %q", entry.ID, owner)))
				continue
			}
			seen[entry.ID] = struct{}{}
			if mapped, ok := view.OwnerOf(entry.ID); !ok || mapped != owner {
				res.Violations = append(res.Violations, ownershipViolation(entry.ID, fmt.Sprintf("creature %d listed for %q but indexed to %q", entry.ID, owner, mapped)))
			}
			stored, ok := view.FindCreature(owner, entry.ID)
			if !ok || stored != entry.Creature {
				res.Violations = append(res.Violations, ownershipViolation(entry.ID, fmt.Sprintf("creature %d listing for %q disagrees with primary store", entry.ID, owner)))
			}
		}
	}

	for _, id := range order {
		want := expected[id]
		if want == "" {
			continue
		}
		if _, ok := listed[want][id]; !ok {
			res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("creature %d missing from %q listing", id, want)))
		}
		if _, ok := view.FindCreature(want, id); !ok {
			res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("creature %d missing from primary store under %q", id, want)))
		}
	}
	return res, nil
}

func ownershipViolation(id domain.CreatureID, message string) domain.Violation {
	return domain.Violation{
		Rule:     ownershipConsistencyRuleName,
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityCreature,
		EntityID: id.String(),
	}
}
