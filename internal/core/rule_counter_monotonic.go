package core

import (
	"context"
	"fmt"

	"hatchery/pkg/domain"
)

const counterMonotonicRuleName = "counter_monotonic"

// CounterMonotonicRule blocks commits that would leave a created creature
// above the global counter. Retractions are the one sanctioned way the
// counter moves backwards and are exempt.
func CounterMonotonicRule() domain.Rule {
	return counterMonotonicRule{}
}

type counterMonotonicRule struct{}

func (counterMonotonicRule) Name() string { return counterMonotonicRuleName }

func (counterMonotonicRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	counter := view.CreatureCount()
	for _, change := range changes {
		if change.Entity != domain.EntityCreature || change.Action != domain.ActionCreate {
			continue
		}
		created, ok := change.After.(domain.Ownership)
		if !ok {
			continue
		}
		if created.ID == 0 || created.ID > counter {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     counterMonotonicRuleName,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("creature %d allocated outside counter %d", created.ID, counter),
				Entity:   domain.EntityCounter,
				EntityID: created.ID.String(),
			})
		}
	}
	return res, nil
}
