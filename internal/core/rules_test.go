package core

import (
	"context"
	"errors"
	"testing"

	"hatchery/pkg/domain"
)

// fakeView lets rule tests describe deliberately inconsistent state.
type fakeView struct {
	counter  CreatureID
	primary  map[AccountID]map[CreatureID]Creature
	reverse  map[CreatureID]AccountID
	listings map[AccountID][]OwnedCreature
}

func (v fakeView) FindCreature(owner AccountID, id CreatureID) (Creature, bool) {
	c, ok := v.primary[owner][id]
	return c, ok
}

func (v fakeView) OwnerOf(id CreatureID) (AccountID, bool) {
	owner, ok := v.reverse[id]
	return owner, ok
}

func (v fakeView) ListCreatures(owner AccountID) []OwnedCreature { return v.listings[owner] }

func (v fakeView) ListOwners() []AccountID {
	out := make([]AccountID, 0, len(v.listings))
	for owner := range v.listings {
		out = append(out, owner)
	}
	return out
}

func (v fakeView) CreatureCount() CreatureID { return v.counter }

func created(owner AccountID, id CreatureID) Change {
	return Change{Entity: EntityCreature, Action: ActionCreate, After: Ownership{Owner: owner, ID: id}}
}

func TestDefaultRulesEngineRegistersInvariants(t *testing.T) {
	names := NewDefaultRulesEngine().Rules()
	if len(names) != 2 || names[0] != "ownership_consistency" || names[1] != "counter_monotonic" {
		t.Fatalf("unexpected rules %v", names)
	}
}

func TestOwnershipConsistencyRuleAcceptsConsistentView(t *testing.T) {
	view := fakeView{
		counter:  1,
		primary:  map[AccountID]map[CreatureID]Creature{"alice": {1: {}}},
		reverse:  map[CreatureID]AccountID{1: "alice"},
		listings: map[AccountID][]OwnedCreature{"alice": {{ID: 1}}},
	}
	res, err := OwnershipConsistencyRule().Evaluate(context.Background(), view, []Change{created("alice", 1)})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("unexpected violations %+v", res.Violations)
	}
}

func TestOwnershipConsistencyRuleFlagsDivergence(t *testing.T) {
	cases := []struct {
		name    string
		view    fakeView
		changes []Change
	}{
		{
			name: "reverse index points elsewhere",
			view: fakeView{
				primary:  map[AccountID]map[CreatureID]Creature{"alice": {1: {}}},
				reverse:  map[CreatureID]AccountID{1: "bob"},
				listings: map[AccountID][]OwnedCreature{"alice": {{ID: 1}}},
			},
			changes: []Change{created("alice", 1)},
		},
		{
			name: "missing from listing",
			view: fakeView{
				primary: map[AccountID]map[CreatureID]Creature{"alice": {1: {}}},
				reverse: map[CreatureID]AccountID{1: "alice"},
			},
			changes: []Change{created("alice", 1)},
		},
		{
			name: "listed twice",
			view: fakeView{
				primary:  map[AccountID]map[CreatureID]Creature{"alice": {1: {}}},
				reverse:  map[CreatureID]AccountID{1: "alice"},
				listings: map[AccountID][]OwnedCreature{"alice": {{ID: 1}, {ID: 1}}},
			},
			changes: []Change{created("alice", 1)},
		},
		{
			name: "stale primary key after transfer",
			view: fakeView{
				primary:  map[AccountID]map[CreatureID]Creature{"alice": {1: {}}, "bob": {1: {}}},
				reverse:  map[CreatureID]AccountID{1: "bob"},
				listings: map[AccountID][]OwnedCreature{"bob": {{ID: 1}}},
			},
			changes: []Change{{
				Entity: EntityCreature, Action: ActionTransfer,
				Before: Ownership{Owner: "alice", ID: 1},
				After:  Ownership{Owner: "bob", ID: 1},
			}},
		},
		{
			name: "retracted creature still indexed",
			view: fakeView{reverse: map[CreatureID]AccountID{1: "alice"}},
			changes: []Change{{
				Entity: EntityCreature, Action: ActionRetract,
				Before: Ownership{Owner: "alice", ID: 1},
			}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := OwnershipConsistencyRule().Evaluate(context.Background(), tc.view, tc.changes)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if !res.HasBlocking() {
				t.Fatalf("expected blocking violation")
			}
		})
	}
}

func TestCounterMonotonicRule(t *testing.T) {
	view := fakeView{counter: 2}
	res, _ := CounterMonotonicRule().Evaluate(context.Background(), view, []Change{created("alice", 2)})
	if res.HasBlocking() {
		t.Fatalf("id at counter must pass: %+v", res.Violations)
	}
	res, _ = CounterMonotonicRule().Evaluate(context.Background(), view, []Change{created("alice", 3), created("alice", 0)})
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", res.Violations)
	}
	if res.Violations[0].Entity != EntityCounter || res.Violations[0].Severity != SeverityBlock {
		t.Fatalf("unexpected violation %+v", res.Violations[0])
	}
}

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block_all" }

func (blockAllRule) Evaluate(context.Context, domain.RuleView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: "block_all", Severity: SeverityBlock, Message: "nope"}}}, nil
}

func TestBlockingRuleAbortsCreate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(blockAllRule{})
	svc := NewInMemoryService(engine)

	_, err := svc.Create(context.Background(), "alice")
	var violation RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if svc.Count(context.Background()) != 0 || len(svc.List(context.Background(), "alice")) != 0 {
		t.Fatalf("blocked create left state behind")
	}
}
