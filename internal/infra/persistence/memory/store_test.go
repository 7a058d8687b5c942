package memory

import (
	"context"
	"errors"
	"testing"

	"hatchery/pkg/domain"
)

func genome(b byte) domain.Creature {
	var g domain.Genome
	for i := range g {
		g[i] = b
	}
	return domain.Creature{Genome: g}
}

func mint(t *testing.T, store *Store, owner AccountID, c Creature) CreatureID {
	t.Helper()
	var id CreatureID
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		next, err := tx.NextCreatureID()
		if err != nil {
			return err
		}
		id = next
		return tx.InsertCreature(owner, next, c)
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return id
}

func ids(listing []OwnedCreature) []CreatureID {
	out := make([]CreatureID, 0, len(listing))
	for _, entry := range listing {
		out = append(out, entry.ID)
	}
	return out
}

func equalIDs(a, b []CreatureID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindCreature("alice", 1); ok {
			t.Fatalf("expected missing creature lookup")
		}
		next, err := tx.NextCreatureID()
		if err != nil {
			return err
		}
		if next != 1 {
			t.Fatalf("expected first id 1, got %d", next)
		}
		if err := tx.InsertCreature("alice", next, genome(0xAA)); err != nil {
			return err
		}
		view := tx.Snapshot()
		if len(view.ListCreatures("alice")) != 1 || view.CreatureCount() != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListCreatures("alice")) != 1 {
		t.Fatalf("expected persisted creature")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListCreatures("alice")) != 0 || store.CreatureCount() != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if c, ok := store.GetCreature("alice", 1); !ok || c != genome(0xAA) {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
}

func TestStoreFailedTransactionLeavesNoTrace(t *testing.T) {
	store := NewStore(nil)
	mint(t, store, "alice", genome(1))
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		next, _ := tx.NextCreatureID()
		if err := tx.InsertCreature("alice", next, genome(2)); err != nil {
			return err
		}
		if _, err := tx.TransferCreature("alice", "bob", 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if store.CreatureCount() != 1 {
		t.Fatalf("counter must not move on failure, got %d", store.CreatureCount())
	}
	if got := ids(store.ListCreatures("alice")); !equalIDs(got, []CreatureID{1}) {
		t.Fatalf("unexpected alice listing %v", got)
	}
	if owner, _ := store.OwnerOf(1); owner != "alice" {
		t.Fatalf("reverse index must be untouched, got %q", owner)
	}
	if len(store.ListCreatures("bob")) != 0 {
		t.Fatalf("bob must own nothing")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.InsertCreature("alice", 1, genome(1))
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if store.CreatureCount() != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

func TestStoreViewIsReadOnlyCopy(t *testing.T) {
	store := NewStore(nil)
	mint(t, store, "alice", genome(1))
	err := store.View(context.Background(), func(view domain.TransactionView) error {
		listing := view.ListCreatures("alice")
		listing[0].ID = 99
		if owners := view.ListOwners(); len(owners) != 1 || owners[0] != "alice" {
			t.Fatalf("unexpected owners %v", owners)
		}
		if owner, ok := view.OwnerOf(1); !ok || owner != "alice" {
			t.Fatalf("unexpected owner %q", owner)
		}
		if _, ok := view.FindCreature("alice", 1); !ok {
			t.Fatalf("expected creature in view")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if got := ids(store.ListCreatures("alice")); !equalIDs(got, []CreatureID{1}) {
		t.Fatalf("view mutation leaked into store: %v", got)
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}}, nil
}
