package core

import (
	"context"
	"errors"
	"testing"

	"hatchery/internal/entropy"
	"hatchery/pkg/domain"
)

func TestBreedRejectsIdenticalParentsFirst(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	// 42 does not exist, identical parents still wins
	if _, err := svc.Breed(ctx, "alice", 42, 42); !errors.Is(err, domain.ErrIdenticalParents) {
		t.Fatalf("expected identical parents, got %v", err)
	}
	id, _ := svc.Create(ctx, "alice")
	if _, err := svc.Breed(ctx, "alice", id, id); !errors.Is(err, domain.ErrIdenticalParents) {
		t.Fatalf("expected identical parents for owned creature, got %v", err)
	}
	if svc.Count(ctx) != 1 {
		t.Fatalf("rejected breed allocated an id")
	}
}

func TestBreedRequiresBothParentsOwned(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, "alice")
	b, _ := svc.Create(ctx, "bob")

	cases := []struct {
		name    string
		p1, p2  CreatureID
		missing CreatureID
	}{
		{"second not owned", a, b, b},
		{"first not owned", b, a, b},
		{"unallocated", a, 99, 99},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Breed(ctx, "alice", tc.p1, tc.p2)
			var unknown domain.UnknownCreatureError
			if !errors.As(err, &unknown) {
				t.Fatalf("expected UnknownCreatureError, got %v", err)
			}
			if unknown.ID != tc.missing || unknown.Owner != "alice" {
				t.Fatalf("unexpected unknown creature %+v", unknown)
			}
			if svc.Count(ctx) != 2 {
				t.Fatalf("rejected breed changed the counter")
			}
		})
	}
}

func TestBreedIsDeterministic(t *testing.T) {
	run := func() Genome {
		svc, _, _ := newTestService()
		ctx := context.Background()
		p1, _ := svc.Create(ctx, "alice")
		p2, _ := svc.Create(ctx, "alice")
		child, err := svc.Breed(ctx, "alice", p1, p2)
		if err != nil {
			t.Fatalf("breed: %v", err)
		}
		c, _ := svc.Lookup(ctx, "alice", child)
		return c.Genome
	}
	first, second := run(), run()
	if first != second {
		t.Fatalf("breeding with identical inputs produced different children")
	}
}

func TestBreedCombinesParentBits(t *testing.T) {
	svc, _, block := newTestService()
	ctx := context.Background()
	p1, _ := svc.Create(ctx, "alice")
	p2, _ := svc.Create(ctx, "alice")
	g1, _ := svc.Lookup(ctx, "alice", p1)
	g2, _ := svc.Lookup(ctx, "alice", p2)

	selector := entropy.Mix(testSeed, "alice", block.OperationIndex())
	child, err := svc.Breed(ctx, "alice", p1, p2)
	if err != nil {
		t.Fatalf("breed: %v", err)
	}
	got, ok := svc.Lookup(ctx, "alice", child)
	if !ok {
		t.Fatalf("child not stored under breeder")
	}
	for i := range got.Genome {
		want := (selector[i] & g1.Genome[i]) | (^selector[i] & g2.Genome[i])
		if got.Genome[i] != want {
			t.Fatalf("byte %d: want %#x got %#x", i, want, got.Genome[i])
		}
	}
	if list := ids(svc.List(ctx, "alice")); !sameIDs(list, []CreatureID{1, 2, 3}) {
		t.Fatalf("unexpected listing %v", list)
	}
}
