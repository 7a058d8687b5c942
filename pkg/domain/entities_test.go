package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestCreatureIDNext(t *testing.T) {
	next, err := CreatureID(0).Next()
	if err != nil || next != 1 {
		t.Fatalf("expected 1, got %d (%v)", next, err)
	}
	if _, err := MaxCreatureID.Next(); !errors.Is(err, ErrCounterOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestParseCreatureID(t *testing.T) {
	id, err := ParseCreatureID("42")
	if err != nil || id != 42 || id.String() != "42" {
		t.Fatalf("unexpected parse result %d %v", id, err)
	}
	if _, err := ParseCreatureID("-1"); err == nil {
		t.Fatalf("expected error for negative id")
	}
}

func TestUnknownCreatureErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("transfer: %w", UnknownCreatureError{Owner: "alice", ID: 7})
	if !errors.Is(err, ErrUnknownCreature) {
		t.Fatalf("expected errors.Is to match ErrUnknownCreature")
	}
	var typed UnknownCreatureError
	if !errors.As(err, &typed) || typed.ID != 7 || typed.Owner != "alice" {
		t.Fatalf("expected typed error, got %+v", typed)
	}
	if errors.Is(err, ErrIdenticalParents) {
		t.Fatalf("unexpected match")
	}
}
