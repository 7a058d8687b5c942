package domain

import "context"

// Transaction exposes the registry operations that a persistence
// implementation must support within an atomic scope. Every mutating method
// keeps the primary store, the reverse index and the per-owner listings in
// step; they are never exposed for independent mutation.
type Transaction interface {
	Snapshot() TransactionView
	// NextCreatureID returns counter+1 without persisting it.
	NextCreatureID() (CreatureID, error)
	FindCreature(owner AccountID, id CreatureID) (Creature, bool)
	// InsertCreature records a new creature in all three views and advances the
	// counter to id.
	InsertCreature(owner AccountID, id CreatureID, creature Creature) error
	// TransferCreature re-keys (from, id) to (to, id) across all views.
	TransferCreature(from, to AccountID, id CreatureID) (Creature, error)
	// RetractCreature undoes the most recent InsertCreature for owner/id,
	// removing every index entry and restoring the counter to id-1.
	RetractCreature(owner AccountID, id CreatureID) error
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	FindCreature(owner AccountID, id CreatureID) (Creature, bool)
	OwnerOf(id CreatureID) (AccountID, bool)
	ListCreatures(owner AccountID) []OwnedCreature
	ListOwners() []AccountID
	CreatureCount() CreatureID
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCreature(owner AccountID, id CreatureID) (Creature, bool)
	OwnerOf(id CreatureID) (AccountID, bool)
	ListCreatures(owner AccountID) []OwnedCreature
	CreatureCount() CreatureID
}
