// Package memory provides an in-memory implementation of the creature
// registry store used for tests, ephemeral environments, and as the
// transactional engine beneath the durable backends.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"hatchery/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// AccountID aliases domain.AccountID.
	AccountID = domain.AccountID
	// CreatureID aliases domain.CreatureID.
	CreatureID = domain.CreatureID
	// Creature aliases domain.Creature.
	Creature = domain.Creature
	// OwnedCreature aliases domain.OwnedCreature.
	OwnedCreature = domain.OwnedCreature
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type ownedKey struct {
	owner AccountID
	id    CreatureID
}

// memoryState holds the three synchronized views over ownership plus the
// global counter.
type memoryState struct {
	creatures map[ownedKey]Creature
	owners    map[CreatureID]AccountID
	listings  map[AccountID][]OwnedCreature
	counter   CreatureID
}

func newMemoryState() memoryState {
	return memoryState{
		creatures: make(map[ownedKey]Creature),
		owners:    make(map[CreatureID]AccountID),
		listings:  make(map[AccountID][]OwnedCreature),
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		creatures: make(map[ownedKey]Creature, len(s.creatures)),
		owners:    make(map[CreatureID]AccountID, len(s.owners)),
		listings:  make(map[AccountID][]OwnedCreature, len(s.listings)),
		counter:   s.counter,
	}
	for k, v := range s.creatures {
		cloned.creatures[k] = v
	}
	for k, v := range s.owners {
		cloned.owners[k] = v
	}
	for k, v := range s.listings {
		cloned.listings[k] = cloneListing(v)
	}
	return cloned
}

func cloneListing(listing []OwnedCreature) []OwnedCreature {
	if len(listing) == 0 {
		return nil
	}
	return append([]OwnedCreature(nil), listing...)
}

func (s *memoryState) sortedOwners() []AccountID {
	out := make([]AccountID, 0, len(s.listings))
	for owner, listing := range s.listings {
		if len(listing) > 0 {
			out = append(out, owner)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// withoutEntry returns listing minus id and the position id occupied, or -1.
func withoutEntry(listing []OwnedCreature, id CreatureID) ([]OwnedCreature, int) {
	out := make([]OwnedCreature, 0, len(listing))
	pos := -1
	for i, entry := range listing {
		if entry.ID == id {
			pos = i
			continue
		}
		out = append(out, entry)
	}
	return out, pos
}

func insertEntry(listing []OwnedCreature, at int, entry OwnedCreature) []OwnedCreature {
	if at < 0 || at >= len(listing) {
		return append(listing, entry)
	}
	listing = append(listing, OwnedCreature{})
	copy(listing[at+1:], listing[at:])
	listing[at] = entry
	return listing
}

// Store provides an in-memory transactional store for the creature registry.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(normalizeSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// FindCreature looks up the primary store entry for owner/id.
func (v transactionView) FindCreature(owner AccountID, id CreatureID) (Creature, bool) {
	c, ok := v.state.creatures[ownedKey{owner: owner, id: id}]
	return c, ok
}

// OwnerOf consults the reverse index.
func (v transactionView) OwnerOf(id CreatureID) (AccountID, bool) {
	owner, ok := v.state.owners[id]
	return owner, ok
}

// ListCreatures returns the owner's listing in insertion order.
func (v transactionView) ListCreatures(owner AccountID) []OwnedCreature {
	return cloneListing(v.state.listings[owner])
}

// ListOwners returns every account holding at least one creature, sorted.
func (v transactionView) ListOwners() []AccountID {
	return v.state.sortedOwners()
}

// CreatureCount returns the global counter.
func (v transactionView) CreatureCount() CreatureID {
	return v.state.counter
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the live state only when fn succeeds and no blocking rule
// violation is reported.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// NextCreatureID returns the identifier the next insertion should use.
func (tx *transaction) NextCreatureID() (CreatureID, error) {
	return tx.state.counter.Next()
}

// FindCreature exposes primary store lookup within the transaction scope.
func (tx *transaction) FindCreature(owner AccountID, id CreatureID) (Creature, bool) {
	c, ok := tx.state.creatures[ownedKey{owner: owner, id: id}]
	return c, ok
}

// InsertCreature adds a creature to the primary store, reverse index and the
// owner's listing, then advances the counter to id.
func (tx *transaction) InsertCreature(owner AccountID, id CreatureID, c Creature) error {
	if owner == "" {
		return errors.New("creature owner required")
	}
	if id == 0 {
		return errors.New("creature id 0 is never allocated")
	}
	if current, exists := tx.state.owners[id]; exists {
		return fmt.Errorf("creature %d already owned by %q", id, current)
	}
	if id <= tx.state.counter {
		return fmt.Errorf("creature %d not above counter %d", id, tx.state.counter)
	}
	tx.state.creatures[ownedKey{owner: owner, id: id}] = c
	tx.state.owners[id] = owner
	tx.state.listings[owner] = append(tx.state.listings[owner], OwnedCreature{ID: id, Creature: c})
	tx.state.counter = id
	tx.recordChange(Change{
		Entity: domain.EntityCreature,
		Action: domain.ActionCreate,
		After:  domain.Ownership{Owner: owner, ID: id, Creature: c},
	})
	return nil
}

// TransferCreature moves id from one owner to another across all views.
// When from and to coincide the entry is re-inserted where it was removed,
// leaving the state unchanged.
func (tx *transaction) TransferCreature(from, to AccountID, id CreatureID) (Creature, error) {
	key := ownedKey{owner: from, id: id}
	c, ok := tx.state.creatures[key]
	if !ok {
		return Creature{}, domain.UnknownCreatureError{Owner: from, ID: id}
	}
	if to == "" {
		return Creature{}, errors.New("transfer recipient required")
	}

	remaining, pos := withoutEntry(tx.state.listings[from], id)
	at := -1
	dest := tx.state.listings[to]
	if from == to {
		dest = remaining
		at = pos
	} else {
		setListing(&tx.state, from, remaining)
	}
	tx.state.listings[to] = insertEntry(dest, at, OwnedCreature{ID: id, Creature: c})

	delete(tx.state.creatures, key)
	tx.state.creatures[ownedKey{owner: to, id: id}] = c
	tx.state.owners[id] = to

	tx.recordChange(Change{
		Entity: domain.EntityCreature,
		Action: domain.ActionTransfer,
		Before: domain.Ownership{Owner: from, ID: id, Creature: c},
		After:  domain.Ownership{Owner: to, ID: id, Creature: c},
	})
	return c, nil
}

// RetractCreature removes the most recently inserted creature and restores
// the counter. It is the compensating action for an insertion whose follow-up
// failed outside the store.
func (tx *transaction) RetractCreature(owner AccountID, id CreatureID) error {
	key := ownedKey{owner: owner, id: id}
	c, ok := tx.state.creatures[key]
	if !ok {
		return domain.UnknownCreatureError{Owner: owner, ID: id}
	}
	if tx.state.counter != id {
		return fmt.Errorf("creature %d is not the latest allocation (counter %d)", id, tx.state.counter)
	}
	remaining, _ := withoutEntry(tx.state.listings[owner], id)
	setListing(&tx.state, owner, remaining)
	delete(tx.state.creatures, key)
	delete(tx.state.owners, id)
	tx.state.counter = id - 1
	tx.recordChange(Change{
		Entity: domain.EntityCreature,
		Action: domain.ActionRetract,
		Before: domain.Ownership{Owner: owner, ID: id, Creature: c},
	})
	return nil
}

func setListing(state *memoryState, owner AccountID, listing []OwnedCreature) {
	if len(listing) == 0 {
		delete(state.listings, owner)
		return
	}
	state.listings[owner] = listing
}

// GetCreature returns the creature stored under owner/id.
func (s *Store) GetCreature(owner AccountID, id CreatureID) (Creature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.creatures[ownedKey{owner: owner, id: id}]
	return c, ok
}

// OwnerOf returns the current owner of id.
func (s *Store) OwnerOf(id CreatureID) (AccountID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.state.owners[id]
	return owner, ok
}

// ListCreatures returns the owner's creatures in insertion order.
func (s *Store) ListCreatures(owner AccountID) []OwnedCreature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneListing(s.state.listings[owner])
}

// CreatureCount returns the global counter, i.e. the last allocated id.
func (s *Store) CreatureCount() CreatureID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.counter
}
