package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hatchery/internal/entropy"
	"hatchery/internal/infra/persistence/memory"
	"hatchery/pkg/domain"
)

// Operation names used for audit, metrics and tracing.
const (
	OpCreate           = "create_creature"
	OpTransfer         = "transfer_creature"
	OpBreed            = "breed_creature"
	OpFundedCreate     = "funded_create_creature"
	OpFundedBreed      = "funded_breed_creature"
	OpReserveFunds     = "reserve_funds"
	OpReleaseFunds     = "release_funds"
	OpTransferReserved = "transfer_reserved_funds"
)

type operationMetadata struct {
	entity EntityType
	action Action
}

var operations = map[string]operationMetadata{
	OpCreate:           {EntityCreature, ActionCreate},
	OpTransfer:         {EntityCreature, ActionTransfer},
	OpBreed:            {EntityCreature, ActionCreate},
	OpFundedCreate:     {EntityCreature, ActionCreate},
	OpFundedBreed:      {EntityCreature, ActionCreate},
	OpReserveFunds:     {EntityEscrow, ActionReserve},
	OpReleaseFunds:     {EntityEscrow, ActionRelease},
	OpTransferReserved: {EntityEscrow, ActionTransferReserved},
}

// Service is the creature registry surface: creation, transfer, breeding
// and the funded variants. Mutating operations are serialized behind one
// service-wide lock so each runs, compensation included, as a single critical
// section.
type Service struct {
	store PersistentStore
	mu    sync.Mutex
	opts  serviceOptions
	mixer *entropy.Mixer
}

// NewService constructs a service backed by the supplied store. When the
// store exposes a NowFunc it becomes the default clock.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	if timed, ok := store.(interface{ NowFunc() func() time.Time }); ok {
		if fn := timed.NowFunc(); fn != nil {
			options.clock = ClockFunc(fn)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Service{
		store: store,
		opts:  options,
		mixer: entropy.NewMixer(options.entropy),
	}
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Create mints a creature for owner with an entropy-derived genome.
func (s *Service) Create(ctx context.Context, owner AccountID) (CreatureID, error) {
	var id CreatureID
	err := s.mutate(ctx, OpCreate, owner, func(ctx context.Context) (string, error) {
		var err error
		id, err = s.create(ctx, owner)
		if err != nil {
			return "", err
		}
		s.emit(ctx, Event{Kind: domain.EventCreated, Account: owner, CreatureID: id})
		return id.String(), nil
	})
	return id, err
}

// Transfer moves creature id from one owner to another. Transferring to the
// current owner succeeds and leaves state unchanged.
func (s *Service) Transfer(ctx context.Context, from, to AccountID, id CreatureID) error {
	return s.mutate(ctx, OpTransfer, from, func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.TransferCreature(from, to, id)
			return err
		})
		if err != nil {
			return id.String(), fmt.Errorf("transfer creature %d from %q to %q: %w", id, from, to, err)
		}
		s.emit(ctx, Event{Kind: domain.EventTransferred, Account: from, Counterparty: to, CreatureID: id})
		return id.String(), nil
	})
}

// Lookup returns the creature keyed by owner and id. A wrong owner reads as
// not found.
func (s *Service) Lookup(_ context.Context, owner AccountID, id CreatureID) (Creature, bool) {
	return s.store.GetCreature(owner, id)
}

// List returns owner's creatures in insertion order.
func (s *Service) List(_ context.Context, owner AccountID) []OwnedCreature {
	return s.store.ListCreatures(owner)
}

// Count returns the global counter, the highest id allocated so far.
func (s *Service) Count(_ context.Context) CreatureID {
	return s.store.CreatureCount()
}

// OwnerOf returns the current owner of id.
func (s *Service) OwnerOf(_ context.Context, id CreatureID) (AccountID, bool) {
	return s.store.OwnerOf(id)
}

func (s *Service) create(ctx context.Context, owner AccountID) (CreatureID, error) {
	if owner == "" {
		return 0, errors.New("create creature: owner required")
	}
	var id CreatureID
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		next, err := tx.NextCreatureID()
		if err != nil {
			return err
		}
		if err := tx.InsertCreature(owner, next, Creature{Genome: s.mixer.Derive(owner)}); err != nil {
			return err
		}
		id = next
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create creature for %q: %w", owner, err)
	}
	return id, nil
}

// retract is the compensating action for a creation whose funding failed.
func (s *Service) retract(ctx context.Context, owner AccountID, id CreatureID) error {
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.RetractCreature(owner, id)
	})
	if err != nil {
		return fmt.Errorf("retract creature %d: %w", id, err)
	}
	return nil
}

// mutate serializes fn with every other mutating call and advances the
// entropy source afterwards, successful or not.
func (s *Service) mutate(ctx context.Context, op string, account AccountID, fn func(context.Context) (string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.advance()
	return s.run(ctx, op, account, fn)
}

func (s *Service) advance() {
	if block, ok := s.opts.entropy.(interface{ Advance() }); ok {
		block.Advance()
	}
}

func (s *Service) run(ctx context.Context, op string, account AccountID, fn func(context.Context) (string, error)) error {
	start := s.opts.clock.Now()
	ctx, span := s.opts.tracer.Start(ctx, op)
	s.opts.logger.Debug("operation started", "operation", op, "account", account)

	entityID, err := fn(ctx)
	duration := s.opts.clock.Now().Sub(start)
	span.End(err)
	s.opts.metrics.Observe(ctx, op, err == nil, duration)

	if err != nil {
		s.recordAudit(ctx, op, account, entityID, err, duration)
		if isRejection(err) {
			s.opts.logger.Warn("operation rejected", "operation", op, "account", account, "error", err)
		} else {
			s.opts.logger.Error("operation failed", "operation", op, "account", account, "error", err)
		}
		return err
	}
	s.recordAudit(ctx, op, account, entityID, nil, duration)
	s.opts.logger.Info("operation completed", "operation", op, "account", account, "entity_id", entityID, "duration", duration)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, op string, account AccountID, entityID string, opErr error, duration time.Duration) {
	meta, ok := operations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		ID:        newAuditID(),
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Account:   account,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.opts.clock.Now(),
	}
	if opErr != nil {
		entry.Status = AuditStatusError
		entry.Error = opErr.Error()
	}
	s.opts.audit.Record(ctx, entry)
}

func (s *Service) emit(ctx context.Context, event Event) {
	s.opts.events.Emit(ctx, event)
}

// isRejection separates caller mistakes from infrastructure failures.
func isRejection(err error) bool {
	var ruleErr RuleViolationError
	return errors.Is(err, domain.ErrUnknownCreature) ||
		errors.Is(err, domain.ErrIdenticalParents) ||
		errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrBalanceOverflow) ||
		errors.Is(err, domain.ErrCounterOverflow) ||
		errors.As(err, &ruleErr)
}
