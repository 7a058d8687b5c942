// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by hatchery.
package domain

import (
	"math"
	"strconv"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCreature identifies a creature ownership record.
	EntityCreature EntityType = "creature"
	// EntityCounter identifies the global creature id counter.
	EntityCounter EntityType = "counter"
	// EntityEscrow identifies a balance reservation held by the escrow ledger.
	EntityEscrow EntityType = "escrow"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// GenomeSize is the fixed length of a creature genome in bytes.
const GenomeSize = 16

// Genome is the identity payload of a creature, fixed at creation.
type Genome [GenomeSize]byte

// Creature is the minted asset. It is immutable once created; its identity is
// the CreatureID it was allocated under.
type Creature struct {
	Genome Genome `json:"genome"`
}

// CreatureID is the global, strictly increasing creature identifier. Zero is
// never allocated.
type CreatureID uint64

// MaxCreatureID is the largest identifier the allocator can issue.
const MaxCreatureID CreatureID = math.MaxUint64

// Next returns id+1, failing with ErrCounterOverflow instead of wrapping.
func (id CreatureID) Next() (CreatureID, error) {
	if id == MaxCreatureID {
		return 0, ErrCounterOverflow
	}
	return id + 1, nil
}

func (id CreatureID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseCreatureID parses a decimal creature identifier.
func ParseCreatureID(s string) (CreatureID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return CreatureID(v), nil
}

// AccountID identifies an owner. It is produced by an Authenticator and
// trusted by the core as-is.
type AccountID string

// Balance is an amount of the fungible currency managed by the escrow ledger.
type Balance uint64

// OwnedCreature pairs a creature with its identifier, as held in per-owner listings.
type OwnedCreature struct {
	ID       CreatureID `json:"id"`
	Creature Creature   `json:"creature"`
}

// Ownership is the full fact "Owner owns creature ID with genome Creature".
// It is the payload carried by creature Change records.
type Ownership struct {
	Owner    AccountID  `json:"owner"`
	ID       CreatureID `json:"id"`
	Creature Creature   `json:"creature"`
}

// Change represents a mutation recorded during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the registry mutations captured in the audit trail.
const (
	// ActionCreate indicates a creature was minted by creation or breeding.
	ActionCreate Action = "create"
	// ActionTransfer indicates a creature changed owner.
	ActionTransfer Action = "transfer"
	// ActionRetract indicates a compensating removal of a creature that was
	// never funded.
	ActionRetract Action = "retract"
	// ActionReserve, ActionRelease and ActionTransferReserved describe escrow calls.
	ActionReserve          Action = "reserve"
	ActionRelease          Action = "release"
	ActionTransferReserved Action = "transfer_reserved"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
