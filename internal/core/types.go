package core

import "hatchery/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	AccountID          = domain.AccountID
	CreatureID         = domain.CreatureID
	Creature           = domain.Creature
	Genome             = domain.Genome
	OwnedCreature      = domain.OwnedCreature
	Ownership          = domain.Ownership
	Balance            = domain.Balance
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Event              = domain.Event
	EventKind          = domain.EventKind
)

const (
	EntityCreature = domain.EntityCreature
	EntityCounter  = domain.EntityCounter
	EntityEscrow   = domain.EntityEscrow
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate           = domain.ActionCreate
	ActionTransfer         = domain.ActionTransfer
	ActionRetract          = domain.ActionRetract
	ActionReserve          = domain.ActionReserve
	ActionRelease          = domain.ActionRelease
	ActionTransferReserved = domain.ActionTransferReserved
)
