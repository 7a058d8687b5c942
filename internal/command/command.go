// Package command decodes authenticated request bodies and dispatches them to
// the registry service.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hatchery/internal/core"
	"hatchery/pkg/domain"
)

// Kind names a dispatchable command.
type Kind string

const (
	KindCreate           Kind = "create"
	KindTransfer         Kind = "transfer"
	KindBreed            Kind = "breed"
	KindLookup           Kind = "lookup"
	KindList             Kind = "list"
	KindCount            Kind = "count"
	KindOwnerOf          Kind = "owner_of"
	KindReserve          Kind = "reserve"
	KindRelease          Kind = "release"
	KindTransferReserved Kind = "transfer_reserved"
)

// ErrUnknownKind is returned for a body whose kind is not dispatchable.
var ErrUnknownKind = errors.New("unknown command kind")

// Command is the JSON body of a request. Fields unused by a kind are ignored.
// Owner defaults to the authenticated caller for lookup and list.
type Command struct {
	Kind    Kind              `json:"kind"`
	To      domain.AccountID  `json:"to,omitempty"`
	Owner   domain.AccountID  `json:"owner,omitempty"`
	ID      domain.CreatureID `json:"id,omitempty"`
	Parent1 domain.CreatureID `json:"parent1,omitempty"`
	Parent2 domain.CreatureID `json:"parent2,omitempty"`
	Amount  domain.Balance    `json:"amount,omitempty"`
}

// Response carries the result of a dispatched command.
type Response struct {
	Kind      Kind                   `json:"kind"`
	Caller    domain.AccountID       `json:"caller"`
	ID        domain.CreatureID      `json:"id,omitempty"`
	Owner     domain.AccountID       `json:"owner,omitempty"`
	Found     bool                   `json:"found,omitempty"`
	Creature  *domain.Creature       `json:"creature,omitempty"`
	Creatures []domain.OwnedCreature `json:"creatures,omitempty"`
	Count     domain.CreatureID      `json:"count,omitempty"`
	Remainder domain.Balance         `json:"remainder,omitempty"`
}

// Dispatcher authenticates requests and routes them to a service.
type Dispatcher struct {
	svc  *core.Service
	auth domain.Authenticator
}

// NewDispatcher returns a dispatcher over svc using auth to attribute callers.
func NewDispatcher(svc *core.Service, auth domain.Authenticator) *Dispatcher {
	return &Dispatcher{svc: svc, auth: auth}
}

// Dispatch authenticates req, decodes its body and runs the command as the
// authenticated caller. Authentication failures are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.Request) (Response, error) {
	caller, err := d.auth.Authenticate(ctx, req)
	if err != nil {
		return Response{}, err
	}
	var cmd Command
	if err := json.Unmarshal(req.Body, &cmd); err != nil {
		return Response{}, fmt.Errorf("decode command: %w", err)
	}
	return d.Execute(ctx, caller, cmd)
}

// Execute runs cmd on behalf of an already authenticated caller.
func (d *Dispatcher) Execute(ctx context.Context, caller domain.AccountID, cmd Command) (Response, error) {
	resp := Response{Kind: cmd.Kind, Caller: caller}
	var err error
	switch cmd.Kind {
	case KindCreate:
		if cmd.Amount > 0 {
			resp.ID, err = d.svc.FundedCreate(ctx, caller, cmd.Amount)
		} else {
			resp.ID, err = d.svc.Create(ctx, caller)
		}
	case KindTransfer:
		err = d.svc.Transfer(ctx, caller, cmd.To, cmd.ID)
		resp.ID, resp.Owner = cmd.ID, cmd.To
	case KindBreed:
		if cmd.Amount > 0 {
			resp.ID, err = d.svc.FundedBreed(ctx, caller, cmd.Parent1, cmd.Parent2, cmd.Amount)
		} else {
			resp.ID, err = d.svc.Breed(ctx, caller, cmd.Parent1, cmd.Parent2)
		}
	case KindLookup:
		owner := ownerOr(cmd.Owner, caller)
		creature, found := d.svc.Lookup(ctx, owner, cmd.ID)
		resp.ID, resp.Owner, resp.Found = cmd.ID, owner, found
		if found {
			resp.Creature = &creature
		}
	case KindList:
		resp.Owner = ownerOr(cmd.Owner, caller)
		resp.Creatures = d.svc.List(ctx, resp.Owner)
	case KindCount:
		resp.Count = d.svc.Count(ctx)
	case KindOwnerOf:
		resp.ID = cmd.ID
		resp.Owner, resp.Found = d.svc.OwnerOf(ctx, cmd.ID)
	case KindReserve:
		err = d.svc.ReserveFunds(ctx, caller, cmd.Amount)
	case KindRelease:
		resp.Remainder, err = d.svc.ReleaseFunds(ctx, caller, cmd.Amount)
	case KindTransferReserved:
		err = d.svc.TransferReserved(ctx, caller, cmd.To, cmd.Amount)
		resp.Owner = cmd.To
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownKind, cmd.Kind)
	}
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

func ownerOr(owner, caller domain.AccountID) domain.AccountID {
	if owner == "" {
		return caller
	}
	return owner
}
