package domain

// EventKind names an emitted registry or escrow event.
type EventKind string

// Event kinds emitted after successful operations.
const (
	EventCreated          EventKind = "created"
	EventTransferred      EventKind = "transferred"
	EventFundsReserved    EventKind = "funds_reserved"
	EventFundsReleased    EventKind = "funds_released"
	EventFundsTransferred EventKind = "funds_transferred"
)

// Event describes a completed operation. Fields not relevant to a kind are
// left zero: Created carries Account and CreatureID, Transferred carries
// Account, Counterparty and CreatureID, the funds events carry Amount and
// FundsTransferred also Counterparty. FundsReserved names a CreatureID only
// when it funds a creature minted in the same call.
type Event struct {
	Kind         EventKind  `json:"kind"`
	Account      AccountID  `json:"account"`
	Counterparty AccountID  `json:"counterparty,omitempty"`
	CreatureID   CreatureID `json:"creature_id,omitempty"`
	Amount       Balance    `json:"amount,omitempty"`
}
