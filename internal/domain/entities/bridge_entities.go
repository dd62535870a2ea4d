package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChainID identifies an external chain supported by the bridge
type ChainID = uint32

// TransferID identifies a transfer tracked by the ledger
type TransferID = uint64

// TransferStatus represents the lifecycle stage of a transfer
type TransferStatus string

const (
	TransferStatusInitiated TransferStatus = "initiated"
	TransferStatusConfirmed TransferStatus = "confirmed"
	TransferStatusReleased  TransferStatus = "released"
	TransferStatusRejected  TransferStatus = "rejected"
)

// Validate checks if the transfer status is valid
func (s TransferStatus) Validate() error {
	switch s {
	case TransferStatusInitiated, TransferStatusConfirmed, TransferStatusReleased, TransferStatusRejected:
		return nil
	default:
		return fmt.Errorf("invalid transfer status: %s", s)
	}
}

// IsTerminal reports whether no further transition is allowed
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusReleased || s == TransferStatusRejected
}

// CanTransitionTo reports whether the one-directional lifecycle permits
// moving from s to next. Initiated -> Confirmed -> Released, or
// Initiated -> Rejected; Released may also follow Initiated directly when a
// relayer releases an unconfirmed transfer.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	switch s {
	case TransferStatusInitiated:
		return next == TransferStatusConfirmed || next == TransferStatusReleased || next == TransferStatusRejected
	case TransferStatusConfirmed:
		return next == TransferStatusReleased
	default:
		return false
	}
}

// TransferDirection distinguishes locally initiated transfers from releases
// that originate on a remote chain
type TransferDirection string

const (
	TransferDirectionOutbound TransferDirection = "outbound"
	TransferDirectionInbound  TransferDirection = "inbound"
)

// FeeRate is the rational service fee cut, numerator over denominator
type FeeRate struct {
	Numerator   uint32 `json:"numerator" db:"fee_numerator"`
	Denominator uint32 `json:"denominator" db:"fee_denominator"`
}

// Validate checks the rate invariant: denominator > 0 and numerator <= denominator
func (r FeeRate) Validate() error {
	if r.Denominator == 0 {
		return fmt.Errorf("fee rate denominator must be positive")
	}
	if r.Numerator > r.Denominator {
		return fmt.Errorf("fee rate numerator %d exceeds denominator %d", r.Numerator, r.Denominator)
	}
	return nil
}

// Transfer is the central ledger record for a cross-chain value movement
type Transfer struct {
	ID              TransferID        `json:"id" db:"id"`
	ChainID         ChainID           `json:"chain_id" db:"chain_id"`
	Initiator       uuid.UUID         `json:"initiator" db:"initiator"`
	ExternalAddress []byte            `json:"external_address" db:"external_address"`
	Amount          decimal.Decimal   `json:"amount" db:"amount"`
	FeeRate         FeeRate           `json:"fee_rate"`
	Direction       TransferDirection `json:"direction" db:"direction"`
	Status          TransferStatus    `json:"status" db:"status"`
	ConfirmedBy     *uuid.UUID        `json:"confirmed_by,omitempty" db:"confirmed_by"`
	ReleasedTo      *uuid.UUID        `json:"released_to,omitempty" db:"released_to"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// Validate checks structural invariants of the record
func (t *Transfer) Validate() error {
	if err := t.Status.Validate(); err != nil {
		return err
	}
	if err := t.FeeRate.Validate(); err != nil {
		return err
	}
	if t.Amount.IsNegative() || !t.Amount.IsInteger() {
		return fmt.Errorf("transfer amount must be a non-negative integer: %s", t.Amount)
	}
	if len(t.ExternalAddress) == 0 {
		return fmt.Errorf("external address must not be empty")
	}
	return nil
}

// InboundRelease records a disbursement for a transfer that originated on a
// remote chain. The external id is the relayer-supplied reference and is
// used purely for replay protection; it is not a local Transfer key.
type InboundRelease struct {
	ExternalID  TransferID      `json:"external_id" db:"external_id"`
	ExternalRef []byte          `json:"external_ref" db:"external_ref"`
	Recipient   uuid.UUID       `json:"recipient" db:"recipient"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Fee         decimal.Decimal `json:"fee" db:"fee"`
	ReleasedBy  uuid.UUID       `json:"released_by" db:"released_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// ChainEntry is a registered external chain
type ChainEntry struct {
	ChainID   ChainID   `json:"chain_id" db:"chain_id"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RelayerEntry is an account authorized to attest and finalize transfers
type RelayerEntry struct {
	Account   uuid.UUID `json:"account" db:"account"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CallerType tags a resolved request origin
type CallerType string

const (
	CallerTypeUser  CallerType = "user"
	CallerTypeAdmin CallerType = "admin"
)

// Caller is the capability token the ledger checks at each operation entry.
// A User caller carries the signed account; an Admin caller carries the
// administrative capability and may also carry an account.
type Caller struct {
	Type    CallerType
	Account uuid.UUID
}

// UserCaller builds a signed-account capability
func UserCaller(account uuid.UUID) Caller {
	return Caller{Type: CallerTypeUser, Account: account}
}

// AdminCaller builds an administrative capability
func AdminCaller(account uuid.UUID) Caller {
	return Caller{Type: CallerTypeAdmin, Account: account}
}

// IsAdmin reports whether the caller holds the administrative capability
func (c Caller) IsAdmin() bool {
	return c.Type == CallerTypeAdmin
}
