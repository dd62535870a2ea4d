// Package repositories defines the persistence interfaces consumed by the
// domain services. SQL implementations live under
// internal/infrastructure/repositories.
package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
)

// Tx is the per-operation atomic view of the bridge state store. Every
// method participates in one underlying transaction; the ForUpdate readers
// lock their rows so racing operations serialize and observe each other's
// committed state.
type Tx interface {
	// Transfers
	TransferForUpdate(ctx context.Context, id entities.TransferID) (*entities.Transfer, error)
	InsertTransfer(ctx context.Context, transfer *entities.Transfer) error
	UpdateTransfer(ctx context.Context, transfer *entities.Transfer) error

	// Inbound release replay protection. Insert fails with
	// ErrAlreadyReleased when the external id was already used.
	InsertInboundRelease(ctx context.Context, release *entities.InboundRelease) error

	// Accounts
	AccountForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error)
	SystemAccountForUpdate(ctx context.Context, accountType entities.AccountType) (*entities.Account, error)
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	// Settings
	NextTransferID(ctx context.Context) (entities.TransferID, error)
	FeeRate(ctx context.Context) (entities.FeeRate, error)
	SetFeeRate(ctx context.Context, rate entities.FeeRate) error
	Frozen(ctx context.Context) (bool, error)
	SetFrozen(ctx context.Context, frozen bool) error
}

// BridgeStore is the transfer ledger's state store. WithinTx applies fn as
// a single all-or-nothing unit; the remaining methods are read-only paths
// that do not lock.
type BridgeStore interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetTransfer(ctx context.Context, id entities.TransferID) (*entities.Transfer, error)
	ListTransfers(ctx context.Context, limit, offset int) ([]*entities.Transfer, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*entities.Account, error)
	SystemAccount(ctx context.Context, accountType entities.AccountType) (*entities.Account, error)

	// OutstandingLocked sums the amounts of transfers still held in escrow
	// (initiated or confirmed outbound transfers).
	OutstandingLocked(ctx context.Context) (decimal.Decimal, error)

	FeeRate(ctx context.Context) (entities.FeeRate, error)
	Frozen(ctx context.Context) (bool, error)
}

// RegistryRepository persists the chain and relayer registries
type RegistryRepository interface {
	GetChain(ctx context.Context, chainID entities.ChainID) (*entities.ChainEntry, error)
	SaveChain(ctx context.Context, entry *entities.ChainEntry) error
	ListChains(ctx context.Context) ([]*entities.ChainEntry, error)

	GetRelayer(ctx context.Context, account uuid.UUID) (*entities.RelayerEntry, error)
	SaveRelayer(ctx context.Context, entry *entities.RelayerEntry) error
	ListRelayers(ctx context.Context) ([]*entities.RelayerEntry, error)
}
