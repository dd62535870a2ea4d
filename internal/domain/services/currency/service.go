// Package currency moves value between ledger accounts. It is the only code
// that mutates balances; the bridge service composes its transfers inside a
// single store transaction so a multi-leg movement commits atomically.
package currency

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
	"github.com/bridge-service/bridge_service/internal/domain/repositories"
)

// Service performs balance movements between accounts
type Service struct{}

// NewService creates a new currency service
func NewService() *Service {
	return &Service{}
}

// Transfer moves amount from one account to another inside tx. Both rows are
// locked in a deterministic order so concurrent movements over the same pair
// cannot deadlock. Returns ErrInsufficientBalance when the source cannot
// cover the amount; no balance changes on error.
func (s *Service) Transfer(ctx context.Context, tx repositories.Tx, from, to uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() || !amount.IsInteger() {
		return fmt.Errorf("transfer amount %s: %w", amount, domainerrors.ErrInvalidAmount)
	}
	if from == to || amount.IsZero() {
		return nil
	}

	first, second := from, to
	if lessUUID(to, from) {
		first, second = to, from
	}

	accounts := make(map[uuid.UUID]*entities.Account, 2)
	for _, id := range []uuid.UUID{first, second} {
		account, err := tx.AccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		accounts[id] = account
	}

	source := accounts[from]
	if source.Balance.LessThan(amount) {
		if source.AccountType == entities.AccountTypeEscrow {
			return fmt.Errorf("escrow balance %s below %s: %w",
				source.Balance, amount, domainerrors.ErrInsufficientEscrowBalance)
		}
		return fmt.Errorf("balance %s below %s: %w",
			source.Balance, amount, domainerrors.ErrInsufficientBalance)
	}

	if err := tx.UpdateAccountBalance(ctx, from, source.Balance.Sub(amount)); err != nil {
		return err
	}
	dest := accounts[to]
	if err := tx.UpdateAccountBalance(ctx, to, dest.Balance.Add(amount)); err != nil {
		return err
	}

	return nil
}

// lessUUID gives a total order over account ids for lock acquisition
func lessUUID(a, b uuid.UUID) bool {
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
