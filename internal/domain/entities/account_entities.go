package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType represents the role of a balance account
type AccountType string

const (
	// AccountTypeUser holds a local user's spendable balance
	AccountTypeUser AccountType = "user"

	// AccountTypeEscrow is the single bridge-controlled account holding
	// locked funds pending release
	AccountTypeEscrow AccountType = "escrow"

	// AccountTypeFeeBeneficiary receives the service fee cut on release
	AccountTypeFeeBeneficiary AccountType = "fee_beneficiary"
)

// Validate checks if the account type is valid
func (a AccountType) Validate() error {
	switch a {
	case AccountTypeUser, AccountTypeEscrow, AccountTypeFeeBeneficiary:
		return nil
	default:
		return fmt.Errorf("invalid account type: %s", a)
	}
}

// IsSystemAccountType reports whether the account is bridge-controlled
func (a AccountType) IsSystemAccountType() bool {
	return a == AccountTypeEscrow || a == AccountTypeFeeBeneficiary
}

// Account is a balance holder in the local ledger. Balances are integer
// values in the smallest local unit.
type Account struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	AccountType AccountType     `json:"account_type" db:"account_type"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate checks structural invariants of the account
func (a *Account) Validate() error {
	if err := a.AccountType.Validate(); err != nil {
		return err
	}
	if a.Balance.IsNegative() || !a.Balance.IsInteger() {
		return fmt.Errorf("account balance must be a non-negative integer: %s", a.Balance)
	}
	return nil
}
