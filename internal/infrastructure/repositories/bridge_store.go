package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
	"github.com/bridge-service/bridge_service/internal/domain/repositories"
	"github.com/bridge-service/bridge_service/internal/infrastructure/database"
)

// BridgeStore is the postgres-backed transfer ledger state store
type BridgeStore struct {
	db *sqlx.DB
}

// NewBridgeStore creates a new bridge store
func NewBridgeStore(db *sqlx.DB) *BridgeStore {
	return &BridgeStore{db: db}
}

// WithinTx applies fn as a single read-committed transaction
func (s *BridgeStore) WithinTx(ctx context.Context, fn func(tx repositories.Tx) error) error {
	return database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&bridgeTx{tx: tx})
	})
}

// GetTransfer retrieves a transfer without locking
func (s *BridgeStore) GetTransfer(ctx context.Context, id entities.TransferID) (*entities.Transfer, error) {
	return scanTransfer(s.db.QueryRowxContext(ctx, selectTransferQuery+` WHERE id = $1`, int64(id)))
}

// ListTransfers retrieves transfers ordered by id, newest first
func (s *BridgeStore) ListTransfers(ctx context.Context, limit, offset int) ([]*entities.Transfer, error) {
	rows, err := s.db.QueryxContext(ctx, selectTransferQuery+` ORDER BY id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*entities.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return transfers, nil
}

// GetAccount retrieves an account without locking
func (s *BridgeStore) GetAccount(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	var account entities.Account
	err := s.db.GetContext(ctx, &account,
		`SELECT id, account_type, balance, created_at, updated_at FROM accounts WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

// SystemAccount retrieves the singleton bridge-controlled account of a type
func (s *BridgeStore) SystemAccount(ctx context.Context, accountType entities.AccountType) (*entities.Account, error) {
	var account entities.Account
	err := s.db.GetContext(ctx, &account,
		`SELECT id, account_type, balance, created_at, updated_at FROM accounts WHERE account_type = $1`, accountType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get system account: %w", err)
	}
	return &account, nil
}

// OutstandingLocked sums amounts still held in escrow for outbound transfers
func (s *BridgeStore) OutstandingLocked(ctx context.Context) (decimal.Decimal, error) {
	var totalStr string
	err := s.db.QueryRowxContext(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM transfers
		 WHERE direction = 'outbound' AND status IN ('initiated', 'confirmed')`,
	).Scan(&totalStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum outstanding locked: %w", err)
	}

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse outstanding total: %w", err)
	}
	return total, nil
}

// FeeRate reads the current service fee rate
func (s *BridgeStore) FeeRate(ctx context.Context) (entities.FeeRate, error) {
	return readFeeRate(ctx, s.db)
}

// Frozen reads the freeze flag
func (s *BridgeStore) Frozen(ctx context.Context) (bool, error) {
	return readFrozen(ctx, s.db)
}

// bridgeTx implements repositories.Tx over a sqlx transaction
type bridgeTx struct {
	tx *sqlx.Tx
}

const selectTransferQuery = `
	SELECT id, chain_id, initiator, external_address, amount,
	       fee_numerator, fee_denominator, direction, status,
	       confirmed_by, released_to, created_at, updated_at
	FROM transfers`

// TransferForUpdate retrieves and row-locks a transfer
func (t *bridgeTx) TransferForUpdate(ctx context.Context, id entities.TransferID) (*entities.Transfer, error) {
	return scanTransfer(t.tx.QueryRowxContext(ctx, selectTransferQuery+` WHERE id = $1 FOR UPDATE`, int64(id)))
}

// InsertTransfer stores a new transfer record
func (t *bridgeTx) InsertTransfer(ctx context.Context, transfer *entities.Transfer) error {
	if err := transfer.Validate(); err != nil {
		return fmt.Errorf("validate transfer: %w", err)
	}

	query := `
		INSERT INTO transfers (
			id, chain_id, initiator, external_address, amount,
			fee_numerator, fee_denominator, direction, status,
			confirmed_by, released_to, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	now := time.Now()
	transfer.CreatedAt = now
	transfer.UpdatedAt = now

	_, err := t.tx.ExecContext(
		ctx,
		query,
		int64(transfer.ID),
		int64(transfer.ChainID),
		transfer.Initiator,
		transfer.ExternalAddress,
		transfer.Amount,
		int64(transfer.FeeRate.Numerator),
		int64(transfer.FeeRate.Denominator),
		transfer.Direction,
		transfer.Status,
		transfer.ConfirmedBy,
		transfer.ReleasedTo,
		transfer.CreatedAt,
		transfer.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("transfer id %d: %w", transfer.ID, domainerrors.ErrAlreadyRegistered)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}

	return nil
}

// UpdateTransfer persists status and attribution changes
func (t *bridgeTx) UpdateTransfer(ctx context.Context, transfer *entities.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $1, confirmed_by = $2, released_to = $3, updated_at = $4
		WHERE id = $5
	`

	transfer.UpdatedAt = time.Now()
	result, err := t.tx.ExecContext(
		ctx,
		query,
		transfer.Status,
		transfer.ConfirmedBy,
		transfer.ReleasedTo,
		transfer.UpdatedAt,
		int64(transfer.ID),
	)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domainerrors.ErrTransferNotFound
	}

	return nil
}

// InsertInboundRelease records an inbound disbursement; the primary key on
// external_id is the replay guard.
func (t *bridgeTx) InsertInboundRelease(ctx context.Context, release *entities.InboundRelease) error {
	query := `
		INSERT INTO inbound_releases (external_id, external_ref, recipient, amount, fee, released_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	release.CreatedAt = time.Now()
	_, err := t.tx.ExecContext(
		ctx,
		query,
		int64(release.ExternalID),
		release.ExternalRef,
		release.Recipient,
		release.Amount,
		release.Fee,
		release.ReleasedBy,
		release.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("inbound release %d: %w", release.ExternalID, domainerrors.ErrAlreadyReleased)
		}
		return fmt.Errorf("insert inbound release: %w", err)
	}

	return nil
}

// AccountForUpdate retrieves and row-locks an account
func (t *bridgeTx) AccountForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	var account entities.Account
	err := t.tx.GetContext(ctx, &account,
		`SELECT id, account_type, balance, created_at, updated_at FROM accounts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("lock account: %w", err)
	}
	return &account, nil
}

// SystemAccountForUpdate retrieves and row-locks a system account
func (t *bridgeTx) SystemAccountForUpdate(ctx context.Context, accountType entities.AccountType) (*entities.Account, error) {
	var account entities.Account
	err := t.tx.GetContext(ctx, &account,
		`SELECT id, account_type, balance, created_at, updated_at FROM accounts WHERE account_type = $1 FOR UPDATE`, accountType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("lock system account: %w", err)
	}
	return &account, nil
}

// UpdateAccountBalance writes a new balance for an already-locked account
func (t *bridgeTx) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`,
		balance, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}

	return nil
}

// NextTransferID allocates the next transfer id, incrementing the stored
// counter under its row lock
func (t *bridgeTx) NextTransferID(ctx context.Context) (entities.TransferID, error) {
	var next int64
	err := t.tx.QueryRowxContext(ctx,
		`UPDATE bridge_settings
		 SET value = jsonb_build_object('next', (value->>'next')::bigint + 1)
		 WHERE key = 'next_transfer_id'
		 RETURNING (value->>'next')::bigint - 1`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate transfer id: %w", err)
	}
	return entities.TransferID(next), nil
}

// FeeRate reads the current service fee rate under the transaction
func (t *bridgeTx) FeeRate(ctx context.Context) (entities.FeeRate, error) {
	return readFeeRate(ctx, t.tx)
}

// SetFeeRate stores a new service fee rate
func (t *bridgeTx) SetFeeRate(ctx context.Context, rate entities.FeeRate) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE bridge_settings
		 SET value = jsonb_build_object('numerator', $1::bigint, 'denominator', $2::bigint)
		 WHERE key = 'fee_rate'`,
		int64(rate.Numerator), int64(rate.Denominator))
	if err != nil {
		return fmt.Errorf("set fee rate: %w", err)
	}
	return nil
}

// Frozen reads the freeze flag under the transaction
func (t *bridgeTx) Frozen(ctx context.Context) (bool, error) {
	return readFrozen(ctx, t.tx)
}

// SetFrozen stores the freeze flag
func (t *bridgeTx) SetFrozen(ctx context.Context, frozen bool) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE bridge_settings SET value = jsonb_build_object('frozen', $1::bool) WHERE key = 'frozen'`,
		frozen)
	if err != nil {
		return fmt.Errorf("set frozen: %w", err)
	}
	return nil
}

// queryer covers *sqlx.DB and *sqlx.Tx for the shared settings readers
type queryer interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

func readFeeRate(ctx context.Context, q queryer) (entities.FeeRate, error) {
	var numerator, denominator int64
	err := q.QueryRowxContext(ctx,
		`SELECT (value->>'numerator')::bigint, (value->>'denominator')::bigint
		 FROM bridge_settings WHERE key = 'fee_rate'`,
	).Scan(&numerator, &denominator)
	if err != nil {
		return entities.FeeRate{}, fmt.Errorf("read fee rate: %w", err)
	}
	return entities.FeeRate{
		Numerator:   uint32(numerator),
		Denominator: uint32(denominator),
	}, nil
}

func readFrozen(ctx context.Context, q queryer) (bool, error) {
	var frozen bool
	err := q.QueryRowxContext(ctx,
		`SELECT (value->>'frozen')::bool FROM bridge_settings WHERE key = 'frozen'`,
	).Scan(&frozen)
	if err != nil {
		return false, fmt.Errorf("read frozen flag: %w", err)
	}
	return frozen, nil
}

// rowScanner covers *sqlx.Row and *sqlx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(row rowScanner) (*entities.Transfer, error) {
	var transfer entities.Transfer
	var id, chainID, feeNumerator, feeDenominator int64

	err := row.Scan(
		&id,
		&chainID,
		&transfer.Initiator,
		&transfer.ExternalAddress,
		&transfer.Amount,
		&feeNumerator,
		&feeDenominator,
		&transfer.Direction,
		&transfer.Status,
		&transfer.ConfirmedBy,
		&transfer.ReleasedTo,
		&transfer.CreatedAt,
		&transfer.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.ErrTransferNotFound
		}
		return nil, fmt.Errorf("scan transfer: %w", err)
	}

	transfer.ID = entities.TransferID(id)
	transfer.ChainID = entities.ChainID(chainID)
	transfer.FeeRate = entities.FeeRate{
		Numerator:   uint32(feeNumerator),
		Denominator: uint32(feeDenominator),
	}

	return &transfer, nil
}
