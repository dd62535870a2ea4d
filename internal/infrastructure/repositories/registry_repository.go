package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
)

// RegistryRepository is the postgres-backed chain and relayer registry
type RegistryRepository struct {
	db *sqlx.DB
}

// NewRegistryRepository creates a new registry repository
func NewRegistryRepository(db *sqlx.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

// GetChain retrieves a chain entry by id
func (r *RegistryRepository) GetChain(ctx context.Context, chainID entities.ChainID) (*entities.ChainEntry, error) {
	var entry entities.ChainEntry
	err := r.db.GetContext(ctx, &entry,
		`SELECT chain_id, active, created_at, updated_at FROM chains WHERE chain_id = $1`, int64(chainID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.ErrChainNotFound
		}
		return nil, fmt.Errorf("get chain: %w", err)
	}
	return &entry, nil
}

// SaveChain upserts a chain entry
func (r *RegistryRepository) SaveChain(ctx context.Context, entry *entities.ChainEntry) error {
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	query := `
		INSERT INTO chains (chain_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chain_id)
		DO UPDATE SET active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, int64(entry.ChainID), entry.Active, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save chain: %w", err)
	}
	return nil
}

// ListChains retrieves all chain entries ordered by id
func (r *RegistryRepository) ListChains(ctx context.Context) ([]*entities.ChainEntry, error) {
	var entries []*entities.ChainEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT chain_id, active, created_at, updated_at FROM chains ORDER BY chain_id`)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	return entries, nil
}

// GetRelayer retrieves a relayer entry by account
func (r *RegistryRepository) GetRelayer(ctx context.Context, account uuid.UUID) (*entities.RelayerEntry, error) {
	var entry entities.RelayerEntry
	err := r.db.GetContext(ctx, &entry,
		`SELECT account, active, created_at, updated_at FROM relayers WHERE account = $1`, account)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.ErrRelayerNotFound
		}
		return nil, fmt.Errorf("get relayer: %w", err)
	}
	return &entry, nil
}

// SaveRelayer upserts a relayer entry
func (r *RegistryRepository) SaveRelayer(ctx context.Context, entry *entities.RelayerEntry) error {
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	query := `
		INSERT INTO relayers (account, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account)
		DO UPDATE SET active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, entry.Account, entry.Active, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save relayer: %w", err)
	}
	return nil
}

// ListRelayers retrieves all relayer entries
func (r *RegistryRepository) ListRelayers(ctx context.Context) ([]*entities.RelayerEntry, error) {
	var entries []*entities.RelayerEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT account, active, created_at, updated_at FROM relayers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list relayers: %w", err)
	}
	return entries, nil
}
