// Package registry manages the chain and relayer registries. Registration
// and removal are admin-only; the hot-path activity checks used by every
// transfer operation are cached in redis with a short TTL.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
	"github.com/bridge-service/bridge_service/internal/domain/repositories"
	"github.com/bridge-service/bridge_service/internal/infrastructure/cache"
	"github.com/bridge-service/bridge_service/internal/infrastructure/events"
	"github.com/bridge-service/bridge_service/pkg/logger"
)

// Service provides chain and relayer registry operations
type Service struct {
	repo      repositories.RegistryRepository
	redis     cache.RedisClient
	publisher events.Publisher
	logger    *logger.Logger
	cacheTTL  time.Duration
}

// NewService creates a new registry service. redis may be nil, in which
// case activity checks always hit the store.
func NewService(
	repo repositories.RegistryRepository,
	redis cache.RedisClient,
	publisher events.Publisher,
	log *logger.Logger,
	cacheTTL time.Duration,
) *Service {
	return &Service{
		repo:      repo,
		redis:     redis,
		publisher: publisher,
		logger:    log,
		cacheTTL:  cacheTTL,
	}
}

// RegisterChain activates a chain id for transfers. Registering an id that
// is already active fails; a previously removed id is reactivated.
func (s *Service) RegisterChain(ctx context.Context, caller entities.Caller, chainID entities.ChainID) error {
	if !caller.IsAdmin() {
		return domainerrors.ErrUnauthorized
	}

	entry, err := s.repo.GetChain(ctx, chainID)
	if err != nil && !errors.Is(err, domainerrors.ErrChainNotFound) {
		return err
	}
	if entry != nil && entry.Active {
		return fmt.Errorf("chain %d: %w", chainID, domainerrors.ErrAlreadyRegistered)
	}
	if entry == nil {
		entry = &entities.ChainEntry{ChainID: chainID}
	}
	entry.Active = true

	if err := s.repo.SaveChain(ctx, entry); err != nil {
		return err
	}
	s.invalidateChain(ctx, chainID)

	s.logger.Info("Chain registered", "chain_id", chainID, "admin", caller.Account)
	s.publisher.Publish(ctx, entities.BridgeEvent{
		Type:    entities.EventChainRegistered,
		ChainID: &chainID,
	})
	return nil
}

// UnregisterChain deactivates a chain id. Pending transfers targeting the
// chain are untouched and remain resolvable.
func (s *Service) UnregisterChain(ctx context.Context, caller entities.Caller, chainID entities.ChainID) error {
	if !caller.IsAdmin() {
		return domainerrors.ErrUnauthorized
	}

	entry, err := s.repo.GetChain(ctx, chainID)
	if err != nil {
		return err
	}
	if !entry.Active {
		return fmt.Errorf("chain %d: %w", chainID, domainerrors.ErrChainNotRegistered)
	}
	entry.Active = false

	if err := s.repo.SaveChain(ctx, entry); err != nil {
		return err
	}
	s.invalidateChain(ctx, chainID)

	s.logger.Info("Chain unregistered", "chain_id", chainID, "admin", caller.Account)
	s.publisher.Publish(ctx, entities.BridgeEvent{
		Type:    entities.EventChainUnregistered,
		ChainID: &chainID,
	})
	return nil
}

// RegisterRelayer authorizes an account to confirm and release transfers
func (s *Service) RegisterRelayer(ctx context.Context, caller entities.Caller, account uuid.UUID) error {
	if !caller.IsAdmin() {
		return domainerrors.ErrUnauthorized
	}

	entry, err := s.repo.GetRelayer(ctx, account)
	if err != nil && !errors.Is(err, domainerrors.ErrRelayerNotFound) {
		return err
	}
	if entry != nil && entry.Active {
		return fmt.Errorf("relayer %s: %w", account, domainerrors.ErrAlreadyRegistered)
	}
	if entry == nil {
		entry = &entities.RelayerEntry{Account: account}
	}
	entry.Active = true

	if err := s.repo.SaveRelayer(ctx, entry); err != nil {
		return err
	}
	s.invalidateRelayer(ctx, account)

	s.logger.Info("Relayer registered", "relayer", account, "admin", caller.Account)
	s.publisher.Publish(ctx, entities.BridgeEvent{
		Type:    entities.EventRelayerRegistered,
		Account: &account,
	})
	return nil
}

// UnregisterRelayer revokes a relayer's authorization. In-flight transfers
// the relayer already touched are unaffected.
func (s *Service) UnregisterRelayer(ctx context.Context, caller entities.Caller, account uuid.UUID) error {
	if !caller.IsAdmin() {
		return domainerrors.ErrUnauthorized
	}

	entry, err := s.repo.GetRelayer(ctx, account)
	if err != nil {
		return err
	}
	if !entry.Active {
		return fmt.Errorf("relayer %s: %w", account, domainerrors.ErrRelayerNotRegistered)
	}
	entry.Active = false

	if err := s.repo.SaveRelayer(ctx, entry); err != nil {
		return err
	}
	s.invalidateRelayer(ctx, account)

	s.logger.Info("Relayer unregistered", "relayer", account, "admin", caller.Account)
	s.publisher.Publish(ctx, entities.BridgeEvent{
		Type:    entities.EventRelayerUnregistered,
		Account: &account,
	})
	return nil
}

// IsChainActive reports whether transfers may target the chain
func (s *Service) IsChainActive(ctx context.Context, chainID entities.ChainID) (bool, error) {
	key := chainCacheKey(chainID)
	if active, ok := s.cachedBool(ctx, key); ok {
		return active, nil
	}

	entry, err := s.repo.GetChain(ctx, chainID)
	if errors.Is(err, domainerrors.ErrChainNotFound) {
		s.cacheBool(ctx, key, false)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.cacheBool(ctx, key, entry.Active)
	return entry.Active, nil
}

// IsRelayerActive reports whether the account may confirm and release
func (s *Service) IsRelayerActive(ctx context.Context, account uuid.UUID) (bool, error) {
	key := relayerCacheKey(account)
	if active, ok := s.cachedBool(ctx, key); ok {
		return active, nil
	}

	entry, err := s.repo.GetRelayer(ctx, account)
	if errors.Is(err, domainerrors.ErrRelayerNotFound) {
		s.cacheBool(ctx, key, false)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.cacheBool(ctx, key, entry.Active)
	return entry.Active, nil
}

// ListChains returns all known chain entries, active and inactive
func (s *Service) ListChains(ctx context.Context) ([]*entities.ChainEntry, error) {
	return s.repo.ListChains(ctx)
}

// ListRelayers returns all known relayer entries
func (s *Service) ListRelayers(ctx context.Context) ([]*entities.RelayerEntry, error) {
	return s.repo.ListRelayers(ctx)
}

func chainCacheKey(chainID entities.ChainID) string {
	return fmt.Sprintf("bridge:registry:chain:%d", chainID)
}

func relayerCacheKey(account uuid.UUID) string {
	return fmt.Sprintf("bridge:registry:relayer:%s", account)
}

func (s *Service) cachedBool(ctx context.Context, key string) (bool, bool) {
	if s.redis == nil {
		return false, false
	}
	var active bool
	if err := s.redis.Get(ctx, key, &active); err != nil {
		return false, false
	}
	return active, true
}

func (s *Service) cacheBool(ctx context.Context, key string, active bool) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, key, active, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache registry entry", "key", key, "error", err)
	}
}

func (s *Service) invalidateChain(ctx context.Context, chainID entities.ChainID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, chainCacheKey(chainID)); err != nil {
		s.logger.Warn("Failed to invalidate chain cache", "chain_id", chainID, "error", err)
	}
}

func (s *Service) invalidateRelayer(ctx context.Context, account uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, relayerCacheKey(account)); err != nil {
		s.logger.Warn("Failed to invalidate relayer cache", "relayer", account, "error", err)
	}
}
