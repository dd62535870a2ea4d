package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
	"github.com/bridge-service/bridge_service/internal/infrastructure/events"
	"github.com/bridge-service/bridge_service/pkg/logger"
)

// fakeRegistryRepo is an in-memory RegistryRepository
type fakeRegistryRepo struct {
	chains   map[entities.ChainID]*entities.ChainEntry
	relayers map[uuid.UUID]*entities.RelayerEntry
}

func newFakeRegistryRepo() *fakeRegistryRepo {
	return &fakeRegistryRepo{
		chains:   make(map[entities.ChainID]*entities.ChainEntry),
		relayers: make(map[uuid.UUID]*entities.RelayerEntry),
	}
}

func (r *fakeRegistryRepo) GetChain(_ context.Context, chainID entities.ChainID) (*entities.ChainEntry, error) {
	entry, ok := r.chains[chainID]
	if !ok {
		return nil, domainerrors.ErrChainNotFound
	}
	c := *entry
	return &c, nil
}

func (r *fakeRegistryRepo) SaveChain(_ context.Context, entry *entities.ChainEntry) error {
	c := *entry
	r.chains[entry.ChainID] = &c
	return nil
}

func (r *fakeRegistryRepo) ListChains(_ context.Context) ([]*entities.ChainEntry, error) {
	var out []*entities.ChainEntry
	for _, entry := range r.chains {
		c := *entry
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeRegistryRepo) GetRelayer(_ context.Context, account uuid.UUID) (*entities.RelayerEntry, error) {
	entry, ok := r.relayers[account]
	if !ok {
		return nil, domainerrors.ErrRelayerNotFound
	}
	c := *entry
	return &c, nil
}

func (r *fakeRegistryRepo) SaveRelayer(_ context.Context, entry *entities.RelayerEntry) error {
	c := *entry
	r.relayers[entry.Account] = &c
	return nil
}

func (r *fakeRegistryRepo) ListRelayers(_ context.Context) ([]*entities.RelayerEntry, error) {
	var out []*entities.RelayerEntry
	for _, entry := range r.relayers {
		c := *entry
		out = append(out, &c)
	}
	return out, nil
}

func newTestService() (*Service, *fakeRegistryRepo) {
	repo := newFakeRegistryRepo()
	svc := NewService(repo, nil, events.NopPublisher{}, logger.NewNop(), time.Minute)
	return svc, repo
}

func TestRegisterChain(t *testing.T) {
	ctx := context.Background()
	admin := entities.AdminCaller(uuid.New())

	t.Run("admin registers a new chain", func(t *testing.T) {
		svc, _ := newTestService()
		require.NoError(t, svc.RegisterChain(ctx, admin, 5))

		active, err := svc.IsChainActive(ctx, 5)
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		svc, _ := newTestService()
		err := svc.RegisterChain(ctx, entities.UserCaller(uuid.New()), 5)
		assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	})

	t.Run("duplicate active registration rejected", func(t *testing.T) {
		svc, _ := newTestService()
		require.NoError(t, svc.RegisterChain(ctx, admin, 5))
		err := svc.RegisterChain(ctx, admin, 5)
		assert.ErrorIs(t, err, domainerrors.ErrAlreadyRegistered)
	})

	t.Run("removed chain can be re-registered", func(t *testing.T) {
		svc, _ := newTestService()
		require.NoError(t, svc.RegisterChain(ctx, admin, 5))
		require.NoError(t, svc.UnregisterChain(ctx, admin, 5))
		require.NoError(t, svc.RegisterChain(ctx, admin, 5))

		active, err := svc.IsChainActive(ctx, 5)
		require.NoError(t, err)
		assert.True(t, active)
	})
}

func TestUnregisterChain(t *testing.T) {
	ctx := context.Background()
	admin := entities.AdminCaller(uuid.New())

	t.Run("deactivates without deleting", func(t *testing.T) {
		svc, repo := newTestService()
		require.NoError(t, svc.RegisterChain(ctx, admin, 7))
		require.NoError(t, svc.UnregisterChain(ctx, admin, 7))

		active, err := svc.IsChainActive(ctx, 7)
		require.NoError(t, err)
		assert.False(t, active)

		// The entry survives for pending transfers to resolve against.
		entry, err := repo.GetChain(ctx, 7)
		require.NoError(t, err)
		assert.False(t, entry.Active)
	})

	t.Run("unknown chain", func(t *testing.T) {
		svc, _ := newTestService()
		err := svc.UnregisterChain(ctx, admin, 42)
		assert.ErrorIs(t, err, domainerrors.ErrChainNotFound)
	})

	t.Run("already inactive", func(t *testing.T) {
		svc, _ := newTestService()
		require.NoError(t, svc.RegisterChain(ctx, admin, 7))
		require.NoError(t, svc.UnregisterChain(ctx, admin, 7))
		err := svc.UnregisterChain(ctx, admin, 7)
		assert.ErrorIs(t, err, domainerrors.ErrChainNotRegistered)
	})
}

func TestRelayerRegistry(t *testing.T) {
	ctx := context.Background()
	admin := entities.AdminCaller(uuid.New())
	relayer := uuid.New()

	t.Run("register and revoke", func(t *testing.T) {
		svc, _ := newTestService()
		require.NoError(t, svc.RegisterRelayer(ctx, admin, relayer))

		active, err := svc.IsRelayerActive(ctx, relayer)
		require.NoError(t, err)
		assert.True(t, active)

		require.NoError(t, svc.UnregisterRelayer(ctx, admin, relayer))
		active, err = svc.IsRelayerActive(ctx, relayer)
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("duplicate registration rejected", func(t *testing.T) {
		svc, _ := newTestService()
		require.NoError(t, svc.RegisterRelayer(ctx, admin, relayer))
		err := svc.RegisterRelayer(ctx, admin, relayer)
		assert.ErrorIs(t, err, domainerrors.ErrAlreadyRegistered)
	})

	t.Run("unknown relayer is simply inactive", func(t *testing.T) {
		svc, _ := newTestService()
		active, err := svc.IsRelayerActive(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		svc, _ := newTestService()
		err := svc.RegisterRelayer(ctx, entities.UserCaller(uuid.New()), relayer)
		assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
		err = svc.UnregisterRelayer(ctx, entities.UserCaller(uuid.New()), relayer)
		assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	})
}
