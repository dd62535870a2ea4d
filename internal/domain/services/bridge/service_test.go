package bridge

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
	"github.com/bridge-service/bridge_service/internal/domain/repositories"
	"github.com/bridge-service/bridge_service/internal/domain/services/currency"
	"github.com/bridge-service/bridge_service/internal/infrastructure/events"
	"github.com/bridge-service/bridge_service/pkg/logger"
)

// fakeState is the in-memory ledger state shared by the fake store
type fakeState struct {
	accounts  map[uuid.UUID]*entities.Account
	transfers map[entities.TransferID]*entities.Transfer
	inbound   map[entities.TransferID]*entities.InboundRelease
	feeRate   entities.FeeRate
	frozen    bool
	nextID    entities.TransferID
}

func (s *fakeState) clone() *fakeState {
	cp := &fakeState{
		accounts:  make(map[uuid.UUID]*entities.Account, len(s.accounts)),
		transfers: make(map[entities.TransferID]*entities.Transfer, len(s.transfers)),
		inbound:   make(map[entities.TransferID]*entities.InboundRelease, len(s.inbound)),
		feeRate:   s.feeRate,
		frozen:    s.frozen,
		nextID:    s.nextID,
	}
	for id, a := range s.accounts {
		c := *a
		cp.accounts[id] = &c
	}
	for id, tr := range s.transfers {
		c := *tr
		cp.transfers[id] = &c
	}
	for id, r := range s.inbound {
		c := *r
		cp.inbound[id] = &c
	}
	return cp
}

// fakeStore implements repositories.BridgeStore with all-or-nothing
// transaction semantics over a state snapshot
type fakeStore struct {
	state *fakeState
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: &fakeState{
		accounts:  make(map[uuid.UUID]*entities.Account),
		transfers: make(map[entities.TransferID]*entities.Transfer),
		inbound:   make(map[entities.TransferID]*entities.InboundRelease),
		feeRate:   entities.FeeRate{Numerator: 0, Denominator: 1},
		nextID:    0,
	}}
}

func (s *fakeStore) addAccount(accountType entities.AccountType, balance int64) uuid.UUID {
	id := uuid.New()
	s.state.accounts[id] = &entities.Account{
		ID:          id,
		AccountType: accountType,
		Balance:     decimal.NewFromInt(balance),
	}
	return id
}

func (s *fakeStore) balance(id uuid.UUID) decimal.Decimal {
	return s.state.accounts[id].Balance
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx repositories.Tx) error) error {
	working := s.state.clone()
	if err := fn(&fakeTx{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *fakeStore) GetTransfer(_ context.Context, id entities.TransferID) (*entities.Transfer, error) {
	tr, ok := s.state.transfers[id]
	if !ok {
		return nil, domainerrors.ErrTransferNotFound
	}
	c := *tr
	return &c, nil
}

func (s *fakeStore) ListTransfers(_ context.Context, limit, offset int) ([]*entities.Transfer, error) {
	var out []*entities.Transfer
	for _, tr := range s.state.transfers {
		c := *tr
		out = append(out, &c)
	}
	return out, nil
}

func (s *fakeStore) GetAccount(_ context.Context, id uuid.UUID) (*entities.Account, error) {
	a, ok := s.state.accounts[id]
	if !ok {
		return nil, domainerrors.ErrAccountNotFound
	}
	c := *a
	return &c, nil
}

func (s *fakeStore) SystemAccount(_ context.Context, accountType entities.AccountType) (*entities.Account, error) {
	for _, a := range s.state.accounts {
		if a.AccountType == accountType {
			c := *a
			return &c, nil
		}
	}
	return nil, domainerrors.ErrAccountNotFound
}

func (s *fakeStore) OutstandingLocked(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tr := range s.state.transfers {
		if tr.Direction == entities.TransferDirectionOutbound &&
			(tr.Status == entities.TransferStatusInitiated || tr.Status == entities.TransferStatusConfirmed) {
			total = total.Add(tr.Amount)
		}
	}
	return total, nil
}

func (s *fakeStore) FeeRate(_ context.Context) (entities.FeeRate, error) {
	return s.state.feeRate, nil
}

func (s *fakeStore) Frozen(_ context.Context) (bool, error) {
	return s.state.frozen, nil
}

// fakeTx applies mutations to the working snapshot
type fakeTx struct {
	state *fakeState
}

func (t *fakeTx) TransferForUpdate(_ context.Context, id entities.TransferID) (*entities.Transfer, error) {
	tr, ok := t.state.transfers[id]
	if !ok {
		return nil, domainerrors.ErrTransferNotFound
	}
	return tr, nil
}

func (t *fakeTx) InsertTransfer(_ context.Context, transfer *entities.Transfer) error {
	if err := transfer.Validate(); err != nil {
		return err
	}
	t.state.transfers[transfer.ID] = transfer
	return nil
}

func (t *fakeTx) UpdateTransfer(_ context.Context, transfer *entities.Transfer) error {
	if _, ok := t.state.transfers[transfer.ID]; !ok {
		return domainerrors.ErrTransferNotFound
	}
	t.state.transfers[transfer.ID] = transfer
	return nil
}

func (t *fakeTx) InsertInboundRelease(_ context.Context, release *entities.InboundRelease) error {
	if _, ok := t.state.inbound[release.ExternalID]; ok {
		return domainerrors.ErrAlreadyReleased
	}
	t.state.inbound[release.ExternalID] = release
	return nil
}

func (t *fakeTx) AccountForUpdate(_ context.Context, id uuid.UUID) (*entities.Account, error) {
	a, ok := t.state.accounts[id]
	if !ok {
		return nil, domainerrors.ErrAccountNotFound
	}
	return a, nil
}

func (t *fakeTx) SystemAccountForUpdate(_ context.Context, accountType entities.AccountType) (*entities.Account, error) {
	for _, a := range t.state.accounts {
		if a.AccountType == accountType {
			return a, nil
		}
	}
	return nil, domainerrors.ErrAccountNotFound
}

func (t *fakeTx) UpdateAccountBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	a, ok := t.state.accounts[id]
	if !ok {
		return domainerrors.ErrAccountNotFound
	}
	a.Balance = balance
	return nil
}

func (t *fakeTx) NextTransferID(_ context.Context) (entities.TransferID, error) {
	id := t.state.nextID
	t.state.nextID++
	return id, nil
}

func (t *fakeTx) FeeRate(_ context.Context) (entities.FeeRate, error) {
	return t.state.feeRate, nil
}

func (t *fakeTx) SetFeeRate(_ context.Context, rate entities.FeeRate) error {
	t.state.feeRate = rate
	return nil
}

func (t *fakeTx) Frozen(_ context.Context) (bool, error) {
	return t.state.frozen, nil
}

func (t *fakeTx) SetFrozen(_ context.Context, frozen bool) error {
	t.state.frozen = frozen
	return nil
}

// fakeRegistry implements the Registry gate with plain sets
type fakeRegistry struct {
	chains   map[entities.ChainID]bool
	relayers map[uuid.UUID]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		chains:   make(map[entities.ChainID]bool),
		relayers: make(map[uuid.UUID]bool),
	}
}

func (r *fakeRegistry) IsChainActive(_ context.Context, chainID entities.ChainID) (bool, error) {
	return r.chains[chainID], nil
}

func (r *fakeRegistry) IsRelayerActive(_ context.Context, account uuid.UUID) (bool, error) {
	return r.relayers[account], nil
}

type fixture struct {
	service     *Service
	store       *fakeStore
	registry    *fakeRegistry
	user        uuid.UUID
	relayer     uuid.UUID
	escrow      uuid.UUID
	beneficiary uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeStore()
	registry := newFakeRegistry()

	f := &fixture{
		store:       store,
		registry:    registry,
		user:        store.addAccount(entities.AccountTypeUser, 1000),
		relayer:     store.addAccount(entities.AccountTypeUser, 0),
		escrow:      store.addAccount(entities.AccountTypeEscrow, 0),
		beneficiary: store.addAccount(entities.AccountTypeFeeBeneficiary, 0),
	}
	registry.chains[1] = true
	registry.relayers[f.relayer] = true
	store.state.feeRate = entities.FeeRate{Numerator: 3, Denominator: 10}

	f.service = NewService(
		store,
		registry,
		currency.NewService(),
		events.NopPublisher{},
		logger.NewNop(),
		decimal.NewFromInt(1),
	)
	return f
}

func (f *fixture) initiate(t *testing.T, amount int64) *entities.Transfer {
	t.Helper()
	transfer, err := f.service.InitiateTransfer(
		context.Background(),
		entities.UserCaller(f.user),
		[]byte{0xde, 0xad, 0xbe, 0xef},
		decimal.NewFromInt(amount),
		1,
	)
	require.NoError(t, err)
	return transfer
}

func TestTransferLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := f.store.addAccount(entities.AccountTypeUser, 0)

	transfer := f.initiate(t, 100)
	assert.Equal(t, entities.TransferStatusInitiated, transfer.Status)
	assert.Equal(t, entities.FeeRate{Numerator: 3, Denominator: 10}, transfer.FeeRate)
	assert.True(t, f.store.balance(f.user).Equal(decimal.NewFromInt(900)))
	assert.True(t, f.store.balance(f.escrow).Equal(decimal.NewFromInt(100)))

	confirmed, err := f.service.ConfirmTransfer(ctx, entities.UserCaller(f.relayer), transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TransferStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, f.relayer, *confirmed.ConfirmedBy)
	// Attestation only: nothing moved.
	assert.True(t, f.store.balance(f.escrow).Equal(decimal.NewFromInt(100)))

	result, err := f.service.ReleaseTokens(ctx, entities.UserCaller(f.relayer),
		transfer.ID, []byte{0x01}, recipient, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, result.Actual.Equal(decimal.NewFromInt(70)))
	assert.True(t, result.Fee.Equal(decimal.NewFromInt(30)))
	assert.True(t, f.store.balance(recipient).Equal(decimal.NewFromInt(70)))
	assert.True(t, f.store.balance(f.beneficiary).Equal(decimal.NewFromInt(30)))
	assert.True(t, f.store.balance(f.escrow).IsZero())

	stored, err := f.service.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TransferStatusReleased, stored.Status)
	require.NotNil(t, stored.ReleasedTo)
	assert.Equal(t, recipient, *stored.ReleasedTo)

	// A retried release must fail without moving anything.
	_, err = f.service.ReleaseTokens(ctx, entities.UserCaller(f.relayer),
		transfer.ID, []byte{0x01}, recipient, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyReleased)
	assert.True(t, f.store.balance(recipient).Equal(decimal.NewFromInt(70)))
}

func TestInitiateTransferPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("unregistered chain", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.InitiateTransfer(ctx, entities.UserCaller(f.user),
			[]byte{0x01}, decimal.NewFromInt(10), 99)
		assert.ErrorIs(t, err, domainerrors.ErrChainNotRegistered)
	})

	t.Run("insufficient balance leaves state untouched", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.InitiateTransfer(ctx, entities.UserCaller(f.user),
			[]byte{0x01}, decimal.NewFromInt(1001), 1)
		assert.ErrorIs(t, err, domainerrors.ErrInsufficientBalance)
		assert.True(t, f.store.balance(f.user).Equal(decimal.NewFromInt(1000)))
		assert.True(t, f.store.balance(f.escrow).IsZero())
	})

	t.Run("zero amount", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.InitiateTransfer(ctx, entities.UserCaller(f.user),
			[]byte{0x01}, decimal.Zero, 1)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidAmount)
	})

	t.Run("below minimum deposit", func(t *testing.T) {
		f := newFixture(t)
		f.service.minimumDeposit = decimal.NewFromInt(50)
		_, err := f.service.InitiateTransfer(ctx, entities.UserCaller(f.user),
			[]byte{0x01}, decimal.NewFromInt(49), 1)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidAmount)
	})
}

func TestConfirmTransferPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("non-relayer rejected", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, 10)
		_, err := f.service.ConfirmTransfer(ctx, entities.UserCaller(f.user), transfer.ID)
		assert.ErrorIs(t, err, domainerrors.ErrRelayerNotRegistered)
	})

	t.Run("double confirm rejected", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, 10)
		_, err := f.service.ConfirmTransfer(ctx, entities.UserCaller(f.relayer), transfer.ID)
		require.NoError(t, err)
		_, err = f.service.ConfirmTransfer(ctx, entities.UserCaller(f.relayer), transfer.ID)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidTransferState)
	})

	t.Run("unknown transfer", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.ConfirmTransfer(ctx, entities.UserCaller(f.relayer), 404)
		assert.ErrorIs(t, err, domainerrors.ErrTransferNotFound)
	})
}

func TestReleaseUnconfirmedTransfer(t *testing.T) {
	// A relayer may release a transfer that was never confirmed.
	f := newFixture(t)
	recipient := f.store.addAccount(entities.AccountTypeUser, 0)
	transfer := f.initiate(t, 100)

	result, err := f.service.ReleaseTokens(context.Background(), entities.UserCaller(f.relayer),
		transfer.ID, []byte{0x01}, recipient, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, result.Actual.Equal(decimal.NewFromInt(70)))
}

func TestReleaseAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := f.store.addAccount(entities.AccountTypeUser, 0)
	transfer := f.initiate(t, 100)

	_, err := f.service.ReleaseTokens(ctx, entities.UserCaller(f.user),
		transfer.ID, []byte{0x01}, recipient, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	// The administrative capability is an escape hatch.
	_, err = f.service.ReleaseTokens(ctx, entities.AdminCaller(uuid.New()),
		transfer.ID, []byte{0x01}, recipient, decimal.NewFromInt(100))
	assert.NoError(t, err)
}

func TestInboundRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := f.store.addAccount(entities.AccountTypeUser, 0)

	// Fund escrow through a local transfer so there is something to pay out.
	f.initiate(t, 500)

	const externalID = 777001
	result, err := f.service.ReleaseTokens(ctx, entities.UserCaller(f.relayer),
		externalID, []byte{0xaa}, recipient, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.True(t, result.Actual.Equal(decimal.NewFromInt(140)))
	assert.True(t, result.Fee.Equal(decimal.NewFromInt(60)))
	assert.True(t, f.store.balance(recipient).Equal(decimal.NewFromInt(140)))

	// Replaying the external id must not double-disburse.
	_, err = f.service.ReleaseTokens(ctx, entities.UserCaller(f.relayer),
		externalID, []byte{0xaa}, recipient, decimal.NewFromInt(200))
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyReleased)
	assert.True(t, f.store.balance(recipient).Equal(decimal.NewFromInt(140)))
	assert.True(t, f.store.balance(f.escrow).Equal(decimal.NewFromInt(300)))
}

func TestInboundReleaseInsufficientEscrow(t *testing.T) {
	f := newFixture(t)
	recipient := f.store.addAccount(entities.AccountTypeUser, 0)
	f.initiate(t, 50)

	_, err := f.service.ReleaseTokens(context.Background(), entities.UserCaller(f.relayer),
		888, []byte{0xbb}, recipient, decimal.NewFromInt(200))
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientEscrowBalance)

	// The failed release must not burn the external id: a later retry with
	// enough escrow succeeds.
	f.initiate(t, 500)
	_, err = f.service.ReleaseTokens(context.Background(), entities.UserCaller(f.relayer),
		888, []byte{0xbb}, recipient, decimal.NewFromInt(200))
	assert.NoError(t, err)
}

func TestUnregisteredChainKeepsTransfersResolvable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := f.store.addAccount(entities.AccountTypeUser, 0)

	transfer := f.initiate(t, 100)

	// Deactivate the chain after initiation. Pending transfers must remain
	// confirmable and releasable.
	f.registry.chains[1] = false

	_, err := f.service.ConfirmTransfer(ctx, entities.UserCaller(f.relayer), transfer.ID)
	require.NoError(t, err)
	_, err = f.service.ReleaseTokens(ctx, entities.UserCaller(f.relayer),
		transfer.ID, []byte{0x01}, recipient, decimal.NewFromInt(100))
	require.NoError(t, err)

	// New initiations are blocked.
	_, err = f.service.InitiateTransfer(ctx, entities.UserCaller(f.user),
		[]byte{0x01}, decimal.NewFromInt(10), 1)
	assert.ErrorIs(t, err, domainerrors.ErrChainNotRegistered)
}

func TestFreezeBlocksOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := entities.AdminCaller(uuid.New())
	recipient := f.store.addAccount(entities.AccountTypeUser, 0)

	transfer := f.initiate(t, 100)

	require.NoError(t, f.service.Freeze(ctx, admin))

	_, err := f.service.InitiateTransfer(ctx, entities.UserCaller(f.user),
		[]byte{0x01}, decimal.NewFromInt(10), 1)
	assert.ErrorIs(t, err, domainerrors.ErrBridgeFrozen)
	_, err = f.service.ConfirmTransfer(ctx, entities.UserCaller(f.relayer), transfer.ID)
	assert.ErrorIs(t, err, domainerrors.ErrBridgeFrozen)
	_, err = f.service.ReleaseTokens(ctx, entities.UserCaller(f.relayer),
		transfer.ID, []byte{0x01}, recipient, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, domainerrors.ErrBridgeFrozen)

	require.NoError(t, f.service.Unfreeze(ctx, admin))
	_, err = f.service.ConfirmTransfer(ctx, entities.UserCaller(f.relayer), transfer.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, f.service.Freeze(ctx, entities.UserCaller(f.user)), domainerrors.ErrUnauthorized)
}

func TestSetServiceFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := entities.AdminCaller(uuid.New())

	t.Run("admin only", func(t *testing.T) {
		err := f.service.SetServiceFee(ctx, entities.UserCaller(f.user),
			entities.FeeRate{Numerator: 1, Denominator: 2})
		assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	})

	t.Run("invalid rate leaves the prior rate", func(t *testing.T) {
		err := f.service.SetServiceFee(ctx, admin, entities.FeeRate{Numerator: 3, Denominator: 0})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidRate)

		rate, err := f.service.ServiceFee(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.FeeRate{Numerator: 3, Denominator: 10}, rate)
	})

	t.Run("new rate applies to new transfers only", func(t *testing.T) {
		before := f.initiate(t, 10)

		require.NoError(t, f.service.SetServiceFee(ctx, admin, entities.FeeRate{Numerator: 1, Denominator: 2}))

		after := f.initiate(t, 10)
		assert.Equal(t, entities.FeeRate{Numerator: 3, Denominator: 10}, before.FeeRate)
		assert.Equal(t, entities.FeeRate{Numerator: 1, Denominator: 2}, after.FeeRate)
	})
}

func TestForceWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := f.store.addAccount(entities.AccountTypeUser, 0)

	f.initiate(t, 400)

	_, err := f.service.ForceWithdraw(ctx, entities.UserCaller(f.user), recipient)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	drained, err := f.service.ForceWithdraw(ctx, entities.AdminCaller(uuid.New()), recipient)
	require.NoError(t, err)
	assert.True(t, drained.Equal(decimal.NewFromInt(400)))
	assert.True(t, f.store.balance(f.escrow).IsZero())
	assert.True(t, f.store.balance(recipient).Equal(decimal.NewFromInt(400)))
}

func TestTransferIDsAreSequential(t *testing.T) {
	f := newFixture(t)

	first := f.initiate(t, 10)
	second := f.initiate(t, 10)
	assert.Equal(t, first.ID+1, second.ID)
}
