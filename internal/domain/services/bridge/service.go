// Package bridge implements the transfer ledger and the escrow/release
// engine. Every state-changing operation runs as one store transaction with
// row locking, so racing relayers serialize and the loser observes the
// winner's committed state.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
	"github.com/bridge-service/bridge_service/internal/domain/repositories"
	"github.com/bridge-service/bridge_service/internal/domain/services/currency"
	"github.com/bridge-service/bridge_service/internal/infrastructure/events"
	"github.com/bridge-service/bridge_service/pkg/logger"
	"github.com/bridge-service/bridge_service/pkg/metrics"
)

// Registry is the subset of the registry service the ledger gates on
type Registry interface {
	IsChainActive(ctx context.Context, chainID entities.ChainID) (bool, error)
	IsRelayerActive(ctx context.Context, account uuid.UUID) (bool, error)
}

// ReleaseResult reports how a release split the disbursed amount
type ReleaseResult struct {
	ID        entities.TransferID
	Recipient uuid.UUID
	Actual    decimal.Decimal
	Fee       decimal.Decimal
}

// Service is the transfer ledger
type Service struct {
	store          repositories.BridgeStore
	registry       Registry
	currency       *currency.Service
	publisher      events.Publisher
	logger         *logger.Logger
	minimumDeposit decimal.Decimal
}

// NewService creates the ledger service
func NewService(
	store repositories.BridgeStore,
	registry Registry,
	currencySvc *currency.Service,
	publisher events.Publisher,
	log *logger.Logger,
	minimumDeposit decimal.Decimal,
) *Service {
	return &Service{
		store:          store,
		registry:       registry,
		currency:       currencySvc,
		publisher:      publisher,
		logger:         log,
		minimumDeposit: minimumDeposit,
	}
}

// InitiateTransfer locks amount from the caller's balance into escrow and
// records a new outbound transfer with the current fee rate snapshotted.
func (s *Service) InitiateTransfer(
	ctx context.Context,
	caller entities.Caller,
	externalAddress []byte,
	amount decimal.Decimal,
	chainID entities.ChainID,
) (*entities.Transfer, error) {
	if caller.Account == uuid.Nil {
		return nil, domainerrors.ErrUnauthorized
	}
	if len(externalAddress) == 0 {
		return nil, fmt.Errorf("external address required: %w", domainerrors.ErrInvalidAmount)
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return nil, fmt.Errorf("amount %s: %w", amount, domainerrors.ErrInvalidAmount)
	}
	if amount.LessThan(s.minimumDeposit) {
		return nil, fmt.Errorf("amount %s below minimum deposit %s: %w",
			amount, s.minimumDeposit, domainerrors.ErrInvalidAmount)
	}

	active, err := s.registry.IsChainActive(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("chain %d: %w", chainID, domainerrors.ErrChainNotRegistered)
	}

	var transfer *entities.Transfer
	err = s.store.WithinTx(ctx, func(tx repositories.Tx) error {
		if err := s.ensureNotFrozen(ctx, tx); err != nil {
			return err
		}

		rate, err := tx.FeeRate(ctx)
		if err != nil {
			return err
		}

		id, err := tx.NextTransferID(ctx)
		if err != nil {
			return err
		}

		escrow, err := tx.SystemAccountForUpdate(ctx, entities.AccountTypeEscrow)
		if err != nil {
			return err
		}
		if err := s.currency.Transfer(ctx, tx, caller.Account, escrow.ID, amount); err != nil {
			return err
		}

		transfer = &entities.Transfer{
			ID:              id,
			ChainID:         chainID,
			Initiator:       caller.Account,
			ExternalAddress: externalAddress,
			Amount:          amount,
			FeeRate:         rate,
			Direction:       entities.TransferDirectionOutbound,
			Status:          entities.TransferStatusInitiated,
		}
		return tx.InsertTransfer(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	metrics.TransfersInitiated.Inc()
	s.logger.Info("Transfer initiated",
		"transfer_id", transfer.ID,
		"chain_id", chainID,
		"initiator", caller.Account,
		"amount", amount,
	)
	s.publisher.Publish(ctx, entities.BridgeEvent{
		Type:       entities.EventTransferInitiated,
		TransferID: &transfer.ID,
		ChainID:    &chainID,
		Account:    &caller.Account,
		Amount:     &amount,
	})

	return transfer, nil
}

// ConfirmTransfer records a relayer's attestation that the remote side of
// an initiated transfer went through. No balance moves; the funds were
// escrowed at initiation.
func (s *Service) ConfirmTransfer(ctx context.Context, caller entities.Caller, id entities.TransferID) (*entities.Transfer, error) {
	if err := s.requireRelayer(ctx, caller); err != nil {
		return nil, err
	}

	var transfer *entities.Transfer
	err := s.store.WithinTx(ctx, func(tx repositories.Tx) error {
		if err := s.ensureNotFrozen(ctx, tx); err != nil {
			return err
		}

		var err error
		transfer, err = tx.TransferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if transfer.Status != entities.TransferStatusInitiated {
			return fmt.Errorf("transfer %d is %s: %w",
				id, transfer.Status, domainerrors.ErrInvalidTransferState)
		}

		transfer.Status = entities.TransferStatusConfirmed
		relayer := caller.Account
		transfer.ConfirmedBy = &relayer
		return tx.UpdateTransfer(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	metrics.TransfersConfirmed.Inc()
	s.logger.Info("Transfer confirmed", "transfer_id", id, "relayer", caller.Account)
	s.publisher.Publish(ctx, entities.BridgeEvent{
		Type:       entities.EventTransferConfirmed,
		TransferID: &id,
		Account:    &caller.Account,
	})

	return transfer, nil
}

// ReleaseTokens disburses escrowed funds to a local recipient. When id names
// a local transfer, the transfer's snapshotted fee rate applies and the
// record moves to released. Otherwise id is treated as a remote-origin
// external reference: the current fee rate applies and the id is burned in
// the inbound replay table. Either way a repeat of the same id fails with
// AlreadyReleased and moves nothing.
func (s *Service) ReleaseTokens(
	ctx context.Context,
	caller entities.Caller,
	id entities.TransferID,
	externalRef []byte,
	recipient uuid.UUID,
	amount decimal.Decimal,
) (*ReleaseResult, error) {
	if err := s.requireRelayerOrAdmin(ctx, caller); err != nil {
		return nil, err
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return nil, fmt.Errorf("amount %s: %w", amount, domainerrors.ErrInvalidAmount)
	}

	var result *ReleaseResult
	direction := entities.TransferDirectionOutbound
	err := s.store.WithinTx(ctx, func(tx repositories.Tx) error {
		if err := s.ensureNotFrozen(ctx, tx); err != nil {
			return err
		}

		transfer, err := tx.TransferForUpdate(ctx, id)
		switch {
		case err == nil:
			result, err = s.releaseLocal(ctx, tx, transfer, recipient, amount)
			return err
		case errors.Is(err, domainerrors.ErrTransferNotFound):
			direction = entities.TransferDirectionInbound
			result, err = s.releaseInbound(ctx, tx, caller, id, externalRef, recipient, amount)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	metrics.TransfersReleased.WithLabelValues(string(direction)).Inc()
	metrics.FeesCollected.Add(result.Fee.InexactFloat64())
	s.logger.Info("Tokens released",
		"transfer_id", id,
		"direction", direction,
		"recipient", recipient,
		"actual", result.Actual,
		"fee", result.Fee,
	)
	s.publisher.Publish(ctx, entities.BridgeEvent{
		Type:       entities.EventTokensReleased,
		TransferID: &id,
		Account:    &recipient,
		Amount:     &result.Actual,
		Fee:        &result.Fee,
	})

	return result, nil
}

// releaseLocal finalizes a transfer the ledger already tracks
func (s *Service) releaseLocal(
	ctx context.Context,
	tx repositories.Tx,
	transfer *entities.Transfer,
	recipient uuid.UUID,
	amount decimal.Decimal,
) (*ReleaseResult, error) {
	if transfer.Status == entities.TransferStatusReleased {
		return nil, fmt.Errorf("transfer %d: %w", transfer.ID, domainerrors.ErrAlreadyReleased)
	}
	if !transfer.Status.CanTransitionTo(entities.TransferStatusReleased) {
		return nil, fmt.Errorf("transfer %d is %s: %w",
			transfer.ID, transfer.Status, domainerrors.ErrInvalidTransferState)
	}

	fee, actual, err := ComputeFee(amount, transfer.FeeRate)
	if err != nil {
		return nil, err
	}
	if err := s.disburse(ctx, tx, recipient, actual, fee); err != nil {
		return nil, err
	}

	transfer.Status = entities.TransferStatusReleased
	transfer.ReleasedTo = &recipient
	if err := tx.UpdateTransfer(ctx, transfer); err != nil {
		return nil, err
	}

	return &ReleaseResult{ID: transfer.ID, Recipient: recipient, Actual: actual, Fee: fee}, nil
}

// releaseInbound disburses funds for a transfer that originated on the
// remote chain. The external id insert is the replay guard.
func (s *Service) releaseInbound(
	ctx context.Context,
	tx repositories.Tx,
	caller entities.Caller,
	externalID entities.TransferID,
	externalRef []byte,
	recipient uuid.UUID,
	amount decimal.Decimal,
) (*ReleaseResult, error) {
	rate, err := tx.FeeRate(ctx)
	if err != nil {
		return nil, err
	}
	fee, actual, err := ComputeFee(amount, rate)
	if err != nil {
		return nil, err
	}

	if err := tx.InsertInboundRelease(ctx, &entities.InboundRelease{
		ExternalID:  externalID,
		ExternalRef: externalRef,
		Recipient:   recipient,
		Amount:      amount,
		Fee:         fee,
		ReleasedBy:  caller.Account,
	}); err != nil {
		return nil, err
	}

	if err := s.disburse(ctx, tx, recipient, actual, fee); err != nil {
		return nil, err
	}

	return &ReleaseResult{ID: externalID, Recipient: recipient, Actual: actual, Fee: fee}, nil
}

// disburse moves actual to the recipient and fee to the fee beneficiary,
// both out of escrow
func (s *Service) disburse(ctx context.Context, tx repositories.Tx, recipient uuid.UUID, actual, fee decimal.Decimal) error {
	escrow, err := tx.SystemAccountForUpdate(ctx, entities.AccountTypeEscrow)
	if err != nil {
		return err
	}
	beneficiary, err := tx.SystemAccountForUpdate(ctx, entities.AccountTypeFeeBeneficiary)
	if err != nil {
		return err
	}

	if err := s.currency.Transfer(ctx, tx, escrow.ID, recipient, actual); err != nil {
		return err
	}
	return s.currency.Transfer(ctx, tx, escrow.ID, beneficiary.ID, fee)
}

// ForceWithdraw drains the entire escrow balance to the recipient, bypassing
// the transfer ledger. Emergency use only; loudly observable.
func (s *Service) ForceWithdraw(ctx context.Context, caller entities.Caller, recipient uuid.UUID) (decimal.Decimal, error) {
	if !caller.IsAdmin() {
		return decimal.Zero, domainerrors.ErrUnauthorized
	}

	var drained decimal.Decimal
	err := s.store.WithinTx(ctx, func(tx repositories.Tx) error {
		escrow, err := tx.SystemAccountForUpdate(ctx, entities.AccountTypeEscrow)
		if err != nil {
			return err
		}
		drained = escrow.Balance
		return s.currency.Transfer(ctx, tx, escrow.ID, recipient, drained)
	})
	if err != nil {
		return decimal.Zero, err
	}

	metrics.ForceWithdrawals.Inc()
	metrics.EscrowBalance.Set(0)
	s.logger.Warn("Escrow force-withdrawn",
		"admin", caller.Account,
		"recipient", recipient,
		"amount", drained,
	)
	s.publisher.Publish(ctx, entities.BridgeEvent{
		Type:    entities.EventForceWithdrawal,
		Account: &recipient,
		Amount:  &drained,
	})

	return drained, nil
}

// SetServiceFee installs a new service fee rate. Transfers already initiated
// keep their snapshotted rate; only future initiations and inbound releases
// see the new one. An invalid rate leaves the stored rate untouched.
func (s *Service) SetServiceFee(ctx context.Context, caller entities.Caller, rate entities.FeeRate) error {
	if !caller.IsAdmin() {
		return domainerrors.ErrUnauthorized
	}
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, domainerrors.ErrInvalidRate)
	}

	err := s.store.WithinTx(ctx, func(tx repositories.Tx) error {
		return tx.SetFeeRate(ctx, rate)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Service fee updated",
		"numerator", rate.Numerator,
		"denominator", rate.Denominator,
		"admin", caller.Account,
	)
	s.publisher.Publish(ctx, entities.BridgeEvent{
		Type: entities.EventServiceFeeUpdated,
		Details: map[string]interface{}{
			"numerator":   rate.Numerator,
			"denominator": rate.Denominator,
		},
	})
	return nil
}

// Freeze halts initiate, confirm and release until unfrozen
func (s *Service) Freeze(ctx context.Context, caller entities.Caller) error {
	return s.setFrozen(ctx, caller, true)
}

// Unfreeze lifts a freeze
func (s *Service) Unfreeze(ctx context.Context, caller entities.Caller) error {
	return s.setFrozen(ctx, caller, false)
}

func (s *Service) setFrozen(ctx context.Context, caller entities.Caller, frozen bool) error {
	if !caller.IsAdmin() {
		return domainerrors.ErrUnauthorized
	}

	err := s.store.WithinTx(ctx, func(tx repositories.Tx) error {
		return tx.SetFrozen(ctx, frozen)
	})
	if err != nil {
		return err
	}

	eventType := entities.EventBridgeUnfrozen
	if frozen {
		eventType = entities.EventBridgeFrozen
	}
	s.logger.Warn("Bridge freeze state changed", "frozen", frozen, "admin", caller.Account)
	s.publisher.Publish(ctx, entities.BridgeEvent{Type: eventType})
	return nil
}

// GetTransfer retrieves a transfer by id
func (s *Service) GetTransfer(ctx context.Context, id entities.TransferID) (*entities.Transfer, error) {
	return s.store.GetTransfer(ctx, id)
}

// ListTransfers retrieves a page of transfers, newest first
func (s *Service) ListTransfers(ctx context.Context, limit, offset int) ([]*entities.Transfer, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListTransfers(ctx, limit, offset)
}

// ServiceFee reads the currently configured fee rate
func (s *Service) ServiceFee(ctx context.Context) (entities.FeeRate, error) {
	return s.store.FeeRate(ctx)
}

// Frozen reads the freeze flag
func (s *Service) Frozen(ctx context.Context) (bool, error) {
	return s.store.Frozen(ctx)
}

func (s *Service) ensureNotFrozen(ctx context.Context, tx repositories.Tx) error {
	frozen, err := tx.Frozen(ctx)
	if err != nil {
		return err
	}
	if frozen {
		return domainerrors.ErrBridgeFrozen
	}
	return nil
}

func (s *Service) requireRelayer(ctx context.Context, caller entities.Caller) error {
	active, err := s.registry.IsRelayerActive(ctx, caller.Account)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("account %s: %w", caller.Account, domainerrors.ErrRelayerNotRegistered)
	}
	return nil
}

func (s *Service) requireRelayerOrAdmin(ctx context.Context, caller entities.Caller) error {
	if caller.IsAdmin() {
		return nil
	}
	if err := s.requireRelayer(ctx, caller); err != nil {
		return domainerrors.ErrUnauthorized
	}
	return nil
}
