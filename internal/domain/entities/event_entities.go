package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies a bridge event
type EventType string

const (
	EventTransferInitiated  EventType = "transfer_initiated"
	EventTransferConfirmed  EventType = "transfer_confirmed"
	EventTokensReleased     EventType = "tokens_released"
	EventChainRegistered    EventType = "chain_registered"
	EventChainUnregistered  EventType = "chain_unregistered"
	EventRelayerRegistered  EventType = "relayer_registered"
	EventRelayerUnregistered EventType = "relayer_unregistered"
	EventServiceFeeUpdated  EventType = "service_fee_updated"
	EventBridgeFrozen       EventType = "bridge_frozen"
	EventBridgeUnfrozen     EventType = "bridge_unfrozen"
	EventForceWithdrawal    EventType = "force_withdrawal"
)

// BridgeEvent is the fire-and-forget notification emitted after a
// state-changing operation commits
type BridgeEvent struct {
	Type       EventType              `json:"type"`
	TransferID *TransferID            `json:"transfer_id,omitempty"`
	ChainID    *ChainID               `json:"chain_id,omitempty"`
	Account    *uuid.UUID             `json:"account,omitempty"`
	Amount     *decimal.Decimal       `json:"amount,omitempty"`
	Fee        *decimal.Decimal       `json:"fee,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}
