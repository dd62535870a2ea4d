package entities

import (
	"github.com/google/uuid"
)

// ErrorResponse is the JSON error envelope returned by the API
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// InitiateTransferRequest is the payload for POST /bridge/transfers
type InitiateTransferRequest struct {
	ExternalAddress string `json:"external_address" binding:"required,hexadecimal"`
	Amount          string `json:"amount" binding:"required,amountstring"`
	ChainID         uint32 `json:"chain_id" binding:"required"`
}

// ReleaseTokensRequest is the payload for POST /bridge/transfers/:id/release
type ReleaseTokensRequest struct {
	ExternalRef string    `json:"external_ref" binding:"required,hexadecimal"`
	Recipient   uuid.UUID `json:"recipient" binding:"required"`
	Amount      string    `json:"amount" binding:"required,amountstring"`
}

// RegisterRelayerRequest is the payload for POST /admin/relayers
type RegisterRelayerRequest struct {
	Account uuid.UUID `json:"account" binding:"required"`
}

// RegisterChainRequest is the payload for POST /admin/chains
type RegisterChainRequest struct {
	ChainID uint32 `json:"chain_id" binding:"required"`
}

// SetServiceFeeRequest is the payload for PUT /admin/fee
type SetServiceFeeRequest struct {
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator" binding:"required"`
}

// ForceWithdrawRequest is the payload for POST /admin/withdraw
type ForceWithdrawRequest struct {
	Recipient uuid.UUID `json:"recipient" binding:"required"`
}

// TransferResponse is the JSON view of a transfer
type TransferResponse struct {
	ID              uint64     `json:"id"`
	ChainID         uint32     `json:"chain_id"`
	Initiator       uuid.UUID  `json:"initiator"`
	ExternalAddress string     `json:"external_address"`
	Amount          string     `json:"amount"`
	FeeRate         FeeRate    `json:"fee_rate"`
	Direction       string     `json:"direction"`
	Status          string     `json:"status"`
	ConfirmedBy     *uuid.UUID `json:"confirmed_by,omitempty"`
	ReleasedTo      *uuid.UUID `json:"released_to,omitempty"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
}

// ReleaseResponse reports the disbursement split for a release
type ReleaseResponse struct {
	ID        uint64    `json:"id"`
	Recipient uuid.UUID `json:"recipient"`
	Actual    string    `json:"actual"`
	Fee       string    `json:"fee"`
}

// TransfersPage is a paginated list of transfers
type TransfersPage struct {
	Items      []TransferResponse `json:"items"`
	NextCursor *string            `json:"next_cursor"`
}
