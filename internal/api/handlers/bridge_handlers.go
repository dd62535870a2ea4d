package handlers

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bridge-service/bridge_service/internal/api/middleware"
	"github.com/bridge-service/bridge_service/internal/domain/entities"
	"github.com/bridge-service/bridge_service/internal/domain/services/bridge"
	"github.com/bridge-service/bridge_service/pkg/logger"
)

// BridgeHandlers serves the transfer endpoints
type BridgeHandlers struct {
	bridgeService *bridge.Service
	logger        *logger.Logger
}

// NewBridgeHandlers creates a new bridge handlers instance
func NewBridgeHandlers(bridgeService *bridge.Service, logger *logger.Logger) *BridgeHandlers {
	return &BridgeHandlers{
		bridgeService: bridgeService,
		logger:        logger,
	}
}

// InitiateTransfer handles POST /bridge/transfers
func (h *BridgeHandlers) InitiateTransfer(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, entities.ErrorResponse{Code: "UNAUTHORIZED", Message: "caller not resolved"})
		return
	}

	var req entities.InitiateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	externalAddress, err := hex.DecodeString(req.ExternalAddress)
	if err != nil {
		respondBadRequest(c, fmt.Errorf("external_address must be hex: %w", err))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondBadRequest(c, fmt.Errorf("amount must be a decimal string: %w", err))
		return
	}

	transfer, err := h.bridgeService.InitiateTransfer(c.Request.Context(), caller, externalAddress, amount, req.ChainID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, transferToResponse(transfer))
}

// ConfirmTransfer handles POST /bridge/transfers/:id/confirm
func (h *BridgeHandlers) ConfirmTransfer(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, entities.ErrorResponse{Code: "UNAUTHORIZED", Message: "caller not resolved"})
		return
	}

	id, err := parseTransferID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	transfer, err := h.bridgeService.ConfirmTransfer(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, transferToResponse(transfer))
}

// ReleaseTokens handles POST /bridge/transfers/:id/release
func (h *BridgeHandlers) ReleaseTokens(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, entities.ErrorResponse{Code: "UNAUTHORIZED", Message: "caller not resolved"})
		return
	}

	id, err := parseTransferID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req entities.ReleaseTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	externalRef, err := hex.DecodeString(req.ExternalRef)
	if err != nil {
		respondBadRequest(c, fmt.Errorf("external_ref must be hex: %w", err))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondBadRequest(c, fmt.Errorf("amount must be a decimal string: %w", err))
		return
	}

	result, err := h.bridgeService.ReleaseTokens(c.Request.Context(), caller, id, externalRef, req.Recipient, amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entities.ReleaseResponse{
		ID:        result.ID,
		Recipient: result.Recipient,
		Actual:    result.Actual.String(),
		Fee:       result.Fee.String(),
	})
}

// GetTransfer handles GET /bridge/transfers/:id
func (h *BridgeHandlers) GetTransfer(c *gin.Context) {
	id, err := parseTransferID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	transfer, err := h.bridgeService.GetTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, transferToResponse(transfer))
}

// ListTransfers handles GET /bridge/transfers
func (h *BridgeHandlers) ListTransfers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	transfers, err := h.bridgeService.ListTransfers(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	page := entities.TransfersPage{Items: make([]entities.TransferResponse, 0, len(transfers))}
	for _, transfer := range transfers {
		page.Items = append(page.Items, transferToResponse(transfer))
	}
	if len(transfers) == limit {
		next := strconv.Itoa(offset + limit)
		page.NextCursor = &next
	}

	c.JSON(http.StatusOK, page)
}

func parseTransferID(raw string) (entities.TransferID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid transfer id %q", raw)
	}
	return id, nil
}

func transferToResponse(transfer *entities.Transfer) entities.TransferResponse {
	return entities.TransferResponse{
		ID:              transfer.ID,
		ChainID:         transfer.ChainID,
		Initiator:       transfer.Initiator,
		ExternalAddress: hex.EncodeToString(transfer.ExternalAddress),
		Amount:          transfer.Amount.String(),
		FeeRate:         transfer.FeeRate,
		Direction:       string(transfer.Direction),
		Status:          string(transfer.Status),
		ConfirmedBy:     transfer.ConfirmedBy,
		ReleasedTo:      transfer.ReleasedTo,
		CreatedAt:       transfer.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       transfer.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
