package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bridge-service/bridge_service/internal/api/middleware"
	"github.com/bridge-service/bridge_service/internal/domain/entities"
	"github.com/bridge-service/bridge_service/internal/domain/services/bridge"
	"github.com/bridge-service/bridge_service/internal/domain/services/registry"
	"github.com/bridge-service/bridge_service/pkg/logger"
)

// AdminHandlers serves the administrative bridge endpoints
type AdminHandlers struct {
	bridgeService   *bridge.Service
	registryService *registry.Service
	logger          *logger.Logger
}

// NewAdminHandlers creates a new admin handlers instance
func NewAdminHandlers(bridgeService *bridge.Service, registryService *registry.Service, logger *logger.Logger) *AdminHandlers {
	return &AdminHandlers{
		bridgeService:   bridgeService,
		registryService: registryService,
		logger:          logger,
	}
}

// RegisterRelayer handles POST /admin/relayers
func (h *AdminHandlers) RegisterRelayer(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	var req entities.RegisterRelayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.registryService.RegisterRelayer(c.Request.Context(), caller, req.Account); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": req.Account, "active": true})
}

// UnregisterRelayer handles DELETE /admin/relayers/:account
func (h *AdminHandlers) UnregisterRelayer(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	account, err := uuid.Parse(c.Param("account"))
	if err != nil {
		respondBadRequest(c, fmt.Errorf("invalid relayer account %q", c.Param("account")))
		return
	}

	if err := h.registryService.UnregisterRelayer(c.Request.Context(), caller, account); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "active": false})
}

// ListRelayers handles GET /admin/relayers
func (h *AdminHandlers) ListRelayers(c *gin.Context) {
	relayers, err := h.registryService.ListRelayers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relayers": relayers})
}

// RegisterChain handles POST /admin/chains
func (h *AdminHandlers) RegisterChain(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	var req entities.RegisterChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.registryService.RegisterChain(c.Request.Context(), caller, req.ChainID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chain_id": req.ChainID, "active": true})
}

// UnregisterChain handles DELETE /admin/chains/:id
func (h *AdminHandlers) UnregisterChain(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondBadRequest(c, fmt.Errorf("invalid chain id %q", c.Param("id")))
		return
	}

	if err := h.registryService.UnregisterChain(c.Request.Context(), caller, entities.ChainID(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chain_id": id, "active": false})
}

// ListChains handles GET /admin/chains
func (h *AdminHandlers) ListChains(c *gin.Context) {
	chains, err := h.registryService.ListChains(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// SetServiceFee handles PUT /admin/fee
func (h *AdminHandlers) SetServiceFee(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	var req entities.SetServiceFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	rate := entities.FeeRate{Numerator: req.Numerator, Denominator: req.Denominator}
	if err := h.bridgeService.SetServiceFee(c.Request.Context(), caller, rate); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_rate": rate})
}

// GetServiceFee handles GET /admin/fee
func (h *AdminHandlers) GetServiceFee(c *gin.Context) {
	rate, err := h.bridgeService.ServiceFee(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_rate": rate})
}

// ForceWithdraw handles POST /admin/withdraw
func (h *AdminHandlers) ForceWithdraw(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	var req entities.ForceWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	drained, err := h.bridgeService.ForceWithdraw(c.Request.Context(), caller, req.Recipient)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipient": req.Recipient, "amount": drained.String()})
}

// Freeze handles POST /admin/freeze
func (h *AdminHandlers) Freeze(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	if err := h.bridgeService.Freeze(c.Request.Context(), caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frozen": true})
}

// Unfreeze handles POST /admin/unfreeze
func (h *AdminHandlers) Unfreeze(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	if err := h.bridgeService.Unfreeze(c.Request.Context(), caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frozen": false})
}
