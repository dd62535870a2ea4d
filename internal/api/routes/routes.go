package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/bridge-service/bridge_service/internal/api/handlers"
	"github.com/bridge-service/bridge_service/internal/api/middleware"
	"github.com/bridge-service/bridge_service/internal/domain/services/bridge"
	"github.com/bridge-service/bridge_service/internal/domain/services/registry"
	"github.com/bridge-service/bridge_service/internal/infrastructure/config"
	"github.com/bridge-service/bridge_service/pkg/logger"
)

// Dependencies bundles everything route setup needs
type Dependencies struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              *sqlx.DB
	BridgeService   *bridge.Service
	RegistryService *registry.Service
}

// SetupRoutes configures all application routes
func SetupRoutes(deps Dependencies) *gin.Engine {
	if deps.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware, order matters
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS(deps.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(deps.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	coreHandlers := handlers.NewCoreHandlers(deps.DB, deps.Logger)
	bridgeHandlers := handlers.NewBridgeHandlers(deps.BridgeService, deps.Logger)
	adminHandlers := handlers.NewAdminHandlers(deps.BridgeService, deps.RegistryService, deps.Logger)

	// Health checks and metrics (no auth required)
	router.GET("/health", coreHandlers.Health)
	router.GET("/ready", coreHandlers.Ready)
	router.GET("/live", coreHandlers.Live)
	router.GET("/metrics", coreHandlers.Metrics)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Authentication(deps.Config))
	{
		bridgeGroup := v1.Group("/bridge")
		{
			bridgeGroup.POST("/transfers", bridgeHandlers.InitiateTransfer)
			bridgeGroup.GET("/transfers", bridgeHandlers.ListTransfers)
			bridgeGroup.GET("/transfers/:id", bridgeHandlers.GetTransfer)
			bridgeGroup.POST("/transfers/:id/confirm", bridgeHandlers.ConfirmTransfer)
			bridgeGroup.POST("/transfers/:id/release", bridgeHandlers.ReleaseTokens)
		}

		adminGroup := v1.Group("/admin")
		adminGroup.Use(middleware.AdminAuth())
		{
			adminGroup.POST("/relayers", adminHandlers.RegisterRelayer)
			adminGroup.GET("/relayers", adminHandlers.ListRelayers)
			adminGroup.DELETE("/relayers/:account", adminHandlers.UnregisterRelayer)
			adminGroup.POST("/chains", adminHandlers.RegisterChain)
			adminGroup.GET("/chains", adminHandlers.ListChains)
			adminGroup.DELETE("/chains/:id", adminHandlers.UnregisterChain)
			adminGroup.PUT("/fee", adminHandlers.SetServiceFee)
			adminGroup.GET("/fee", adminHandlers.GetServiceFee)
			adminGroup.POST("/withdraw", adminHandlers.ForceWithdraw)
			adminGroup.POST("/freeze", adminHandlers.Freeze)
			adminGroup.POST("/unfreeze", adminHandlers.Unfreeze)
		}
	}

	return router
}
