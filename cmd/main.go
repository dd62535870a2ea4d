package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bridge-service/bridge_service/internal/api/routes"
	"github.com/bridge-service/bridge_service/internal/domain/services/bridge"
	"github.com/bridge-service/bridge_service/internal/domain/services/currency"
	"github.com/bridge-service/bridge_service/internal/domain/services/registry"
	"github.com/bridge-service/bridge_service/internal/infrastructure/cache"
	"github.com/bridge-service/bridge_service/internal/infrastructure/config"
	"github.com/bridge-service/bridge_service/internal/infrastructure/database"
	"github.com/bridge-service/bridge_service/internal/infrastructure/events"
	"github.com/bridge-service/bridge_service/internal/infrastructure/repositories"
	"github.com/bridge-service/bridge_service/internal/workers/reconciliation"
	"github.com/bridge-service/bridge_service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database connection", "error", err)
		}
	}()

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}
	if err := database.RunSchemaUpgrades(context.Background(), db, log); err != nil {
		log.Fatal("Failed to run schema upgrades", "error", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		log.Fatal("Failed to connect to redis", "error", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warn("Failed to close redis client", "error", err)
		}
	}()

	minimumDeposit, err := decimal.NewFromString(cfg.Bridge.MinimumDeposit)
	if err != nil {
		log.Fatal("Invalid minimum deposit setting", "value", cfg.Bridge.MinimumDeposit, "error", err)
	}

	publisher := events.NewRedisPublisher(redisClient, cfg.Bridge.EventChannel, log)
	bridgeStore := repositories.NewBridgeStore(db)
	registryRepo := repositories.NewRegistryRepository(db)

	registryService := registry.NewService(
		registryRepo,
		redisClient,
		publisher,
		log,
		time.Duration(cfg.Bridge.RegistryCacheTTL)*time.Second,
	)
	bridgeService := bridge.NewService(
		bridgeStore,
		registryService,
		currency.NewService(),
		publisher,
		log,
		minimumDeposit,
	)

	router := routes.SetupRoutes(routes.Dependencies{
		Config:          cfg,
		Logger:          log,
		DB:              db,
		BridgeService:   bridgeService,
		RegistryService: registryService,
	})

	var reconciliationWorker *reconciliation.Worker
	if cfg.Workers.ReconciliationEnabled {
		reconciliationWorker = reconciliation.NewWorker(bridgeStore, log, cfg.Workers.ReconciliationCron)
		if err := reconciliationWorker.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconciliation worker", "error", err)
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("Starting server", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	if reconciliationWorker != nil {
		reconciliationWorker.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited gracefully")
}
