package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vtu-wallet-ledger/internal/accounting"
	"github.com/vtu-wallet-ledger/internal/api_gateway"
	"github.com/vtu-wallet-ledger/internal/api_gateway/service"
	"github.com/vtu-wallet-ledger/internal/audit"
	"github.com/vtu-wallet-ledger/internal/catalog"
	"github.com/vtu-wallet-ledger/internal/config"
	"github.com/vtu-wallet-ledger/internal/data/cache"
	"github.com/vtu-wallet-ledger/internal/data/mongo"
	"github.com/vtu-wallet-ledger/internal/data/postgres"
	"github.com/vtu-wallet-ledger/internal/logger"
	"github.com/vtu-wallet-ledger/internal/platform/messaging/producers"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
	"github.com/vtu-wallet-ledger/internal/provider"
	"github.com/vtu-wallet-ledger/internal/purchase"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	eventProducer, err := producers.NewPurchaseEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize purchase event producer", "error", err)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(log, postgresDB)
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	planRepo := postgres.NewPlanRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	if err := historyRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure history indexes", "error", err)
		os.Exit(1)
	}

	// Platform wallets must exist before the first posting.
	if err := accounting.NewPlatformRegistry(log, walletRepo).Initialize(appCtx); err != nil {
		log.Error("Failed to initialize platform wallets", "error", err)
		os.Exit(1)
	}

	notifier, err := purchase.NewKafkaNotifier(log, eventProducer, cfg.WorkerPool.Size)
	if err != nil {
		log.Error("Failed to initialize notification pool", "error", err)
		os.Exit(1)
	}

	engine := accounting.NewEngine(log, walletRepo, ledgerRepo)
	plans := catalog.NewService(log, planRepo, cache.NewPlanCache(log, redisClient, cfg.Redis.PlanCacheTTL))
	providers := provider.NewRouterFromConfig(log, &cfg.Provider)
	log.Info("Fulfillment providers configured", "providers", providers.Names(), "default", providers.Default())

	orchestrator := purchase.NewOrchestrator(
		log, postgresDB, engine,
		userRepo, walletRepo, plans,
		transactionRepo, outboxRepo,
		providers, notifier,
		purchase.Config{
			ProviderTimeout: cfg.Provider.Timeout,
			Currency:        cfg.Ledger.Currency,
		},
	)

	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Users:        service.NewUserService(log, postgresDB, userRepo, walletRepo),
		Wallets:      service.NewWalletService(log, postgresDB, engine, walletRepo, transactionRepo, outboxRepo, cfg.Ledger.Currency),
		Purchases:    orchestrator,
		Plans:        plans,
		Transactions: service.NewTransactionService(log, transactionRepo, historyRepo),
		Ledgers:      service.NewLedgerService(ledgerRepo),
		Audit:        audit.NewService(log, walletRepo, ledgerRepo),
	})

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case serverErr = <-errChan:
		log.Error("Server error occurred", "error", serverErr)
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop taking requests first so no purchase is cut off between charge and refund.
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}
	notifier.Shutdown(cfg.Server.ShutdownTimeout)
	if err := eventProducer.Close(); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("close kafka producer: %w", err))
	}
	if err := redisClient.Close(); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("close redis: %w", err))
	}
	postgresDB.Close()
	if err := mongoDB.Close(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("close mongo: %w", err))
	}

	if serverErr != nil || shutdownErr != nil {
		log.Error("Shutdown completed with errors", "server_error", serverErr, "shutdown_error", shutdownErr)
		os.Exit(1)
	}
	log.Info("Shutdown completed successfully")
}
