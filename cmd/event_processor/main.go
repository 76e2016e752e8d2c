package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vtu-wallet-ledger/internal/accounting"
	"github.com/vtu-wallet-ledger/internal/audit"
	"github.com/vtu-wallet-ledger/internal/config"
	"github.com/vtu-wallet-ledger/internal/data/mongo"
	"github.com/vtu-wallet-ledger/internal/data/postgres"
	"github.com/vtu-wallet-ledger/internal/event_processor/consumer"
	"github.com/vtu-wallet-ledger/internal/event_processor/outbox_poller"
	"github.com/vtu-wallet-ledger/internal/logger"
	"github.com/vtu-wallet-ledger/internal/platform/messaging/consumers"
	"github.com/vtu-wallet-ledger/internal/platform/messaging/producers"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
	"github.com/vtu-wallet-ledger/internal/purchase"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("event_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Event Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())
	notificationRepo := mongo.NewNotificationRepository(log, mongoDB.Database())

	if err := historyRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure history indexes", "error", err)
		os.Exit(1)
	}
	if err := notificationRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure notification indexes", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// A nil *DLQProducer must not reach the handler as a non-nil interface.
	var dlq producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}

	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)
	eventHandler := consumer.NewPurchaseEventHandler(log, notificationRepo, dlq)

	poller := outbox_poller.NewPoller(
		log,
		&cfg.Outbox,
		outboxRepo,
		outbox_poller.NewHistoryPublisher(log, outboxRepo, historyRepo),
	)
	monitor := audit.NewMonitor(log, audit.NewService(log, walletRepo, ledgerRepo), cfg.Audit.Interval)
	recovery := purchase.NewRecovery(
		log,
		postgresDB,
		accounting.NewEngine(log, walletRepo, ledgerRepo),
		transactionRepo,
		outboxRepo,
		purchase.RecoveryConfig{
			Interval:   cfg.Recovery.Interval,
			StaleAfter: cfg.Recovery.StaleAfter,
			BatchSize:  cfg.Recovery.BatchSize,
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	opsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to purchase events", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Run(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		recovery.Run(appCtx)
	}()

	go func() {
		log.Info("Starting metrics server", "port", cfg.Server.Port)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case serviceErr = <-errChan:
		log.Error("Service error occurred", "error", serviceErr)
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All workers stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	var shutdownErr error
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("stop metrics server: %w", err))
	}
	if err := kafkaConsumer.Close(); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("close kafka consumer: %w", err))
	}
	if err := dlqProducer.Close(); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("close DLQ producer: %w", err))
	}
	postgresDB.Close()
	if err := mongoDB.Close(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("close mongo: %w", err))
	}

	if serviceErr != nil || shutdownErr != nil {
		log.Error("Event Processor shutdown completed with errors", "service_error", serviceErr, "shutdown_error", shutdownErr)
		os.Exit(1)
	}
	log.Info("Event Processor shutdown completed successfully")
}
