package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vtu-wallet-ledger/internal/api_gateway/handler"
	"github.com/vtu-wallet-ledger/internal/api_gateway/middleware"
	"github.com/vtu-wallet-ledger/internal/api_gateway/service"
	"github.com/vtu-wallet-ledger/internal/config"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Users        service.UserService
	Wallets      service.WalletService
	Purchases    service.PurchaseService
	Plans        service.PlanService
	Transactions service.TransactionService
	Ledgers      service.LedgerService
	Audit        service.AuditService
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
	stopSweep  context.CancelFunc
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, svc Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.RegisterValidators()

	httpRouter := gin.New()
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.VisitorTTL)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go limiter.Run(sweepCtx)

	setupRouter(log, httpRouter, limiter, handlers{
		users:        handler.NewUserHandler(log, svc.Users, svc.Wallets, svc.Transactions),
		purchases:    handler.NewPurchaseHandler(log, svc.Purchases),
		plans:        handler.NewPlanHandler(log, svc.Plans),
		transactions: handler.NewTransactionHandler(log, svc.Transactions, svc.Ledgers),
		admin:        handler.NewAdminHandler(log, svc.Audit, svc.Transactions),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
		stopSweep:  stopSweep,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests. ctx bounds the wait.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	s.stopSweep()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
