package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vtu-wallet-ledger/internal/api_gateway/handler"
	"github.com/vtu-wallet-ledger/internal/api_gateway/middleware"
)

type handlers struct {
	users        *handler.UserHandler
	purchases    *handler.PurchaseHandler
	plans        *handler.PlanHandler
	transactions *handler.TransactionHandler
	admin        *handler.AdminHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, limiter *middleware.RateLimiter, h handlers) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	v1 := r.Group("/api/v1")
	v1.Use(limiter.Limit())
	{
		users := v1.Group("/users")
		{
			users.POST("", h.users.Create)
			users.GET("/:id", h.users.Get)
			users.GET("/:id/wallet", h.users.Wallet)
			users.POST("/:id/wallet/credit", h.users.Credit)
			users.POST("/:id/wallet/debit", h.users.Debit)
			users.POST("/:id/purchases", h.purchases.Buy)
			users.GET("/:id/transactions", h.users.History)
		}

		plans := v1.Group("/plans")
		{
			plans.GET("", h.plans.List)
			plans.PUT("", h.plans.Upsert)
			plans.GET("/:id", h.plans.Get)
			plans.PATCH("/:id/price", h.plans.UpdatePrice)
		}

		v1.GET("/transactions/:txRef", h.transactions.GetByTxRef)
		v1.GET("/ledgers/:id", h.transactions.GetLedger)

		admin := v1.Group("/admin")
		{
			admin.GET("/audit", h.admin.Audit)
			admin.GET("/flows", h.admin.Flows)
			admin.GET("/transactions", h.admin.ListTransactions)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
