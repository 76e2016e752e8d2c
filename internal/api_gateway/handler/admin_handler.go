package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vtu-wallet-ledger/internal/api_gateway/service"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
)

const maxTake = 100

// AdminHandler serves the reconciliation and reporting endpoints.
type AdminHandler struct {
	audit        service.AuditService
	transactions service.TransactionService
	logger       *slog.Logger
}

func NewAdminHandler(logger *slog.Logger, audit service.AuditService, transactions service.TransactionService) *AdminHandler {
	return &AdminHandler{
		audit:        audit,
		transactions: transactions,
		logger:       logger,
	}
}

// Audit compares user balances with the liability wallet. A mismatch is still a 200;
// the body says whether the books agree.
func (h *AdminHandler) Audit(c *gin.Context) {
	report, err := h.audit.AuditBalances(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !report.Matches {
		h.logger.Error("Balance audit mismatch",
			"user_total", report.UserTotal.String(),
			"liability_total", report.LiabilityTotal.String(),
			"difference", report.Difference.String(),
		)
	}
	RespondOK(c, mapAuditToResponse(report))
}

func (h *AdminHandler) Flows(c *gin.Context) {
	var params FlowParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	report, err := h.audit.InflowOutflow(c.Request.Context(), params.Timeframe, params.From, params.To)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapFlowsToResponse(report))
}

// ListTransactions filters every transaction by user, status and creation window.
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	var params TransactionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	if params.Take > maxTake {
		params.Take = maxTake
	}

	filter := transaction.Filter{
		Status: transaction.Status(params.Status),
		From:   params.From,
		To:     params.To,
		Skip:   params.Skip,
		Take:   params.Take,
	}
	if params.UserID != "" {
		id := uuid.MustParse(params.UserID)
		filter.UserID = &id
	}

	txns, total, err := h.transactions.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, TransactionPage{
		Transactions: mapTransactionsToResponse(txns),
		Skip:         params.Skip,
		Take:         params.Take,
		Total:        total,
	})
}
