package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vtu-wallet-ledger/internal/api_gateway/service"
)

// TransactionHandler exposes transactions by reference and the ledgers behind them.
type TransactionHandler struct {
	transactions service.TransactionService
	ledgers      service.LedgerService
	logger       *slog.Logger
}

func NewTransactionHandler(logger *slog.Logger, transactions service.TransactionService, ledgers service.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		ledgers:      ledgers,
		logger:       logger,
	}
}

func (h *TransactionHandler) GetByTxRef(c *gin.Context) {
	txn, err := h.transactions.GetByTxRef(c.Request.Context(), c.Param("txRef"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapTransactionToResponse(txn))
}

// GetLedger returns a ledger with every entry posted under it.
func (h *TransactionHandler) GetLedger(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid ledger ID")
		return
	}

	l, entries, err := h.ledgers.GetLedger(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapLedgerToResponse(l, entries))
}
