package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vtu-wallet-ledger/internal/api_gateway/middleware"
	"github.com/vtu-wallet-ledger/internal/api_gateway/service"
	"github.com/vtu-wallet-ledger/internal/purchase"
)

type PurchaseHandler struct {
	purchases service.PurchaseService
	logger    *slog.Logger
}

func NewPurchaseHandler(logger *slog.Logger, purchases service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		purchases: purchases,
		logger:    logger,
	}
}

// Buy charges the user and calls the provider. A provider failure that was refunded is
// reported as 502 with the refunded balance; replays of a settled tx_ref return the
// original outcome.
func (h *PurchaseHandler) Buy(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		RespondBadRequest(c, "Invalid plan ID")
		return
	}

	res, err := h.purchases.Buy(c.Request.Context(), purchase.Request{
		UserID:        userID,
		PlanID:        planID,
		Recipient:     req.Recipient,
		TxRef:         req.TxRef,
		PortedNumber:  req.PortedNumber,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	body := MovementResponse{
		Success:     res.Success,
		Stage:       string(res.Stage),
		Message:     res.Message,
		Balance:     formatAmount(res.Balance),
		Replayed:    res.Replayed,
		Transaction: mapTransactionToResponse(res.Transaction),
	}
	if !res.Success {
		RespondBadGateway(c, body)
		return
	}
	if res.Replayed {
		RespondOK(c, body)
		return
	}
	RespondWithData(c, http.StatusCreated, body)
}
