package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vtu-wallet-ledger/internal/api_gateway/service"
	"github.com/vtu-wallet-ledger/internal/domain/user"
)

// UserHandler serves users and their wallets.
type UserHandler struct {
	users        service.UserService
	wallets      service.WalletService
	transactions service.TransactionService
	logger       *slog.Logger
}

func NewUserHandler(logger *slog.Logger, users service.UserService, wallets service.WalletService, transactions service.TransactionService) *UserHandler {
	return &UserHandler{
		users:        users,
		wallets:      wallets,
		transactions: transactions,
		logger:       logger,
	}
}

// Create registers a user together with an empty wallet.
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, w, err := h.users.CreateUser(c.Request.Context(), req.FullName, req.Email, user.Role(req.Role))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapUserToResponse(u, w))
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	u, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapUserToResponse(u, nil))
}

func (h *UserHandler) Wallet(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	w, err := h.wallets.GetBalance(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapWalletToResponse(w))
}

func (h *UserHandler) Credit(c *gin.Context) {
	h.fund(c, h.wallets.Credit)
}

func (h *UserHandler) Debit(c *gin.Context) {
	h.fund(c, h.wallets.Debit)
}

type fundFunc = func(ctx context.Context, req service.FundingRequest) (*service.FundingResult, error)

// fund answers 201 for a new movement and 200 for a replayed tx_ref.
func (h *UserHandler) fund(c *gin.Context, move fundFunc) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req FundingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := move(c.Request.Context(), service.FundingRequest{
		UserID:      id,
		Amount:      req.Amount,
		TxRef:       req.TxRef,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	RespondWithData(c, status, MovementResponse{
		Success:     true,
		Balance:     formatAmount(res.Balance),
		Replayed:    res.Replayed,
		Transaction: mapTransactionToResponse(res.Transaction),
	})
}

// History pages through the user's transactions, newest first.
func (h *UserHandler) History(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	records, total, err := h.transactions.History(c.Request.Context(), id, params.Page, params.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondWithPage(c, records, params.Page, params.PerPage, total)
}

func userIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return uuid.Nil, false
	}
	return id, true
}
