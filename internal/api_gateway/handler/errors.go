package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vtu-wallet-ledger/internal/audit"
	"github.com/vtu-wallet-ledger/internal/catalog"
	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/money"
	"github.com/vtu-wallet-ledger/internal/domain/product"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/domain/user"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
	"github.com/vtu-wallet-ledger/internal/provider"
	"github.com/vtu-wallet-ledger/internal/purchase"
)

// InsufficientFundsDetails is returned with a rejected debit or purchase.
type InsufficientFundsDetails struct {
	Balance  string `json:"balance"`
	Required string `json:"required"`
}

var badRequestErrors = []error{
	money.ErrInvalidAmount,
	money.ErrNegativeAmount,
	money.ErrTooPrecise,
	user.ErrEmptyName,
	user.ErrInvalidEmail,
	user.ErrInvalidRole,
	transaction.ErrMissingTxRef,
	purchase.ErrMissingRecipient,
	catalog.ErrInvalidPlan,
	audit.ErrInvalidTimeframe,
	audit.ErrInvalidRange,
}

var notFoundErrors = []error{
	user.ErrUserNotFound{},
	wallet.ErrWalletNotFound{},
	product.ErrPlanNotFound{},
	transaction.ErrTransactionNotFound{},
	ledger.ErrLedgerNotFound{},
	history.ErrRecordNotFound{},
}

var conflictErrors = []error{
	transaction.ErrTxRefConflict,
	transaction.ErrDuplicateTxRef{},
	purchase.ErrPurchaseInProgress,
}

// respondError maps a service error onto the HTTP taxonomy. Unknown errors are logged
// and hidden behind a generic 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var insufficient wallet.ErrInsufficientFunds
	if errors.As(err, &insufficient) {
		RespondWithErrorDetails(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", "Insufficient funds", InsufficientFundsDetails{
			Balance:  formatAmount(insufficient.Balance),
			Required: formatAmount(insufficient.Required),
		})
		return
	}
	var duplicateEmail user.ErrDuplicateEmail
	if errors.As(err, &duplicateEmail) {
		RespondConflict(c, "A user with this email already exists")
		return
	}

	switch {
	case isAny(err, badRequestErrors):
		RespondBadRequest(c, err.Error())
	case isAny(err, notFoundErrors):
		RespondNotFound(c, err.Error())
	case isAny(err, conflictErrors):
		RespondConflict(c, err.Error())
	case errors.Is(err, provider.ErrUnknownProvider):
		RespondWithError(c, http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "No provider is configured for this plan")
	case errors.Is(err, purchase.ErrRefundFailed):
		logger.Error("Purchase refund pending", "error", err)
		RespondWithError(c, http.StatusInternalServerError, "REFUND_PENDING", "Data purchase failed and the refund will be retried automatically")
	default:
		logger.Error("Request failed", "error", err)
		RespondInternalError(c)
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondBindError reports a request that failed binding or validation.
func respondBindError(c *gin.Context, err error) {
	if details := fieldErrors(err); details != nil {
		RespondWithErrorDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", details)
		return
	}
	RespondBadRequest(c, "Invalid request body: "+err.Error())
}
