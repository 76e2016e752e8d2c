package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vtu-wallet-ledger/internal/api_gateway/middleware"
	"github.com/vtu-wallet-ledger/internal/domain/product"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
	"github.com/vtu-wallet-ledger/internal/purchase"
)

func newPurchaseRouter(purchases *MockPurchaseService) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.POST("/users/:id/purchases", NewPurchaseHandler(newTestLogger(), purchases).Buy)
	return router
}

func TestPurchaseHandler_Buy(t *testing.T) {
	userID := uuid.New()
	planID := uuid.New()
	path := "/users/" + userID.String() + "/purchases"
	body := PurchaseRequest{PlanID: planID.String(), Recipient: "08031234567", TxRef: "buy-1"}

	matchReq := mock.MatchedBy(func(req purchase.Request) bool {
		return req.UserID == userID && req.PlanID == planID && req.Recipient == "08031234567" &&
			req.TxRef == "buy-1" && req.CorrelationID != ""
	})

	t.Run("Success", func(t *testing.T) {
		svc := new(MockPurchaseService)
		txn := sampleTransaction(transaction.ChannelDataPurchase, transaction.StatusSuccess)
		txn.ProviderReference = "DS-778"
		svc.On("Buy", mock.Anything, matchReq).Return(&purchase.Result{
			Success:     true,
			Stage:       purchase.StageSuccess,
			Message:     purchase.MessageSucceeded,
			Transaction: txn,
			Balance:     decimal.RequireFromString("700"),
		}, nil).Once()

		rr := serve(t, newPurchaseRouter(svc), http.MethodPost, path, body)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		got := decode[MovementResponse](t, rr).Data
		assert.True(t, got.Success)
		assert.Equal(t, purchase.MessageSucceeded, got.Message)
		assert.Equal(t, "700.00", got.Balance)
		assert.Equal(t, "DS-778", got.Transaction.ProviderReference)
		svc.AssertExpectations(t)
	})

	t.Run("RefundedIsBadGateway", func(t *testing.T) {
		svc := new(MockPurchaseService)
		txn := sampleTransaction(transaction.ChannelDataPurchase, transaction.StatusFailed)
		txn.ErrorMessage = "provider declined"
		svc.On("Buy", mock.Anything, matchReq).Return(&purchase.Result{
			Success:     false,
			Stage:       purchase.StageRefunded,
			Message:     purchase.MessageRefunded,
			Transaction: txn,
			Balance:     decimal.RequireFromString("1000"),
		}, nil).Once()

		rr := serve(t, newPurchaseRouter(svc), http.MethodPost, path, body)

		require.Equal(t, http.StatusBadGateway, rr.Code)
		got := decode[MovementResponse](t, rr).Data
		assert.False(t, got.Success)
		assert.Equal(t, purchase.MessageRefunded, got.Message)
		assert.Equal(t, "1000.00", got.Balance)
		assert.Equal(t, "FAILED", got.Transaction.Status)
	})

	t.Run("ReplayIsOK", func(t *testing.T) {
		svc := new(MockPurchaseService)
		svc.On("Buy", mock.Anything, matchReq).Return(&purchase.Result{
			Success:     true,
			Message:     purchase.MessageSucceeded,
			Transaction: sampleTransaction(transaction.ChannelDataPurchase, transaction.StatusSuccess),
			Balance:     decimal.RequireFromString("700"),
			Replayed:    true,
		}, nil).Once()

		rr := serve(t, newPurchaseRouter(svc), http.MethodPost, path, body)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, decode[MovementResponse](t, rr).Data.Replayed)
	})

	errorCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"InProgress", purchase.ErrPurchaseInProgress, http.StatusConflict, "CONFLICT"},
		{"PlanMissing", product.ErrPlanNotFound{PlanID: planID}, http.StatusNotFound, "NOT_FOUND"},
		{"Insufficient", wallet.ErrInsufficientFunds{Balance: decimal.Zero, Required: decimal.RequireFromString("300")}, http.StatusBadRequest, "INSUFFICIENT_FUNDS"},
		{"RefundFailed", purchase.ErrRefundFailed, http.StatusInternalServerError, "REFUND_PENDING"},
		{"Unexpected", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockPurchaseService)
			svc.On("Buy", mock.Anything, matchReq).Return(nil, tc.err).Once()

			rr := serve(t, newPurchaseRouter(svc), http.MethodPost, path, body)

			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.code, decode[any](t, rr).Error.Code)
		})
	}

	t.Run("RejectsNonNigerianRecipient", func(t *testing.T) {
		svc := new(MockPurchaseService)
		bad := body
		bad.Recipient = "5551234"

		rr := serve(t, newPurchaseRouter(svc), http.MethodPost, path, bad)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"tag":"ngphone"`)
		svc.AssertNotCalled(t, "Buy", mock.Anything, mock.Anything)
	})

	t.Run("RejectsBadPlanID", func(t *testing.T) {
		svc := new(MockPurchaseService)
		bad := body
		bad.PlanID = "plan-1"

		rr := serve(t, newPurchaseRouter(svc), http.MethodPost, path, bad)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "Buy", mock.Anything, mock.Anything)
	})
}
