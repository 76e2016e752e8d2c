package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vtu-wallet-ledger/internal/api_gateway/service"
	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/domain/user"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
)

type userFixture struct {
	users        *MockUserService
	wallets      *MockWalletService
	transactions *MockTransactionService
	router       *gin.Engine
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:        new(MockUserService),
		wallets:      new(MockWalletService),
		transactions: new(MockTransactionService),
		router:       gin.New(),
	}
	h := NewUserHandler(newTestLogger(), f.users, f.wallets, f.transactions)
	f.router.POST("/users", h.Create)
	f.router.GET("/users/:id", h.Get)
	f.router.GET("/users/:id/wallet", h.Wallet)
	f.router.POST("/users/:id/wallet/credit", h.Credit)
	f.router.POST("/users/:id/wallet/debit", h.Debit)
	f.router.GET("/users/:id/transactions", h.History)
	return f
}

func TestUserHandler_Create(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := newUserFixture()
		u := &user.User{ID: uuid.New(), FullName: "Ada Obi", Email: "ada@example.com", Role: user.RoleReseller, CreatedAt: time.Now()}
		w := wallet.NewUserWallet(u.ID)
		f.users.On("CreateUser", mock.Anything, "Ada Obi", "ada@example.com", user.RoleReseller).Return(u, w, nil).Once()

		rr := serve(t, f.router, http.MethodPost, "/users", CreateUserRequest{FullName: "Ada Obi", Email: "ada@example.com", Role: "reseller"})

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		body := decode[UserResponse](t, rr)
		assert.Equal(t, u.ID.String(), body.Data.ID)
		assert.Equal(t, "reseller", body.Data.Role)
		require.NotNil(t, body.Data.Wallet)
		assert.Equal(t, "0.00", body.Data.Wallet.Balance)
		f.users.AssertExpectations(t)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		f := newUserFixture()
		f.users.On("CreateUser", mock.Anything, "Ada Obi", "ada@example.com", user.Role("")).
			Return(nil, nil, user.ErrDuplicateEmail{Email: "ada@example.com"}).Once()

		rr := serve(t, f.router, http.MethodPost, "/users", CreateUserRequest{FullName: "Ada Obi", Email: "ada@example.com"})

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "CONFLICT", decode[any](t, rr).Error.Code)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		f := newUserFixture()

		rr := serve(t, f.router, http.MethodPost, "/users", CreateUserRequest{FullName: "Ada Obi", Email: "not-an-email"})

		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decode[any](t, rr)
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
		assert.Contains(t, rr.Body.String(), `"tag":"email"`)
		f.users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		f := newUserFixture()

		rr := serve(t, f.router, http.MethodPost, "/users", `{"full_name":"Ada","email":"ada@example.com","role":"root"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"tag":"oneof"`)
	})
}

func TestUserHandler_Get(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		f := newUserFixture()
		id := uuid.New()
		f.users.On("GetUser", mock.Anything, id).Return(nil, user.ErrUserNotFound{UserID: id}).Once()

		rr := serve(t, f.router, http.MethodGet, "/users/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		f := newUserFixture()

		rr := serve(t, f.router, http.MethodGet, "/users/not-a-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUserHandler_Wallet(t *testing.T) {
	f := newUserFixture()
	id := uuid.New()
	w := wallet.NewUserWallet(id)
	w.Balance = decimal.RequireFromString("1250.5")
	f.wallets.On("GetBalance", mock.Anything, id).Return(w, nil).Once()

	rr := serve(t, f.router, http.MethodGet, "/users/"+id.String()+"/wallet", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1250.50", decode[WalletResponse](t, rr).Data.Balance)
}

func TestUserHandler_Credit(t *testing.T) {
	id := uuid.New()
	matchReq := mock.MatchedBy(func(req service.FundingRequest) bool {
		return req.UserID == id && req.TxRef == "fund-1" && req.Amount.Equal(decimal.RequireFromString("500"))
	})

	t.Run("NewMovement", func(t *testing.T) {
		f := newUserFixture()
		txn := sampleTransaction(transaction.ChannelWalletFunding, transaction.StatusSuccess)
		f.wallets.On("Credit", mock.Anything, matchReq).
			Return(&service.FundingResult{Transaction: txn, Balance: decimal.RequireFromString("500")}, nil).Once()

		rr := serve(t, f.router, http.MethodPost, "/users/"+id.String()+"/wallet/credit", `{"amount":"500","tx_ref":"fund-1"}`)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		body := decode[MovementResponse](t, rr)
		assert.True(t, body.Data.Success)
		assert.Equal(t, "500.00", body.Data.Balance)
		assert.False(t, body.Data.Replayed)
		require.NotNil(t, body.Data.Transaction)
		assert.Equal(t, "WALLET_FUNDING", body.Data.Transaction.Channel)
		f.wallets.AssertExpectations(t)
	})

	t.Run("ReplayedRefIsOK", func(t *testing.T) {
		f := newUserFixture()
		txn := sampleTransaction(transaction.ChannelWalletFunding, transaction.StatusSuccess)
		f.wallets.On("Credit", mock.Anything, matchReq).
			Return(&service.FundingResult{Transaction: txn, Balance: decimal.RequireFromString("500"), Replayed: true}, nil).Once()

		rr := serve(t, f.router, http.MethodPost, "/users/"+id.String()+"/wallet/credit", `{"amount":500,"tx_ref":"fund-1"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, decode[MovementResponse](t, rr).Data.Replayed)
	})

	t.Run("RejectsBadAmounts", func(t *testing.T) {
		for _, amount := range []string{`"0"`, `"-5"`, `"1.00001"`, `"abc"`} {
			f := newUserFixture()

			rr := serve(t, f.router, http.MethodPost, "/users/"+id.String()+"/wallet/credit", `{"amount":`+amount+`,"tx_ref":"fund-1"}`)

			assert.Equal(t, http.StatusBadRequest, rr.Code, amount)
			f.wallets.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
		}
	})

	t.Run("MissingTxRef", func(t *testing.T) {
		f := newUserFixture()

		rr := serve(t, f.router, http.MethodPost, "/users/"+id.String()+"/wallet/credit", `{"amount":"10"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"field":"TxRef"`)
	})

	t.Run("ConflictingRef", func(t *testing.T) {
		f := newUserFixture()
		f.wallets.On("Credit", mock.Anything, matchReq).Return(nil, transaction.ErrTxRefConflict).Once()

		rr := serve(t, f.router, http.MethodPost, "/users/"+id.String()+"/wallet/credit", `{"amount":"500","tx_ref":"fund-1"}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestUserHandler_Debit_InsufficientFunds(t *testing.T) {
	f := newUserFixture()
	id := uuid.New()
	f.wallets.On("Debit", mock.Anything, mock.Anything).Return(nil, wallet.ErrInsufficientFunds{
		WalletID: uuid.New(),
		Balance:  decimal.RequireFromString("100"),
		Required: decimal.RequireFromString("500"),
	}).Once()

	rr := serve(t, f.router, http.MethodPost, "/users/"+id.String()+"/wallet/debit", `{"amount":"500","tx_ref":"wd-1"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[any](t, rr)
	assert.Equal(t, "INSUFFICIENT_FUNDS", body.Error.Code)
	details, ok := body.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "100.00", details["balance"])
	assert.Equal(t, "500.00", details["required"])
}

func TestUserHandler_History(t *testing.T) {
	f := newUserFixture()
	id := uuid.New()
	records := []*history.Record{
		{TransactionID: uuid.NewString(), TxRef: "b", Amount: "300.0000", Status: "SUCCESS"},
		{TransactionID: uuid.NewString(), TxRef: "a", Amount: "1000.0000", Status: "SUCCESS"},
	}
	f.transactions.On("History", mock.Anything, id, 2, 2).Return(records, int64(5), nil).Once()

	rr := serve(t, f.router, http.MethodGet, "/users/"+id.String()+"/transactions?page=2&per_page=2", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[[]history.Record](t, rr)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "b", body.Data[0].TxRef)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 3, body.Meta.TotalPages)
	assert.Equal(t, 5, body.Meta.TotalItems)
}
