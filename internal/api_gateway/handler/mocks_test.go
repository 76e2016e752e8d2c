package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vtu-wallet-ledger/internal/api_gateway/service"
	"github.com/vtu-wallet-ledger/internal/audit"
	"github.com/vtu-wallet-ledger/internal/catalog"
	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/product"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/domain/user"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
	"github.com/vtu-wallet-ledger/internal/purchase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	os.Exit(m.Run())
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// envelope mirrors Response with a typed payload.
type envelope[T any] struct {
	Data  T          `json:"data"`
	Error *ErrorInfo `json:"error,omitempty"`
	Meta  *MetaInfo  `json:"meta,omitempty"`
}

func serve(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func sampleTransaction(channel transaction.Channel, status transaction.Status) *transaction.Transaction {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return &transaction.Transaction{
		ID:        uuid.New(),
		TxRef:     "ref-1",
		UserID:    uuid.New(),
		WalletID:  uuid.New(),
		Amount:    decimal.RequireFromString("500"),
		Currency:  "NGN",
		Status:    status,
		Channel:   channel,
		CreatedAt: now,
	}
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) CreateUser(ctx context.Context, fullName, email string, role user.Role) (*user.User, *wallet.Wallet, error) {
	args := m.Called(ctx, fullName, email, role)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*user.User), args.Get(1).(*wallet.Wallet), args.Error(2)
}

func (m *MockUserService) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockWalletService struct{ mock.Mock }

func (m *MockWalletService) Credit(ctx context.Context, req service.FundingRequest) (*service.FundingResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FundingResult), args.Error(1)
}

func (m *MockWalletService) Debit(ctx context.Context, req service.FundingRequest) (*service.FundingResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FundingResult), args.Error(1)
}

func (m *MockWalletService) GetBalance(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

type MockPurchaseService struct{ mock.Mock }

func (m *MockPurchaseService) Buy(ctx context.Context, req purchase.Request) (*purchase.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchase.Result), args.Error(1)
}

type MockPlanService struct{ mock.Mock }

func (m *MockPlanService) GetPlan(ctx context.Context, id uuid.UUID) (*product.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Plan), args.Error(1)
}

func (m *MockPlanService) ListPlans(ctx context.Context) ([]*product.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*product.Plan), args.Error(1)
}

func (m *MockPlanService) UpsertPlan(ctx context.Context, in catalog.UpsertPlanInput) (*product.Plan, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Plan), args.Error(1)
}

func (m *MockPlanService) UpdateSellingPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*product.Plan, error) {
	args := m.Called(ctx, id, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Plan), args.Error(1)
}

type MockTransactionService struct{ mock.Mock }

func (m *MockTransactionService) GetByTxRef(ctx context.Context, txRef string) (*transaction.Transaction, error) {
	args := m.Called(ctx, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*transaction.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionService) History(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*history.Record, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*history.Record), args.Get(1).(int64), args.Error(2)
}

type MockLedgerService struct{ mock.Mock }

func (m *MockLedgerService) GetLedger(ctx context.Context, id uuid.UUID) (*ledger.Ledger, []*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*ledger.Ledger), args.Get(1).([]*ledger.Entry), args.Error(2)
}

type MockAuditService struct{ mock.Mock }

func (m *MockAuditService) AuditBalances(ctx context.Context) (*audit.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Report), args.Error(1)
}

func (m *MockAuditService) InflowOutflow(ctx context.Context, timeframe string, from, to *time.Time) (*audit.FlowReport, error) {
	args := m.Called(ctx, timeframe, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.FlowReport), args.Error(1)
}

