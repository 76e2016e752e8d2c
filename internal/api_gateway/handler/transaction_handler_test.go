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

	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
)

func newTransactionRouter(transactions *MockTransactionService, ledgers *MockLedgerService) *gin.Engine {
	h := NewTransactionHandler(newTestLogger(), transactions, ledgers)
	router := gin.New()
	router.GET("/transactions/:txRef", h.GetByTxRef)
	router.GET("/ledgers/:id", h.GetLedger)
	return router
}

func TestTransactionHandler_GetByTxRef(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		transactions := new(MockTransactionService)
		txn := sampleTransaction(transaction.ChannelDataPurchase, transaction.StatusSuccess)
		ledgerID := uuid.New()
		txn.LedgerID = &ledgerID
		transactions.On("GetByTxRef", mock.Anything, "ref-1").Return(txn, nil).Once()

		rr := serve(t, newTransactionRouter(transactions, new(MockLedgerService)), http.MethodGet, "/transactions/ref-1", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[TransactionResponse](t, rr).Data
		assert.Equal(t, "ref-1", got.TxRef)
		assert.Equal(t, "500.00", got.Amount)
		assert.Equal(t, ledgerID.String(), got.LedgerID)
		assert.Empty(t, got.RefundLedgerID)
	})

	t.Run("Missing", func(t *testing.T) {
		transactions := new(MockTransactionService)
		transactions.On("GetByTxRef", mock.Anything, "nope").
			Return(nil, transaction.ErrTransactionNotFound{TxRef: "nope"}).Once()

		rr := serve(t, newTransactionRouter(transactions, new(MockLedgerService)), http.MethodGet, "/transactions/nope", nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestTransactionHandler_GetLedger(t *testing.T) {
	t.Run("WithEntries", func(t *testing.T) {
		ledgers := new(MockLedgerService)
		l := ledger.NewLedger("Data purchase ref-1", "")
		entry, err := ledger.NewEntry(l.ID, uuid.New(), decimal.RequireFromString("300"), ledger.Debit)
		require.NoError(t, err)
		entry.CreatedAt = time.Now()
		ledgers.On("GetLedger", mock.Anything, l.ID).Return(l, []*ledger.Entry{entry}, nil).Once()

		rr := serve(t, newTransactionRouter(new(MockTransactionService), ledgers), http.MethodGet, "/ledgers/"+l.ID.String(), nil)

		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[LedgerResponse](t, rr).Data
		assert.Equal(t, "Data purchase ref-1", got.Description)
		require.Len(t, got.Entries, 1)
		assert.Equal(t, "DEBIT", got.Entries[0].Type)
		assert.Equal(t, "300.00", got.Entries[0].Amount)
	})

	t.Run("NotFound", func(t *testing.T) {
		ledgers := new(MockLedgerService)
		id := uuid.New()
		ledgers.On("GetLedger", mock.Anything, id).Return(nil, nil, ledger.ErrLedgerNotFound{LedgerID: id}).Once()

		rr := serve(t, newTransactionRouter(new(MockTransactionService), ledgers), http.MethodGet, "/ledgers/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("BadID", func(t *testing.T) {
		rr := serve(t, newTransactionRouter(new(MockTransactionService), new(MockLedgerService)), http.MethodGet, "/ledgers/xyz", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
