package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtu-wallet-ledger/internal/domain/shared"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
)

func TestNewTransactionRecorded(t *testing.T) {
	txn, err := transaction.New("ref-1", uuid.New(), uuid.New(), decimal.NewFromInt(300), "NGN", transaction.ChannelDataPurchase)
	require.NoError(t, err)

	before := time.Now()
	msg, err := NewTransactionRecorded(txn)
	require.NoError(t, err)

	assert.Equal(t, txn.ID, msg.AggregateID)
	assert.Equal(t, shared.EventTransactionRecorded, msg.EventType)
	assert.Equal(t, shared.OutboxStatusPending, msg.Status)
	assert.Equal(t, 0, msg.Attempts)
	assert.Nil(t, msg.LastAttemptAt)
	assert.False(t, msg.CreatedAt.Before(before))

	record, err := msg.HistoryRecord()
	require.NoError(t, err)
	assert.Equal(t, txn.ID.String(), record.TransactionID)
	assert.Equal(t, "300.00", record.Amount)
	assert.Equal(t, "PENDING", record.Status)
}

func TestMessage_HistoryRecord_WrongType(t *testing.T) {
	msg, err := NewMessage(shared.EventPurchaseCompleted, uuid.New(), map[string]string{"k": "v"})
	require.NoError(t, err)

	_, err = msg.HistoryRecord()
	assert.Error(t, err)
}
