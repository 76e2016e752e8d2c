package outbox_poller

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/outbox"
	"github.com/vtu-wallet-ledger/internal/domain/shared"
)

func TestHistoryPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("SettledSnapshotUpserted", func(t *testing.T) {
		outboxRepo, historyRepo := new(MockOutboxRepo), new(MockHistoryRepo)
		msg, record := recordedMessage(t, 7, "SUCCESS")
		historyRepo.On("Upsert", ctx, mock.MatchedBy(func(r *history.Record) bool {
			return r.TransactionID == record.TransactionID && r.Status == "SUCCESS" && r.Amount == "300.0000"
		})).Return(nil).Once()
		outboxRepo.On("UpdateStatus", ctx, int64(7), shared.OutboxStatusProcessed).Return(nil).Once()

		err := NewHistoryPublisher(newTestLogger(), outboxRepo, historyRepo).Publish(ctx, msg)

		require.NoError(t, err)
		historyRepo.AssertNotCalled(t, "GetByTransactionID", mock.Anything, mock.Anything)
		outboxRepo.AssertExpectations(t)
		historyRepo.AssertExpectations(t)
	})

	t.Run("FirstPendingSnapshotUpserted", func(t *testing.T) {
		outboxRepo, historyRepo := new(MockOutboxRepo), new(MockHistoryRepo)
		msg, record := recordedMessage(t, 8, "PENDING")
		historyRepo.On("GetByTransactionID", ctx, record.TransactionID).
			Return(nil, history.ErrRecordNotFound{TransactionID: record.TransactionID}).Once()
		historyRepo.On("Upsert", ctx, mock.Anything).Return(nil).Once()
		outboxRepo.On("UpdateStatus", ctx, int64(8), shared.OutboxStatusProcessed).Return(nil).Once()

		require.NoError(t, NewHistoryPublisher(newTestLogger(), outboxRepo, historyRepo).Publish(ctx, msg))
		historyRepo.AssertExpectations(t)
	})

	t.Run("StalePendingSkipped", func(t *testing.T) {
		outboxRepo, historyRepo := new(MockOutboxRepo), new(MockHistoryRepo)
		msg, record := recordedMessage(t, 9, "PENDING")
		historyRepo.On("GetByTransactionID", ctx, record.TransactionID).
			Return(&history.Record{TransactionID: record.TransactionID, Status: "FAILED"}, nil).Once()
		outboxRepo.On("UpdateStatus", ctx, int64(9), shared.OutboxStatusProcessed).Return(nil).Once()

		require.NoError(t, NewHistoryPublisher(newTestLogger(), outboxRepo, historyRepo).Publish(ctx, msg))
		historyRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("UnknownEventIsUnprocessable", func(t *testing.T) {
		outboxRepo, historyRepo := new(MockOutboxRepo), new(MockHistoryRepo)
		msg := &outbox.Message{ID: 10, EventType: "something.else", Payload: []byte(`{}`)}

		err := NewHistoryPublisher(newTestLogger(), outboxRepo, historyRepo).Publish(ctx, msg)

		assert.ErrorIs(t, err, ErrUnprocessable)
		outboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UpsertFailure", func(t *testing.T) {
		outboxRepo, historyRepo := new(MockOutboxRepo), new(MockHistoryRepo)
		msg, _ := recordedMessage(t, 11, "SUCCESS")
		historyRepo.On("Upsert", ctx, mock.Anything).Return(errors.New("mongo down")).Once()

		err := NewHistoryPublisher(newTestLogger(), outboxRepo, historyRepo).Publish(ctx, msg)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnprocessable)
		outboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}
