package outbox_poller

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/outbox"
	"github.com/vtu-wallet-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type MockOutboxRepo struct{ mock.Mock }

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepo) RecordFailure(ctx context.Context, id int64, cause string) (int, error) {
	args := m.Called(ctx, id, cause)
	return args.Int(0), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockHistoryRepo struct{ mock.Mock }

func (m *MockHistoryRepo) Upsert(ctx context.Context, record *history.Record) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockHistoryRepo) GetByTransactionID(ctx context.Context, transactionID string) (*history.Record, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Record), args.Error(1)
}

func (m *MockHistoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*history.Record, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Record), args.Error(1)
}

func (m *MockHistoryRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func recordedMessage(t *testing.T, id int64, status string) (*outbox.Message, *history.Record) {
	t.Helper()
	record := &history.Record{
		TransactionID: uuid.NewString(),
		TxRef:         "ref-" + status,
		UserID:        uuid.NewString(),
		Amount:        "300.0000",
		Currency:      "NGN",
		Status:        status,
		Channel:       "DATA_PURCHASE",
	}
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	return &outbox.Message{
		ID:          id,
		AggregateID: uuid.MustParse(record.TransactionID),
		EventType:   shared.EventTransactionRecorded,
		Payload:     raw,
		Status:      shared.OutboxStatusPending,
	}, record
}
