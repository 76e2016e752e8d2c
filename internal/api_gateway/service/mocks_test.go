package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/vtu-wallet-ledger/internal/accounting"
	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/outbox"
	"github.com/vtu-wallet-ledger/internal/domain/shared"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/domain/user"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
)

type fakeTx struct {
	pgx.Tx
}

// fakeTxExecutor runs fn once with a placeholder transaction and reports its error.
type fakeTxExecutor struct {
	runs int
}

func (f *fakeTxExecutor) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	f.runs++
	return fn(fakeTx{})
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) WithTx(pgx.Tx) user.Repository { return m }

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) walletResult(args mock.Arguments) (*wallet.Wallet, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockWalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	return m.walletResult(m.Called(ctx, id))
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return m.walletResult(m.Called(ctx, userID))
}

func (m *MockWalletRepository) GetByName(ctx context.Context, name string) (*wallet.Wallet, error) {
	return m.walletResult(m.Called(ctx, name))
}

func (m *MockWalletRepository) LockByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return m.walletResult(m.Called(ctx, userID))
}

func (m *MockWalletRepository) LockByName(ctx context.Context, name string) (*wallet.Wallet, error) {
	return m.walletResult(m.Called(ctx, name))
}

func (m *MockWalletRepository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletRepository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletRepository) UpsertPlatform(ctx context.Context, w *wallet.Wallet) (bool, error) {
	args := m.Called(ctx, w)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletRepository) CountPlatform(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockWalletRepository) SumUserBalances(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletRepository) WithTx(pgx.Tx) wallet.Repository { return m }

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	return m.Called(ctx, txn).Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByTxRef(ctx context.Context, txRef string) (*transaction.Transaction, error) {
	args := m.Called(ctx, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) AttachLedger(ctx context.Context, id, ledgerID uuid.UUID) error {
	return m.Called(ctx, id, ledgerID).Error(0)
}

func (m *MockTransactionRepository) Settle(ctx context.Context, txn *transaction.Transaction) error {
	return m.Called(ctx, txn).Error(0)
}

func (m *MockTransactionRepository) RecordProviderReference(ctx context.Context, id uuid.UUID, reference string) error {
	return m.Called(ctx, id, reference).Error(0)
}

func (m *MockTransactionRepository) ListStalePending(ctx context.Context, channel transaction.Channel, before time.Time, limit int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, channel, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*transaction.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) WithTx(pgx.Tx) transaction.Repository { return m }

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepository) RecordFailure(ctx context.Context, id int64, cause string) (int, error) {
	args := m.Called(ctx, id, cause)
	return args.Int(0), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(pgx.Tx) outbox.Repository { return m }

type MockMover struct {
	mock.Mock
}

func (m *MockMover) Deposit(ctx context.Context, tx pgx.Tx, mv accounting.Movement) (*accounting.Posting, error) {
	args := m.Called(ctx, tx, mv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Posting), args.Error(1)
}

func (m *MockMover) Withdraw(ctx context.Context, tx pgx.Tx, mv accounting.Movement) (*accounting.Posting, error) {
	args := m.Called(ctx, tx, mv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Posting), args.Error(1)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Upsert(ctx context.Context, record *history.Record) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockHistoryRepository) GetByTransactionID(ctx context.Context, transactionID string) (*history.Record, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Record), args.Error(1)
}

func (m *MockHistoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*history.Record, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Record), args.Error(1)
}

func (m *MockHistoryRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) OpenLedger(ctx context.Context, l *ledger.Ledger) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockLedgerRepository) RecordEntry(ctx context.Context, e *ledger.Entry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockLedgerRepository) GetLedger(ctx context.Context, id uuid.UUID) (*ledger.Ledger, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Ledger), args.Error(1)
}

func (m *MockLedgerRepository) ListEntriesByLedger(ctx context.Context, ledgerID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, ledgerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) FlowTotals(ctx context.Context, walletIDs []uuid.UUID, unit string, from, to *time.Time) ([]ledger.FlowTotal, error) {
	args := m.Called(ctx, walletIDs, unit, from, to)
	return args.Get(0).([]ledger.FlowTotal), args.Error(1)
}

func (m *MockLedgerRepository) WithTx(pgx.Tx) ledger.Repository { return m }
