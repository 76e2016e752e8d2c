package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	transactions transaction.Repository
	history      history.Repository
	logger       *slog.Logger
}

func NewTransactionService(logger *slog.Logger, transactions transaction.Repository, historyRepo history.Repository) TransactionService {
	return &TransactionServiceImpl{
		transactions: transactions,
		history:      historyRepo,
		logger:       logger,
	}
}

func (s *TransactionServiceImpl) GetByTxRef(ctx context.Context, txRef string) (*transaction.Transaction, error) {
	return s.transactions.GetByTxRef(ctx, txRef)
}

func (s *TransactionServiceImpl) List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, int64, error) {
	txns, total, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if txns == nil {
		txns = []*transaction.Transaction{}
	}
	return txns, total, nil
}

// History reads the projection, which trails the ledger by up to one outbox poll.
func (s *TransactionServiceImpl) History(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*history.Record, int64, error) {
	offset := (page - 1) * perPage

	records, err := s.history.ListByUser(ctx, userID.String(), perPage, offset)
	if err != nil {
		s.logger.Error("Failed to read transaction history", "user_id", userID.String(), "error", err)
		return nil, 0, err
	}
	total, err := s.history.CountByUser(ctx, userID.String())
	if err != nil {
		s.logger.Error("Failed to count transaction history", "user_id", userID.String(), "error", err)
		return nil, 0, err
	}
	return records, total, nil
}

// LedgerServiceImpl implements the LedgerService interface
type LedgerServiceImpl struct {
	ledgers ledger.Repository
}

func NewLedgerService(ledgers ledger.Repository) LedgerService {
	return &LedgerServiceImpl{ledgers: ledgers}
}

// GetLedger returns a ledger with its entries in posting order.
func (s *LedgerServiceImpl) GetLedger(ctx context.Context, id uuid.UUID) (*ledger.Ledger, []*ledger.Entry, error) {
	l, err := s.ledgers.GetLedger(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.ledgers.ListEntriesByLedger(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	return l, entries, nil
}
