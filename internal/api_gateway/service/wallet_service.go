package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/accounting"
	"github.com/vtu-wallet-ledger/internal/domain/money"
	"github.com/vtu-wallet-ledger/internal/domain/outbox"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

// Mover is the part of the accounting engine that funds and drains user wallets.
type Mover interface {
	Deposit(ctx context.Context, tx pgx.Tx, m accounting.Movement) (*accounting.Posting, error)
	Withdraw(ctx context.Context, tx pgx.Tx, m accounting.Movement) (*accounting.Posting, error)
}

// FundingRequest credits or debits a user's wallet. TxRef makes retries safe.
type FundingRequest struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	TxRef       string
	Description string
}

type FundingResult struct {
	Transaction *transaction.Transaction
	Balance     decimal.Decimal
	Replayed    bool
}

type postFunc func(ctx context.Context, tx pgx.Tx, m accounting.Movement) (*accounting.Posting, error)

// WalletServiceImpl implements the WalletService interface
type WalletServiceImpl struct {
	db           persistence.TxExecutor
	mover        Mover
	wallets      wallet.Repository
	transactions transaction.Repository
	outbox       outbox.Repository
	currency     string
	logger       *slog.Logger
}

func NewWalletService(
	logger *slog.Logger,
	db persistence.TxExecutor,
	mover Mover,
	wallets wallet.Repository,
	transactions transaction.Repository,
	outboxRepo outbox.Repository,
	currency string,
) WalletService {
	return &WalletServiceImpl{
		db:           db,
		mover:        mover,
		wallets:      wallets,
		transactions: transactions,
		outbox:       outboxRepo,
		currency:     currency,
		logger:       logger,
	}
}

func (s *WalletServiceImpl) Credit(ctx context.Context, req FundingRequest) (*FundingResult, error) {
	if req.Description == "" {
		req.Description = "Wallet funding"
	}
	return s.move(ctx, req, transaction.ChannelWalletFunding, s.mover.Deposit)
}

func (s *WalletServiceImpl) Debit(ctx context.Context, req FundingRequest) (*FundingResult, error) {
	if req.Description == "" {
		req.Description = "Wallet withdrawal"
	}
	return s.move(ctx, req, transaction.ChannelWalletWithdrawal, s.mover.Withdraw)
}

func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return s.wallets.GetByUserID(ctx, userID)
}

// move posts the movement and records it as a settled transaction in one unit. A failed
// posting leaves no transaction behind, so the same TxRef can be retried.
func (s *WalletServiceImpl) move(ctx context.Context, req FundingRequest, channel transaction.Channel, post postFunc) (*FundingResult, error) {
	if err := money.RequirePositive(req.Amount); err != nil {
		return nil, err
	}
	req.TxRef = strings.TrimSpace(req.TxRef)
	if req.TxRef == "" {
		return nil, transaction.ErrMissingTxRef
	}

	if result, err := s.replay(ctx, req, channel); result != nil || err != nil {
		return result, err
	}

	userWallet, err := s.wallets.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	txn, err := transaction.New(req.TxRef, req.UserID, userWallet.ID, req.Amount, s.currency, channel)
	if err != nil {
		return nil, err
	}

	var posting *accounting.Posting
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		posting, err = post(ctx, tx, accounting.Movement{
			UserID:      req.UserID,
			Amount:      req.Amount,
			Description: req.Description,
			CreatedBy:   req.UserID.String(),
		})
		if err != nil {
			return err
		}

		txn.LedgerID = &posting.LedgerID
		if err := txn.Complete(""); err != nil {
			return err
		}
		if err := s.transactions.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}

		msg, err := outbox.NewTransactionRecorded(txn)
		if err != nil {
			return err
		}
		return s.outbox.WithTx(tx).Create(ctx, msg)
	})
	if err != nil {
		if errors.Is(err, transaction.ErrDuplicateTxRef{}) {
			if result, replayErr := s.replay(ctx, req, channel); result != nil || replayErr != nil {
				return result, replayErr
			}
		}
		s.logger.Warn("Wallet movement rejected",
			"tx_ref", req.TxRef,
			"user_id", req.UserID.String(),
			"channel", string(channel),
			"error", err,
		)
		return nil, err
	}
	posting.ObserveCommitted()

	s.logger.Info("Wallet movement posted",
		"tx_ref", req.TxRef,
		"user_id", req.UserID.String(),
		"channel", string(channel),
		"amount", req.Amount.String(),
		"ledger_id", posting.LedgerID.String(),
	)
	return &FundingResult{Transaction: txn, Balance: posting.UserBalance}, nil
}

func (s *WalletServiceImpl) replay(ctx context.Context, req FundingRequest, channel transaction.Channel) (*FundingResult, error) {
	existing, err := s.transactions.GetByTxRef(ctx, req.TxRef)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			return nil, nil
		}
		return nil, err
	}
	if existing.UserID != req.UserID || existing.Channel != channel || !existing.Amount.Equal(req.Amount) {
		return nil, transaction.ErrTxRefConflict
	}

	result := &FundingResult{Transaction: existing, Replayed: true}
	if w, err := s.wallets.GetByUserID(ctx, req.UserID); err == nil {
		result.Balance = w.Balance
	}
	return result, nil
}
