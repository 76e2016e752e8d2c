// Package accounting posts balanced multi-wallet movements. Every balance change it makes
// is paired with an entry on a single ledger, inside the caller's database transaction.
package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/money"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
	"github.com/vtu-wallet-ledger/internal/platform/metrics"
)

// ErrNoTransaction is returned when an engine method is called without a transaction.
var ErrNoTransaction = errors.New("accounting operations require a database transaction")

// Engine applies postings. It has no state between calls.
type Engine struct {
	wallets wallet.Repository
	ledgers ledger.Repository
	logger  *slog.Logger
}

// NewEngine creates an engine posting through the given wallet and ledger repositories.
func NewEngine(logger *slog.Logger, wallets wallet.Repository, ledgers ledger.Repository) *Engine {
	return &Engine{
		wallets: wallets,
		ledgers: ledgers,
		logger:  logger,
	}
}

// Sale describes the charge for one purchase. Cost is what the platform pays the provider.
type Sale struct {
	UserID      uuid.UUID
	Gross       decimal.Decimal
	Cost        decimal.Decimal
	Description string
	CreatedBy   string
}

// Movement is a plain deposit into or withdrawal from a user wallet.
type Movement struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
	CreatedBy   string
}

// Posting is the result of one engine call: the ledger, its entries in leg order and
// the user's balance afterwards.
type Posting struct {
	LedgerID    uuid.UUID
	Entries     []*ledger.Entry
	UserBalance decimal.Decimal
}

// ObserveCommitted counts the posting's entries. Call it after the transaction commits.
func (p *Posting) ObserveCommitted() {
	for _, entry := range p.Entries {
		metrics.RecordLedgerEntry(string(entry.Type))
	}
}

type leg struct {
	wallet    *wallet.Wallet
	amount    decimal.Decimal
	entryType ledger.EntryType
}

// RecordSale moves a purchase's gross amount from the user to the platform:
// user DEBIT, liability DEBIT, revenue CREDIT, profit CREDIT of gross, then profit DEBIT
// of cost. The user's balance is checked before any platform wallet is touched.
func (e *Engine) RecordSale(ctx context.Context, tx pgx.Tx, sale Sale) (*Posting, error) {
	if err := validateSale(sale); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrNoTransaction
	}
	wallets := e.wallets.WithTx(tx)

	user, err := wallets.LockByUserID(ctx, sale.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanDebit(sale.Gross) {
		return nil, wallet.ErrInsufficientFunds{
			WalletID: user.ID,
			Balance:  user.Balance,
			Required: sale.Gross,
		}
	}

	platform, err := ResolvePlatform(ctx, wallets)
	if err != nil {
		return nil, err
	}

	legs := []leg{
		{wallet: user, amount: sale.Gross, entryType: ledger.Debit},
		{wallet: platform.Liability, amount: sale.Gross, entryType: ledger.Debit},
		{wallet: platform.Revenue, amount: sale.Gross, entryType: ledger.Credit},
		{wallet: platform.Profit, amount: sale.Gross, entryType: ledger.Credit},
	}
	if sale.Cost.IsPositive() {
		legs = append(legs, leg{wallet: platform.Profit, amount: sale.Cost, entryType: ledger.Debit})
	}

	return e.post(ctx, tx, sale.Description, sale.CreatedBy, user, legs)
}

// RecordRefund reverses RecordSale for the same gross and cost, leg by leg. It applies no
// balance floor and does not look for the original sale; callers only refund sales they
// posted themselves.
func (e *Engine) RecordRefund(ctx context.Context, tx pgx.Tx, sale Sale) (*Posting, error) {
	if err := validateSale(sale); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrNoTransaction
	}
	wallets := e.wallets.WithTx(tx)

	user, err := wallets.LockByUserID(ctx, sale.UserID)
	if err != nil {
		return nil, err
	}
	platform, err := ResolvePlatform(ctx, wallets)
	if err != nil {
		return nil, err
	}

	legs := []leg{
		{wallet: user, amount: sale.Gross, entryType: ledger.Credit},
		{wallet: platform.Liability, amount: sale.Gross, entryType: ledger.Credit},
		{wallet: platform.Revenue, amount: sale.Gross, entryType: ledger.Debit},
		{wallet: platform.Profit, amount: sale.Gross, entryType: ledger.Debit},
	}
	if sale.Cost.IsPositive() {
		legs = append(legs, leg{wallet: platform.Profit, amount: sale.Cost, entryType: ledger.Credit})
	}

	return e.post(ctx, tx, sale.Description, sale.CreatedBy, user, legs)
}

// Deposit credits the user and records the matching liability.
func (e *Engine) Deposit(ctx context.Context, tx pgx.Tx, m Movement) (*Posting, error) {
	if err := money.RequirePositive(m.Amount); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrNoTransaction
	}
	wallets := e.wallets.WithTx(tx)

	user, err := wallets.LockByUserID(ctx, m.UserID)
	if err != nil {
		return nil, err
	}
	liability, err := wallets.LockByName(ctx, wallet.LiabilityWallet)
	if err != nil {
		return nil, err
	}

	return e.post(ctx, tx, m.Description, m.CreatedBy, user, []leg{
		{wallet: user, amount: m.Amount, entryType: ledger.Credit},
		{wallet: liability, amount: m.Amount, entryType: ledger.Credit},
	})
}

// Withdraw debits the user and releases the matching liability.
func (e *Engine) Withdraw(ctx context.Context, tx pgx.Tx, m Movement) (*Posting, error) {
	if err := money.RequirePositive(m.Amount); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrNoTransaction
	}
	wallets := e.wallets.WithTx(tx)

	user, err := wallets.LockByUserID(ctx, m.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanDebit(m.Amount) {
		return nil, wallet.ErrInsufficientFunds{
			WalletID: user.ID,
			Balance:  user.Balance,
			Required: m.Amount,
		}
	}
	liability, err := wallets.LockByName(ctx, wallet.LiabilityWallet)
	if err != nil {
		return nil, err
	}

	return e.post(ctx, tx, m.Description, m.CreatedBy, user, []leg{
		{wallet: user, amount: m.Amount, entryType: ledger.Debit},
		{wallet: liability, amount: m.Amount, entryType: ledger.Debit},
	})
}

// post opens one ledger and applies legs in order, pairing each balance change with an
// entry. Any error leaves the transaction to be rolled back by the caller.
func (e *Engine) post(ctx context.Context, tx pgx.Tx, description, createdBy string, user *wallet.Wallet, legs []leg) (*Posting, error) {
	wallets := e.wallets.WithTx(tx)
	ledgers := e.ledgers.WithTx(tx)

	l := ledger.NewLedger(description, createdBy)
	if err := ledgers.OpenLedger(ctx, l); err != nil {
		return nil, err
	}

	posting := &Posting{
		LedgerID:    l.ID,
		Entries:     make([]*ledger.Entry, 0, len(legs)),
		UserBalance: user.Balance,
	}

	for i, lg := range legs {
		var (
			balance decimal.Decimal
			err     error
		)
		if lg.entryType == ledger.Debit {
			balance, err = wallets.Debit(ctx, lg.wallet.ID, lg.amount)
		} else {
			balance, err = wallets.Credit(ctx, lg.wallet.ID, lg.amount)
		}
		if err != nil {
			return nil, fmt.Errorf("leg %d (%s %s): %w", i+1, lg.entryType, lg.wallet.Name, err)
		}

		entry, err := ledger.NewEntry(l.ID, lg.wallet.ID, lg.amount, lg.entryType)
		if err != nil {
			return nil, err
		}
		if err := ledgers.RecordEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("leg %d (%s %s): %w", i+1, lg.entryType, lg.wallet.Name, err)
		}

		posting.Entries = append(posting.Entries, entry)
		if lg.wallet.ID == user.ID {
			posting.UserBalance = balance
		}
	}

	e.logger.Debug("Posted ledger",
		"ledger_id", l.ID.String(),
		"description", description,
		"entries", len(posting.Entries),
	)
	return posting, nil
}

func validateSale(sale Sale) error {
	if err := money.RequirePositive(sale.Gross); err != nil {
		return err
	}
	return money.RequireNonNegative(sale.Cost)
}
