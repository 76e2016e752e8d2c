// Package postgres provides PostgreSQL implementations of the domain repositories.
// Repositories run against the pool by default; WithTx rebinds them to a transaction
// so several calls share one atomic unit.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/domain/wallet"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

const walletColumns = `id, name, user_id, balance, created_at, updated_at`

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx.
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (id, name, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query, w.ID, w.Name, w.UserID, w.Balance, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create wallet", "name", w.Name, "error", err)
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return r.getOne(ctx, query, wallet.ErrWalletNotFound{WalletID: id}, id)
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return r.getOne(ctx, query, wallet.ErrWalletNotFound{UserID: userID}, userID)
}

func (r *WalletRepository) GetByName(ctx context.Context, name string) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE name = $1`
	return r.getOne(ctx, query, wallet.ErrWalletNotFound{Name: name}, name)
}

// LockByUserID locks the user's wallet row until the transaction ends.
func (r *WalletRepository) LockByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return r.getOne(ctx, query, wallet.ErrWalletNotFound{UserID: userID}, userID)
}

// LockByName locks a wallet row by its unique name until the transaction ends.
func (r *WalletRepository) LockByName(ctx context.Context, name string) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE name = $1 FOR UPDATE`
	return r.getOne(ctx, query, wallet.ErrWalletNotFound{Name: name}, name)
}

// Credit adds amount to the wallet and returns the new balance.
func (r *WalletRepository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, wallet.ErrInvalidAmount
	}

	query := `
		UPDATE wallets
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance
	`

	var balance decimal.Decimal
	if err := r.querier.QueryRow(ctx, query, amount, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, wallet.ErrWalletNotFound{WalletID: id}
		}
		r.logger.Error("Failed to credit wallet", "wallet_id", id.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to credit wallet: %w", err)
	}
	return balance, nil
}

// Debit subtracts amount from the wallet and returns the new balance. The floor is
// enforced in the UPDATE itself so a concurrent debit cannot slip past the check.
func (r *WalletRepository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, wallet.ErrInvalidAmount
	}

	query := `
		UPDATE wallets
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND (user_id IS NULL OR balance >= $1)
		RETURNING balance
	`

	var balance decimal.Decimal
	err := r.querier.QueryRow(ctx, query, amount, id).Scan(&balance)
	if err == nil {
		return balance, nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		// either the wallet is missing or the floor guard filtered the row out
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return decimal.Zero, getErr
		}
		return decimal.Zero, wallet.ErrInsufficientFunds{WalletID: id, Balance: current.Balance, Required: amount}
	}
	if persistence.IsCheckViolation(err, "wallets_user_balance_non_negative") {
		// the transaction is aborted at this point, so no lookup for the balance
		return decimal.Zero, wallet.ErrInsufficientFunds{WalletID: id, Required: amount}
	}

	r.logger.Error("Failed to debit wallet", "wallet_id", id.String(), "error", err)
	return decimal.Zero, fmt.Errorf("failed to debit wallet: %w", err)
}

// UpsertPlatform inserts a platform wallet unless one already exists. Existing rows,
// and their balances, are left untouched.
func (r *WalletRepository) UpsertPlatform(ctx context.Context, w *wallet.Wallet) (bool, error) {
	query := `
		INSERT INTO wallets (id, name, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, NULL, 0, $3, $3)
		ON CONFLICT DO NOTHING
	`

	tag, err := r.querier.Exec(ctx, query, w.ID, w.Name, w.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert platform wallet", "name", w.Name, "error", err)
		return false, fmt.Errorf("failed to upsert platform wallet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountPlatform counts the provisioned platform wallets.
func (r *WalletRepository) CountPlatform(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM wallets WHERE user_id IS NULL AND name = ANY($1)`

	var count int
	if err := r.querier.QueryRow(ctx, query, wallet.PlatformNames).Scan(&count); err != nil {
		r.logger.Error("Failed to count platform wallets", "error", err)
		return 0, fmt.Errorf("failed to count platform wallets: %w", err)
	}
	return count, nil
}

// SumUserBalances totals the balances of every user-owned wallet.
func (r *WalletRepository) SumUserBalances(ctx context.Context) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(balance), 0) FROM wallets WHERE user_id IS NOT NULL`

	var total decimal.Decimal
	if err := r.querier.QueryRow(ctx, query).Scan(&total); err != nil {
		r.logger.Error("Failed to sum user balances", "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum user balances: %w", err)
	}
	return total, nil
}

func (r *WalletRepository) getOne(ctx context.Context, query string, notFound error, arg any) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := r.querier.QueryRow(ctx, query, arg).Scan(
		&w.ID,
		&w.Name,
		&w.UserID,
		&w.Balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		r.logger.Error("Failed to get wallet", "key", arg, "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}
