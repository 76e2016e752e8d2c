package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

const (
	transactionColumns = `id, tx_ref, user_id, wallet_id, amount, cost, currency, status, channel, provider,
		plan_id, recipient, provider_reference, ledger_id, refund_ledger_id, error_message, created_at, completed_at`

	defaultTake = 20
	maxTake     = 100
)

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a transaction. A taken tx_ref is reported as ErrDuplicateTxRef.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.TxRef,
		t.UserID,
		t.WalletID,
		t.Amount,
		t.Cost,
		t.Currency,
		string(t.Status),
		string(t.Channel),
		t.Provider,
		t.PlanID,
		t.Recipient,
		t.ProviderReference,
		t.LedgerID,
		t.RefundLedgerID,
		t.ErrorMessage,
		t.CreatedAt,
		t.CompletedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, "transactions_tx_ref_key") {
			return transaction.ErrDuplicateTxRef{TxRef: t.TxRef}
		}
		r.logger.Error("Failed to create transaction", "tx_ref", t.TxRef, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.getOne(ctx, query, transaction.ErrTransactionNotFound{ID: id}, id)
}

func (r *TransactionRepository) GetByTxRef(ctx context.Context, txRef string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tx_ref = $1`
	return r.getOne(ctx, query, transaction.ErrTransactionNotFound{TxRef: txRef}, txRef)
}

func (r *TransactionRepository) AttachLedger(ctx context.Context, id, ledgerID uuid.UUID) error {
	query := `UPDATE transactions SET ledger_id = $1 WHERE id = $2`

	tag, err := r.querier.Exec(ctx, query, ledgerID, id)
	if err != nil {
		r.logger.Error("Failed to attach ledger", "id", id.String(), "ledger_id", ledgerID.String(), "error", err)
		return fmt.Errorf("failed to attach ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{ID: id}
	}
	return nil
}

// Settle persists the terminal state. The PENDING guard makes a second settlement
// of the same transaction fail instead of silently overwriting the first.
func (r *TransactionRepository) Settle(ctx context.Context, t *transaction.Transaction) error {
	if !t.IsTerminal() {
		return fmt.Errorf("cannot settle transaction %s in status %s", t.ID, t.Status)
	}

	query := `
		UPDATE transactions
		SET status = $1, provider_reference = $2, refund_ledger_id = $3, error_message = $4, completed_at = $5
		WHERE id = $6 AND status = 'PENDING'
	`

	tag, err := r.querier.Exec(ctx, query,
		string(t.Status),
		t.ProviderReference,
		t.RefundLedgerID,
		t.ErrorMessage,
		t.CompletedAt,
		t.ID,
	)
	if err != nil {
		r.logger.Error("Failed to settle transaction", "id", t.ID.String(), "status", string(t.Status), "error", err)
		return fmt.Errorf("failed to settle transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transaction.ErrInvalidTransition
	}
	return nil
}

func (r *TransactionRepository) RecordProviderReference(ctx context.Context, id uuid.UUID, reference string) error {
	query := `UPDATE transactions SET provider_reference = $1 WHERE id = $2 AND status = 'PENDING'`

	tag, err := r.querier.Exec(ctx, query, reference, id)
	if err != nil {
		r.logger.Error("Failed to record provider reference", "id", id.String(), "error", err)
		return fmt.Errorf("failed to record provider reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transaction.ErrInvalidTransition
	}
	return nil
}

func (r *TransactionRepository) ListStalePending(ctx context.Context, channel transaction.Channel, before time.Time, limit int) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = 'PENDING' AND channel = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`
	limit, _ = normalizePage(limit, 0)

	rows, err := r.querier.Query(ctx, query, string(channel), before, limit)
	if err != nil {
		r.logger.Error("Failed to list stale transactions", "error", err)
		return nil, fmt.Errorf("failed to list stale transactions: %w", err)
	}
	return collectTransactions(rows)
}

// List returns a page of transactions, newest first, plus the total matching count.
func (r *TransactionRepository) List(ctx context.Context, f transaction.Filter) ([]*transaction.Transaction, int64, error) {
	where := `
		WHERE ($1::uuid IS NULL OR user_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at <= $4)
	`
	take, skip := normalizePage(f.Take, f.Skip)

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions` + where
	if err := r.querier.QueryRow(ctx, countQuery, f.UserID, string(f.Status), f.From, f.To).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions", "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	listQuery := `SELECT ` + transactionColumns + ` FROM transactions` + where + `
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := r.querier.Query(ctx, listQuery, f.UserID, string(f.Status), f.From, f.To, take, skip)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

func (r *TransactionRepository) getOne(ctx context.Context, query string, notFound error, arg any) (*transaction.Transaction, error) {
	t, err := scanTransaction(r.querier.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		r.logger.Error("Failed to get transaction", "key", arg, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	err := row.Scan(
		&t.ID,
		&t.TxRef,
		&t.UserID,
		&t.WalletID,
		&t.Amount,
		&t.Cost,
		&t.Currency,
		&t.Status,
		&t.Channel,
		&t.Provider,
		&t.PlanID,
		&t.Recipient,
		&t.ProviderReference,
		&t.LedgerID,
		&t.RefundLedgerID,
		&t.ErrorMessage,
		&t.CreatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func normalizePage(take, skip int) (int, int) {
	if take <= 0 {
		take = defaultTake
	}
	if take > maxTake {
		take = maxTake
	}
	if skip < 0 {
		skip = 0
	}
	return take, skip
}
