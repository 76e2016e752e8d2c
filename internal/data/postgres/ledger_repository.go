package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL.
// It only ever inserts; the tables reject UPDATE and DELETE at the database level too.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *LedgerRepository) OpenLedger(ctx context.Context, l *ledger.Ledger) error {
	query := `
		INSERT INTO ledgers (id, description, created_by, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.querier.Exec(ctx, query, l.ID, l.Description, l.CreatedBy, l.CreatedAt); err != nil {
		r.logger.Error("Failed to open ledger", "ledger_id", l.ID.String(), "error", err)
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	return nil
}

func (r *LedgerRepository) RecordEntry(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO entries (id, wallet_id, ledger_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.querier.Exec(ctx, query, e.ID, e.WalletID, e.LedgerID, e.Amount, string(e.Type), e.CreatedAt); err != nil {
		r.logger.Error("Failed to record entry",
			"ledger_id", e.LedgerID.String(),
			"wallet_id", e.WalletID.String(),
			"type", string(e.Type),
			"error", err)
		return fmt.Errorf("failed to record entry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetLedger(ctx context.Context, id uuid.UUID) (*ledger.Ledger, error) {
	query := `
		SELECT id, description, created_by, created_at
		FROM ledgers
		WHERE id = $1
	`

	var l ledger.Ledger
	err := r.querier.QueryRow(ctx, query, id).Scan(&l.ID, &l.Description, &l.CreatedBy, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrLedgerNotFound{LedgerID: id}
		}
		r.logger.Error("Failed to get ledger", "ledger_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	return &l, nil
}

// ListEntriesByLedger returns the entries of a ledger in posting order.
func (r *LedgerRepository) ListEntriesByLedger(ctx context.Context, ledgerID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT id, wallet_id, ledger_id, amount, type, created_at
		FROM entries
		WHERE ledger_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, ledgerID)
	if err != nil {
		r.logger.Error("Failed to list entries", "ledger_id", ledgerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.ID, &e.WalletID, &e.LedgerID, &e.Amount, &e.Type, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// FlowTotals buckets entry sums per date_trunc unit and direction. The unit must be
// validated by the caller.
func (r *LedgerRepository) FlowTotals(ctx context.Context, walletIDs []uuid.UUID, unit string, from, to *time.Time) ([]ledger.FlowTotal, error) {
	query := `
		SELECT date_trunc($1, created_at) AS bucket, type, COALESCE(SUM(amount), 0) AS total
		FROM entries
		WHERE wallet_id = ANY($2::uuid[])
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at <= $4)
		GROUP BY bucket, type
		ORDER BY bucket ASC
	`

	ids := make([]string, len(walletIDs))
	for i, id := range walletIDs {
		ids[i] = id.String()
	}

	rows, err := r.querier.Query(ctx, query, unit, ids, from, to)
	if err != nil {
		r.logger.Error("Failed to aggregate flows", "unit", unit, "error", err)
		return nil, fmt.Errorf("failed to aggregate flows: %w", err)
	}
	defer rows.Close()

	var totals []ledger.FlowTotal
	for rows.Next() {
		var ft ledger.FlowTotal
		if err := rows.Scan(&ft.Bucket, &ft.Type, &ft.Total); err != nil {
			return nil, fmt.Errorf("failed to scan flow total: %w", err)
		}
		totals = append(totals, ft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flow totals: %w", err)
	}
	return totals, nil
}
