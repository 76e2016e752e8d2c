package purchase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vtu-wallet-ledger/internal/accounting"
	"github.com/vtu-wallet-ledger/internal/domain/outbox"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/platform/metrics"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

// ReasonUnconfirmed is stored on purchases the recovery sweep refunds.
const ReasonUnconfirmed = "provider did not confirm delivery, amount refunded"

const (
	recoveredSettled  = "settled"
	recoveredRefunded = "refunded"
	recoveredFailed   = "failed"
)

type RecoveryConfig struct {
	Interval time.Duration
	// StaleAfter is how old a PENDING purchase must be before it is touched. It has to
	// exceed the provider timeout.
	StaleAfter time.Duration
	BatchSize  int
}

// RecoverySummary counts what one sweep did. Skipped rows were settled by someone else
// between the listing and the settle.
type RecoverySummary struct {
	Settled  int
	Refunded int
	Skipped  int
	Failed   int
}

// Recovery finishes purchases left PENDING after their provider call. A row with a
// recorded provider reference was delivered and is settled as SUCCESS. Any other row is
// refunded and settled as FAILED. Both run under the PENDING guard of Settle, so a row
// settled concurrently rolls back instead of being refunded twice.
type Recovery struct {
	db           persistence.TxExecutor
	poster       Poster
	transactions transaction.Repository
	outbox       outbox.Repository
	cfg          RecoveryConfig
	logger       *slog.Logger
	now          func() time.Time
}

// NewRecovery creates a sweep that refunds through poster.
func NewRecovery(
	logger *slog.Logger,
	db persistence.TxExecutor,
	poster Poster,
	transactions transaction.Repository,
	outboxRepo outbox.Repository,
	cfg RecoveryConfig,
) *Recovery {
	return &Recovery{
		db:           db,
		poster:       poster,
		transactions: transactions,
		outbox:       outboxRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (r *Recovery) Run(ctx context.Context) {
	r.logger.Info("Starting purchase recovery",
		"interval", r.cfg.Interval.String(),
		"stale_after", r.cfg.StaleAfter.String(),
	)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Purchase recovery stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Recovery) sweep(ctx context.Context) {
	summary, err := r.ResolveStale(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("Purchase recovery sweep failed", "error", err)
		}
		return
	}
	if summary.Settled+summary.Refunded+summary.Failed > 0 {
		r.logger.Info("Purchase recovery sweep finished",
			"settled", summary.Settled,
			"refunded", summary.Refunded,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
		)
	}
}

// ResolveStale finishes one batch of stale PENDING purchases. A purchase that cannot be
// finished is counted as failed and retried on the next sweep.
func (r *Recovery) ResolveStale(ctx context.Context) (*RecoverySummary, error) {
	cutoff := r.now().Add(-r.cfg.StaleAfter)
	stale, err := r.transactions.ListStalePending(ctx, transaction.ChannelDataPurchase, cutoff, r.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	summary := &RecoverySummary{}
	for _, txn := range stale {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := r.resolve(ctx, txn)
		switch {
		case errors.Is(err, transaction.ErrInvalidTransition):
			summary.Skipped++
			continue
		case err != nil:
			summary.Failed++
			outcome = recoveredFailed
			r.logger.Error("Failed to recover purchase",
				"transaction_id", txn.ID.String(),
				"tx_ref", txn.TxRef,
				"error", err,
			)
		case outcome == recoveredSettled:
			summary.Settled++
		default:
			summary.Refunded++
		}
		metrics.RecordPurchaseRecovered(outcome)
	}
	return summary, nil
}

func (r *Recovery) resolve(ctx context.Context, txn *transaction.Transaction) (string, error) {
	logger := r.logger.With("transaction_id", txn.ID.String(), "tx_ref", txn.TxRef)

	if txn.ProviderReference != "" {
		if err := txn.Complete(txn.ProviderReference); err != nil {
			return "", err
		}
		err := r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if err := r.transactions.WithTx(tx).Settle(ctx, txn); err != nil {
				return err
			}
			return enqueue(ctx, r.outbox.WithTx(tx), txn)
		})
		if err != nil {
			return "", err
		}
		logger.Info("Recovered delivered purchase", "provider_reference", txn.ProviderReference)
		return recoveredSettled, nil
	}

	if err := txn.Fail(ReasonUnconfirmed); err != nil {
		return "", err
	}
	sale := accounting.Sale{
		UserID:      txn.UserID,
		Gross:       txn.Amount,
		Cost:        txn.Cost,
		Description: "Refund: unconfirmed purchase " + txn.TxRef,
		CreatedBy:   txn.UserID.String(),
	}

	var refund *accounting.Posting
	err := r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		refund, err = r.poster.RecordRefund(ctx, tx, sale)
		if err != nil {
			return err
		}
		txn.RefundLedgerID = &refund.LedgerID
		if err := r.transactions.WithTx(tx).Settle(ctx, txn); err != nil {
			return err
		}
		return enqueue(ctx, r.outbox.WithTx(tx), txn)
	})
	if err != nil {
		return "", err
	}
	refund.ObserveCommitted()
	logger.Warn("Refunded unconfirmed purchase", "amount", txn.Amount.String(), "ledger_id", refund.LedgerID.String())
	return recoveredRefunded, nil
}
