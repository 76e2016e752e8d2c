package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/outbox"
	"github.com/vtu-wallet-ledger/internal/domain/shared"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
)

// ErrUnprocessable marks a message that can never be projected. The poller parks it
// instead of retrying.
var ErrUnprocessable = errors.New("unprocessable outbox message")

// Publisher relays one outbox message to its destination.
type Publisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// HistoryPublisher projects transaction.recorded messages into the history read model.
type HistoryPublisher struct {
	outboxRepo  outbox.Repository
	historyRepo history.Repository
	logger      *slog.Logger
}

func NewHistoryPublisher(logger *slog.Logger, outboxRepo outbox.Repository, historyRepo history.Repository) *HistoryPublisher {
	return &HistoryPublisher{
		outboxRepo:  outboxRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// Publish upserts the record and marks the message PROCESSED. A stale PENDING snapshot
// never overwrites a settled one, so a retried message cannot roll history back.
func (p *HistoryPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With("outbox_id", message.ID, "aggregate_id", message.AggregateID.String())

	record, err := message.HistoryRecord()
	if err != nil {
		logger.Error("Failed to decode outbox payload", "event_type", message.EventType, "error", err)
		return fmt.Errorf("%w: outbox %d: %v", ErrUnprocessable, message.ID, err)
	}

	skip, err := p.isStale(ctx, record)
	if err != nil {
		return err
	}
	if skip {
		logger.Info("Skipping stale history snapshot", "transaction_id", record.TransactionID, "status", record.Status)
	} else if err := p.historyRepo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to project transaction %s: %w", record.TransactionID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		return fmt.Errorf("history for %s written, but failed to mark outbox %d as PROCESSED: %w", record.TransactionID, message.ID, err)
	}

	logger.Debug("Projected transaction into history", "transaction_id", record.TransactionID, "status", record.Status)
	return nil
}

func (p *HistoryPublisher) isStale(ctx context.Context, record *history.Record) (bool, error) {
	if record.Status != string(transaction.StatusPending) {
		return false, nil
	}

	existing, err := p.historyRepo.GetByTransactionID(ctx, record.TransactionID)
	if err != nil {
		if errors.Is(err, history.ErrRecordNotFound{}) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read history for %s: %w", record.TransactionID, err)
	}
	return existing.Status != string(transaction.StatusPending), nil
}
