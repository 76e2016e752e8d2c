// Package outbox_poller relays transactional outbox messages written by the API
// gateway.
package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vtu-wallet-ledger/internal/config"
	"github.com/vtu-wallet-ledger/internal/domain/outbox"
	"github.com/vtu-wallet-ledger/internal/domain/shared"
	"github.com/vtu-wallet-ledger/internal/platform/metrics"
)

// Poller processes pending outbox messages
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        Publisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(logger *slog.Logger, cfg *config.OutboxConfig, outboxRepo outbox.Repository, publisher Publisher) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("Outbox batch failed", "error", err)
			}
		}
	}
}

// ProcessBatch publishes up to one batch of pending messages in id order and returns
// how many succeeded. A failing message is retried on later ticks until it reaches the
// attempt limit; unprocessable messages are parked at once.
func (p *Poller) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	published := 0
	for _, msg := range messages {
		if err := p.publisher.Publish(ctx, msg); err != nil {
			p.handleFailure(ctx, msg, err)
			continue
		}
		published++
	}

	p.logger.Debug("Processed outbox batch", "fetched", len(messages), "published", published)
	return published, nil
}

func (p *Poller) handleFailure(ctx context.Context, msg *outbox.Message, cause error) {
	logger := p.logger.With("outbox_id", msg.ID, "event_type", msg.EventType)
	logger.Error("Failed to publish outbox message", "attempts", msg.Attempts, "error", cause)

	attempts, err := p.outboxRepo.RecordFailure(ctx, msg.ID, cause.Error())
	if err != nil {
		logger.Error("Failed to record outbox failure", "error", err)
		return
	}

	if !errors.Is(cause, ErrUnprocessable) && attempts < p.maxRetryAttempts {
		return
	}

	logger.Warn("Parking outbox message", "attempts", attempts)
	metrics.RecordOutboxPublishFailure(msg.EventType)
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		logger.Error("Failed to mark outbox message FAILED_TO_PUBLISH", "error", err)
	}
}
