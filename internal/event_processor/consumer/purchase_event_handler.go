// Package consumer handles events read from Kafka by the event processor.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vtu-wallet-ledger/internal/domain/notification"
	"github.com/vtu-wallet-ledger/internal/domain/shared"
	"github.com/vtu-wallet-ledger/internal/platform/messaging/producers"
)

var errMissingTransactionID = errors.New("event has no transaction id")

// PurchaseEventHandler stores purchase-completed events in the notification inbox.
type PurchaseEventHandler struct {
	inbox  notification.Repository
	dlq    producers.DeadLetterPublisher
	logger *slog.Logger
}

func NewPurchaseEventHandler(logger *slog.Logger, inbox notification.Repository, dlq producers.DeadLetterPublisher) *PurchaseEventHandler {
	return &PurchaseEventHandler{
		inbox:  inbox,
		dlq:    dlq,
		logger: logger,
	}
}

// HandleMessage queues a notification for one event. Redelivered events are ignored.
// A malformed event goes to the DLQ and is acknowledged; other failures are returned
// so the offset is not committed.
func (h *PurchaseEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.PurchaseCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return h.deadLetter(ctx, key, value, fmt.Errorf("failed to unmarshal purchase event: %w", err))
	}
	if event.TransactionID == uuid.Nil {
		return h.deadLetter(ctx, key, value, errMissingTransactionID)
	}

	logger := h.logger.With("transaction_id", event.TransactionID.String())
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	if err := h.inbox.Create(ctx, notification.FromPurchaseCompleted(&event)); err != nil {
		var dup notification.ErrDuplicateNotification
		if errors.As(err, &dup) {
			logger.Info("Notification already queued")
			return nil
		}
		logger.Error("Failed to queue notification", "error", err)
		return fmt.Errorf("queue notification for %s: %w", event.TransactionID, err)
	}

	logger.Info("Queued purchase notification", "tx_ref", event.TxRef, "recipient", event.Recipient)
	return nil
}

func (h *PurchaseEventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	h.logger.Error("Unprocessable purchase event", "message_key", string(key), "error", cause)
	if h.dlq == nil {
		return cause
	}

	if err := h.dlq.PublishToDLQ(ctx, string(key), value, cause.Error()); err != nil {
		h.logger.Error("Failed to publish to DLQ", "message_key", string(key), "error", err)
		return cause
	}
	return nil
}
