package purchase

import (
	"context"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/vtu-wallet-ledger/internal/domain/shared"
	"github.com/vtu-wallet-ledger/internal/platform/messaging/producers"
	"github.com/vtu-wallet-ledger/internal/platform/metrics"
)

const publishTimeout = 10 * time.Second

// KafkaNotifier publishes purchase-completed events from a bounded worker pool. When the
// pool is saturated the event is dropped and counted rather than queued.
type KafkaNotifier struct {
	pool      *ants.Pool
	publisher producers.MessagePublisher
	logger    *slog.Logger
}

func NewKafkaNotifier(logger *slog.Logger, publisher producers.MessagePublisher, size int) (*KafkaNotifier, error) {
	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &KafkaNotifier{
		pool:      pool,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// PurchaseCompleted hands the event to a worker and returns immediately.
func (n *KafkaNotifier) PurchaseCompleted(ctx context.Context, event *shared.PurchaseCompletedEvent) {
	logger := n.logger
	if event.CorrelationID != "" {
		logger = n.logger.With("correlation_id", event.CorrelationID)
	}

	eventCopy := *event
	err := n.pool.Submit(func() {
		publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := n.publisher.Publish(publishCtx, eventCopy.TransactionID.String(), &eventCopy); err != nil {
			metrics.RecordNotificationDropped()
			logger.Error("Failed to publish purchase completed event",
				"transaction_id", eventCopy.TransactionID.String(),
				"error", err,
			)
		}
	})
	if err != nil {
		metrics.RecordNotificationDropped()
		logger.Warn("Notification pool rejected purchase completed event",
			"transaction_id", event.TransactionID.String(),
			"error", err,
		)
	}
}

// Shutdown waits for in-flight publishes, up to timeout.
func (n *KafkaNotifier) Shutdown(timeout time.Duration) {
	n.logger.Info("Shutting down notification pool", "running_workers", n.pool.Running())
	if err := n.pool.ReleaseTimeout(timeout); err != nil {
		n.logger.Warn("Notification pool did not drain in time", "error", err)
	}
}

func (n *KafkaNotifier) Running() int {
	return n.pool.Running()
}
