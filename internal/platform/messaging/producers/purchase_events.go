package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/vtu-wallet-ledger/internal/config"
)

// PurchaseEventProducer publishes purchase-completed events for the notification sender.
type PurchaseEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewPurchaseEventProducer ensures the purchase events topic exists and returns a
// synchronous producer for it.
func NewPurchaseEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*PurchaseEventProducer, error) {
	if cfg.PurchaseEventsTopic == "" {
		return nil, fmt.Errorf("kafka purchase events topic is not configured")
	}

	if err := dialAndEnsureTopic(cfg.Brokers, cfg.PurchaseEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure purchase events topic %s: %w", cfg.PurchaseEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.PurchaseEventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &PurchaseEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.PurchaseEventsTopic,
	}, nil
}

// Publish writes value as JSON under key. Keys are transaction IDs, so every event for
// one purchase lands on the same partition.
func (p *PurchaseEventProducer) Publish(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal purchase event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish purchase event", "topic", p.topic, "key", key, "error", err)
		return fmt.Errorf("failed to publish purchase event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published purchase event", "topic", p.topic, "key", key)
	return nil
}

func (p *PurchaseEventProducer) Close() error {
	p.logger.Info("Closing purchase event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
