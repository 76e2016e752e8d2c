package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vtu-wallet-ledger/internal/config"
)

// ErrDLQDisabled is returned when no DLQ topic is configured.
var ErrDLQDisabled = errors.New("DLQ producer not initialized")

type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	dlqTopic string
}

// deadLetter wraps the original message with the reason it was parked.
type deadLetter struct {
	OriginalKey   string `json:"original_key"`
	OriginalValue string `json:"original_value"`
	DLQReason     string `json:"dlq_reason"`
	Timestamp     string `json:"timestamp"`
}

// NewDLQProducer returns a nil producer, and no error, when cfg.DLQTopic is empty.
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, dead-lettering disabled")
		return nil, nil
	}

	if err := dialAndEnsureTopic(cfg.Brokers, cfg.DLQTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s: %w", cfg.DLQTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &DLQProducer{
		logger:   logger,
		writer:   writer,
		dlqTopic: cfg.DLQTopic,
	}, nil
}

func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	value, err := json.Marshal(deadLetter{
		OriginalKey:   key,
		OriginalValue: string(originalMessageValue),
		DLQReason:     reason,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "dlq-reason", Value: []byte(reason)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message to DLQ", "topic", p.dlqTopic, "key", key, "error", err)
		return fmt.Errorf("failed to publish message to DLQ %s: %w", p.dlqTopic, err)
	}

	p.logger.Info("Published message to DLQ", "topic", p.dlqTopic, "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close DLQ writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
