package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vtu-wallet-ledger/internal/config"
)

// MessageHandler processes one message. Returning an error leaves the offset uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// MessageReader is the subset of kafka.Reader used by KafkaConsumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads the purchase events topic as part of a consumer group.
type KafkaConsumer struct {
	reader       MessageReader
	logger       *slog.Logger
	topic        string
	groupID      string
	fetchBackoff time.Duration
	done         chan struct{}
}

func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset == kafka.LastOffset {
		startOffset = kafka.LastOffset
	}

	return &KafkaConsumer{
		logger:  logger,
		topic:   cfg.PurchaseEventsTopic,
		groupID: cfg.ConsumerGroup,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.PurchaseEventsTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
		fetchBackoff: time.Second,
		done:         make(chan struct{}),
	}
}

// Subscribe starts consuming in the background until ctx is canceled.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)
	go c.run(ctx, handler)
	return nil
}

// Done is closed once the consume loop has exited.
func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	defer close(c.done)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Context canceled, stopping consumer", "topic", c.topic)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.fetchBackoff):
			}
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("Failed to process message, offset not committed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
