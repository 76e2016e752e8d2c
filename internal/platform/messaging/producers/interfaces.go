package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes JSON encoded values to a single topic.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value any) error
	Close() error
}

// DeadLetterPublisher parks messages that could not be processed.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of kafka.Writer the producers use.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
