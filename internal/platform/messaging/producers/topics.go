package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

// topicAdmin is the part of kafka.Conn used to inspect and create topics.
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// ensureTopic creates topic when no partitions can be read for it. Partition counts of
// zero fall back to one.
func ensureTopic(admin topicAdmin, topic string, numPartitions, replicationFactor int, backoff time.Duration, log *slog.Logger) error {
	var (
		partitions []kafka.Partition
		err        error
	)
	for attempt := 1; attempt <= topicReadAttempts; attempt++ {
		partitions, err = admin.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", topic, "partitions", len(partitions))
			return nil
		}
		if err == nil {
			break
		}
		log.Warn("Failed to read topic partitions, retrying", "topic", topic, "attempt", attempt, "error", err)
		time.Sleep(backoff)
	}

	cfg := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     max(numPartitions, 1),
		ReplicationFactor: max(replicationFactor, 1),
	}
	log.Info("Creating Kafka topic", "topic", topic, "partitions", cfg.NumPartitions, "replication_factor", cfg.ReplicationFactor)
	if err := admin.CreateTopics(cfg); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	return nil
}

// dialAndEnsureTopic opens a short-lived connection to brokers to ensure topic exists.
func dialAndEnsureTopic(brokers, topic string, numPartitions, replicationFactor int, log *slog.Logger) error {
	conn, err := kafka.Dial("tcp", brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return ensureTopic(conn, topic, numPartitions, replicationFactor, topicReadBackoff, log)
}
