// Package config provides the configuration structures shared by the API gateway,
// the event processor and the ledgerctl CLI. Values come from an optional .env file
// and the process environment, and are validated once at startup.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Provider    ProviderConfig
	RateLimit   RateLimitConfig
	Audit       AuditConfig
	Recovery    RecoveryConfig
	Ledger      LedgerConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig contains Kafka configuration for purchase events.
type KafkaConfig struct {
	Brokers             string
	PurchaseEventsTopic string
	NumPartitions       int
	ReplicationFactor   int
	ConsumerGroup       string
	MinBytes            int
	MaxBytes            int
	MaxWait             time.Duration
	StartOffset         int64
	DLQTopic            string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains the plan cache connection settings.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PlanCacheTTL time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig sizes the pool that dispatches purchase notifications.
type WorkerPoolConfig struct {
	Size int
}

// ProviderConfig describes the fulfillment providers purchases are routed to.
type ProviderConfig struct {
	Endpoints map[string]string // provider name -> base URL
	Default   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // outbound requests per second, per provider
	RateBurst int
}

// RateLimitConfig throttles inbound HTTP requests per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	VisitorTTL        time.Duration
}

// AuditConfig controls the periodic balance reconciliation.
type AuditConfig struct {
	Interval time.Duration
}

// RecoveryConfig controls how purchases left PENDING are finished. StaleAfter must
// exceed the provider timeout so in-flight purchases are never touched.
type RecoveryConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

// LedgerConfig contains bookkeeping settings.
type LedgerConfig struct {
	Currency string
}

// validate checks every section and reports all problems at once.
func (c *Config) validate() error {
	var problems []string
	required := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, key+" is required")
		}
	}
	positive := func(key string, ok bool) {
		if !ok {
			problems = append(problems, key+" must be greater than 0")
		}
	}

	positive("SERVER_PORT", c.Server.Port > 0)
	positive("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout > 0)
	positive("SERVER_READ_TIMEOUT", c.Server.ReadTimeout > 0)
	positive("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout > 0)
	positive("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout > 0)

	required("KAFKA_BROKERS", c.Kafka.Brokers)
	required("KAFKA_PURCHASE_EVENTS_TOPIC", c.Kafka.PurchaseEventsTopic)
	required("KAFKA_CONSUMER_GROUP", c.Kafka.ConsumerGroup)
	required("KAFKA_DLQ_TOPIC", c.Kafka.DLQTopic)
	positive("KAFKA_CONSUMER_MIN_BYTES", c.Kafka.MinBytes > 0)
	positive("KAFKA_CONSUMER_MAX_BYTES", c.Kafka.MaxBytes > 0)
	positive("KAFKA_CONSUMER_MAX_WAIT", c.Kafka.MaxWait > 0)

	required("POSTGRES_URL", c.Postgres.URL)
	positive("POSTGRES_MAX_CONNS", c.Postgres.MaxConns > 0)
	positive("POSTGRES_MIN_CONNS", c.Postgres.MinConns > 0)
	positive("POSTGRES_MAX_CONN_LIFETIME", c.Postgres.ConnMaxLifetime > 0)
	positive("POSTGRES_MAX_CONN_IDLE_TIME", c.Postgres.ConnMaxIdleTime > 0)

	required("MONGO_URI", c.MongoDB.URI)
	required("MONGO_DATABASE", c.MongoDB.Database)
	positive("MONGO_TIMEOUT", c.MongoDB.Timeout > 0)
	positive("MONGO_MAX_POOL_SIZE", c.MongoDB.MaxPoolSize > 0)
	positive("MONGO_MAX_CONN_IDLE_TIME", c.MongoDB.MaxConnIdleTime > 0)

	required("REDIS_ADDR", c.Redis.Addr)
	positive("REDIS_PLAN_CACHE_TTL", c.Redis.PlanCacheTTL > 0)

	positive("OUTBOX_POLLING_INTERVAL", c.Outbox.PollingInterval > 0)
	positive("OUTBOX_BATCH_SIZE", c.Outbox.BatchSize > 0)
	positive("OUTBOX_MAX_RETRY_ATTEMPTS", c.Outbox.MaxRetryAttempts > 0)

	positive("WORKER_POOL_SIZE", c.WorkerPool.Size > 0)

	required("PROVIDER_DEFAULT", c.Provider.Default)
	positive("PROVIDER_TIMEOUT", c.Provider.Timeout > 0)
	positive("PROVIDER_RATE_LIMIT", c.Provider.RateLimit > 0)
	positive("PROVIDER_RATE_BURST", c.Provider.RateBurst > 0)
	if _, ok := c.Provider.Endpoints[c.Provider.Default]; c.Provider.Default != "" && !ok {
		problems = append(problems, fmt.Sprintf("PROVIDER_ENDPOINTS has no entry for default provider %q", c.Provider.Default))
	}

	positive("RATE_LIMIT_RPS", c.RateLimit.RequestsPerSecond > 0)
	positive("RATE_LIMIT_BURST", c.RateLimit.Burst > 0)
	positive("RATE_LIMIT_VISITOR_TTL", c.RateLimit.VisitorTTL > 0)

	positive("AUDIT_INTERVAL", c.Audit.Interval > 0)
	positive("RECOVERY_INTERVAL", c.Recovery.Interval > 0)
	positive("RECOVERY_BATCH_SIZE", c.Recovery.BatchSize > 0)
	if c.Recovery.StaleAfter <= c.Provider.Timeout {
		problems = append(problems, "RECOVERY_STALE_AFTER must be greater than PROVIDER_TIMEOUT")
	}
	required("LEDGER_CURRENCY", c.Ledger.Currency)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, ", "))
	}
	return nil
}
