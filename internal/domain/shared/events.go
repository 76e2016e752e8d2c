package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types written to the outbox and the event bus.
const (
	EventTransactionRecorded = "transaction.recorded"
	EventPurchaseCompleted   = "purchase.completed"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// PurchaseCompletedEvent is published after a purchase is fulfilled. It carries what
// a notification sender needs without further lookups.
type PurchaseCompletedEvent struct {
	TransactionID     uuid.UUID       `json:"transaction_id"`
	TxRef             string          `json:"tx_ref"`
	UserID            uuid.UUID       `json:"user_id"`
	Email             string          `json:"email"`
	FullName          string          `json:"full_name"`
	Network           string          `json:"network"`
	PlanType          string          `json:"plan_type"`
	PlanSize          string          `json:"plan_size"`
	Recipient         string          `json:"recipient"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	ProviderReference string          `json:"provider_reference"`
	CorrelationID     string          `json:"correlation_id,omitempty"`
	CompletedAt       time.Time       `json:"completed_at"`
}
