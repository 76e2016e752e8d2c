package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/shared"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
)

// Message is an event written in the same database transaction as the state change
// it describes, and relayed later by the event processor.
type Message struct {
	ID            int64               `json:"id"`
	AggregateID   uuid.UUID           `json:"aggregate_id"`
	EventType     string              `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
	LastError     string              `json:"last_error,omitempty"`
}

// NewMessage marshals payload into a pending message.
func NewMessage(eventType string, aggregateID uuid.UUID, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return &Message{
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     raw,
		Status:      shared.OutboxStatusPending,
		CreatedAt:   time.Now(),
	}, nil
}

// NewTransactionRecorded describes the current state of a transaction for the
// history projection.
func NewTransactionRecorded(txn *transaction.Transaction) (*Message, error) {
	return NewMessage(shared.EventTransactionRecorded, txn.ID, history.FromTransaction(txn))
}

// HistoryRecord decodes a transaction.recorded payload.
func (m *Message) HistoryRecord() (*history.Record, error) {
	if m.EventType != shared.EventTransactionRecorded {
		return nil, fmt.Errorf("unexpected event type %q", m.EventType)
	}
	var record history.Record
	if err := json.Unmarshal(m.Payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
