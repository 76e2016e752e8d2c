// Package history is the read model of settled and pending transactions served to
// users. It is projected from the transactional outbox and may lag the ledger.
package history

import (
	"context"
	"time"

	"github.com/vtu-wallet-ledger/internal/domain/transaction"
)

// Record is one transaction as shown in a user's history.
type Record struct {
	TransactionID     string     `json:"transaction_id" bson:"transaction_id"`
	TxRef             string     `json:"tx_ref" bson:"tx_ref"`
	UserID            string     `json:"user_id" bson:"user_id"`
	Amount            string     `json:"amount" bson:"amount"`
	Currency          string     `json:"currency" bson:"currency"`
	Status            string     `json:"status" bson:"status"`
	Channel           string     `json:"channel" bson:"channel"`
	Provider          string     `json:"provider,omitempty" bson:"provider,omitempty"`
	Recipient         string     `json:"recipient,omitempty" bson:"recipient,omitempty"`
	ProviderReference string     `json:"provider_reference,omitempty" bson:"provider_reference,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty" bson:"error_message,omitempty"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// FromTransaction snapshots a transaction for the read model. Amounts are kept as
// fixed-point strings.
func FromTransaction(txn *transaction.Transaction) *Record {
	return &Record{
		TransactionID:     txn.ID.String(),
		TxRef:             txn.TxRef,
		UserID:            txn.UserID.String(),
		Amount:            txn.Amount.StringFixed(2),
		Currency:          txn.Currency,
		Status:            string(txn.Status),
		Channel:           string(txn.Channel),
		Provider:          txn.Provider,
		Recipient:         txn.Recipient,
		ProviderReference: txn.ProviderReference,
		ErrorMessage:      txn.ErrorMessage,
		CreatedAt:         txn.CreatedAt,
		CompletedAt:       txn.CompletedAt,
	}
}

// Repository stores history records. Upsert is keyed by transaction ID, so replays of
// the same outbox message converge.
type Repository interface {
	Upsert(ctx context.Context, record *Record) error
	GetByTransactionID(ctx context.Context, transactionID string) (*Record, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Record, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// ErrRecordNotFound indicates a missing history record
type ErrRecordNotFound struct {
	TransactionID string
}

func (e ErrRecordNotFound) Error() string {
	return "history record not found: " + e.TransactionID
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == "" || e.TransactionID == t.TransactionID
}
