package notification

import (
	"context"
	"time"

	"github.com/vtu-wallet-ledger/internal/domain/shared"
)

// StatusQueued marks a notification waiting for the external sender.
const StatusQueued = "QUEUED"

// Notification is an inbox item for the email/chat sender, built from a
// purchase-completed event.
type Notification struct {
	TransactionID string    `json:"transaction_id" bson:"transaction_id"`
	UserID        string    `json:"user_id" bson:"user_id"`
	Email         string    `json:"email" bson:"email"`
	FullName      string    `json:"full_name" bson:"full_name"`
	Subject       string    `json:"subject" bson:"subject"`
	Network       string    `json:"network" bson:"network"`
	PlanType      string    `json:"plan_type" bson:"plan_type"`
	PlanSize      string    `json:"plan_size" bson:"plan_size"`
	Recipient     string    `json:"recipient" bson:"recipient"`
	Amount        string    `json:"amount" bson:"amount"`
	Currency      string    `json:"currency" bson:"currency"`
	Reference     string    `json:"reference" bson:"reference"`
	TxRef         string    `json:"tx_ref" bson:"tx_ref"`
	Status        string    `json:"status" bson:"status"`
	ReceivedAt    time.Time `json:"received_at" bson:"received_at"`
}

// FromPurchaseCompleted builds the queued notification for a fulfilled purchase.
func FromPurchaseCompleted(event *shared.PurchaseCompletedEvent) *Notification {
	return &Notification{
		TransactionID: event.TransactionID.String(),
		UserID:        event.UserID.String(),
		Email:         event.Email,
		FullName:      event.FullName,
		Subject:       "Data Purchase Successful",
		Network:       event.Network,
		PlanType:      event.PlanType,
		PlanSize:      event.PlanSize,
		Recipient:     event.Recipient,
		Amount:        event.Amount.StringFixed(2),
		Currency:      event.Currency,
		Reference:     event.ProviderReference,
		TxRef:         event.TxRef,
		Status:        StatusQueued,
		ReceivedAt:    time.Now(),
	}
}

// Repository is the notification inbox.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByTransactionID(ctx context.Context, transactionID string) (*Notification, error)
}

// ErrDuplicateNotification is returned when the transaction already has a notification.
type ErrDuplicateNotification struct {
	TransactionID string
}

func (e ErrDuplicateNotification) Error() string {
	return "notification already queued for transaction: " + e.TransactionID
}

// ErrNotificationNotFound indicates a missing notification
type ErrNotificationNotFound struct {
	TransactionID string
}

func (e ErrNotificationNotFound) Error() string {
	return "notification not found: " + e.TransactionID
}
