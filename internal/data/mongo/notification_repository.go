package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vtu-wallet-ledger/internal/domain/notification"
)

const (
	// NotificationCollectionName is the name of the notification inbox collection in MongoDB
	NotificationCollectionName = "purchase_notifications"
)

// NotificationRepository implements the notification.Repository interface for MongoDB
type NotificationRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewNotificationRepository creates a new MongoDB notification repository
func NewNotificationRepository(logger *slog.Logger, db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *NotificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(NotificationCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "transaction_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}
	return nil
}

// Create queues n. Returns ErrDuplicateNotification if the transaction already has one,
// which makes redelivered purchase events harmless.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	collection := r.db.Collection(NotificationCollectionName)

	existing, err := r.GetByTransactionID(ctx, n.TransactionID)
	if err != nil && !errors.As(err, &notification.ErrNotificationNotFound{}) {
		return fmt.Errorf("failed to check for existing notification: %w", err)
	}
	if existing != nil {
		return notification.ErrDuplicateNotification{TransactionID: n.TransactionID}
	}

	if _, err := collection.InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return notification.ErrDuplicateNotification{TransactionID: n.TransactionID}
		}
		r.logger.Error("Failed to create notification",
			"transaction_id", n.TransactionID,
			"error", err)
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (r *NotificationRepository) GetByTransactionID(ctx context.Context, transactionID string) (*notification.Notification, error) {
	collection := r.db.Collection(NotificationCollectionName)

	var n notification.Notification
	err := collection.FindOne(ctx, bson.M{"transaction_id": transactionID}).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notification.ErrNotificationNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get notification",
			"transaction_id", transactionID,
			"error", err)
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &n, nil
}
