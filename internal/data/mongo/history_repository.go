package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vtu-wallet-ledger/internal/domain/history"
)

const (
	// HistoryCollectionName is the name of the transaction history collection in MongoDB
	HistoryCollectionName = "transaction_history"
)

// HistoryRepository implements the history.Repository interface for MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique transaction index and the per-user listing index.
func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(HistoryCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	return nil
}

// Upsert replaces the stored snapshot of a transaction with record.
func (r *HistoryRepository) Upsert(ctx context.Context, record *history.Record) error {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"transaction_id": record.TransactionID}
	update := bson.M{"$set": record}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert history record",
			"transaction_id", record.TransactionID,
			"error", err)
		return fmt.Errorf("failed to upsert history record: %w", err)
	}

	return nil
}

func (r *HistoryRepository) GetByTransactionID(ctx context.Context, transactionID string) (*history.Record, error) {
	collection := r.db.Collection(HistoryCollectionName)

	var record history.Record
	err := collection.FindOne(ctx, bson.M{"transaction_id": transactionID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, history.ErrRecordNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get history record",
			"transaction_id", transactionID,
			"error", err)
		return nil, fmt.Errorf("failed to get history record: %w", err)
	}

	return &record, nil
}

// ListByUser returns a page of the user's history, newest first.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*history.Record, error) {
	collection := r.db.Collection(HistoryCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		r.logger.Error("Failed to list history records",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to list history records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*history.Record, 0)
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode history records",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to decode history records: %w", err)
	}

	return records, nil
}

func (r *HistoryRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	count, err := r.db.Collection(HistoryCollectionName).CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error("Failed to count history records",
			"user_id", userID,
			"error", err)
		return 0, fmt.Errorf("failed to count history records: %w", err)
	}
	return count, nil
}
