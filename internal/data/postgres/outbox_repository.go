package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vtu-wallet-ledger/internal/domain/outbox"
	"github.com/vtu-wallet-ledger/internal/domain/shared"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

// maxLastErrorLen bounds the failure cause kept on a message row.
const maxLastErrorLen = 1024

type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to tx so the message commits with the state change it describes.
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new message and sets its generated ID.
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO event_outbox (aggregate_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.AggregateID,
		message.EventType,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to enqueue outbox message",
			"aggregate_id", message.AggregateID.String(),
			"event_type", message.EventType,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

// GetPending returns up to limit pending messages in insertion order, so the history
// projection sees a transaction's PENDING record before its terminal one.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, status, attempts, last_error, created_at, last_attempt_at
		FROM event_outbox
		WHERE status = $1
		ORDER BY id ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to query pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		var m outbox.Message
		if err := rows.Scan(
			&m.ID,
			&m.AggregateID,
			&m.EventType,
			&m.Payload,
			&m.Status,
			&m.Attempts,
			&m.LastError,
			&m.CreatedAt,
			&m.LastAttemptAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	query := `UPDATE event_outbox SET status = $1, last_attempt_at = $2 WHERE id = $3`

	tag, err := r.querier.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox status", "id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, cause string) (int, error) {
	if len(cause) > maxLastErrorLen {
		cause = cause[:maxLastErrorLen]
	}
	query := `
		UPDATE event_outbox
		SET attempts = attempts + 1, last_error = $1, last_attempt_at = $2
		WHERE id = $3
		RETURNING attempts
	`

	var attempts int
	if err := r.querier.QueryRow(ctx, query, cause, time.Now(), id).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, outbox.ErrMessageNotFound{ID: id}
		}
		r.logger.Error("Failed to record outbox failure", "id", id, "error", err)
		return 0, fmt.Errorf("failed to record outbox message failure: %w", err)
	}
	return attempts, nil
}
