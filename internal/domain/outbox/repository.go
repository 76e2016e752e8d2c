package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vtu-wallet-ledger/internal/domain/shared"
)

// Repository stores outbox messages. Create is called on a repository bound to the
// transaction that changes the state the message describes.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	// RecordFailure counts a failed relay attempt, keeps its cause and returns the new
	// attempt count.
	RecordFailure(ctx context.Context, id int64, cause string) (int, error)
	WithTx(tx pgx.Tx) Repository
}

type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("outbox message %d not found", e.ID)
}

func (e ErrMessageNotFound) Is(target error) bool {
	t, ok := target.(ErrMessageNotFound)
	if !ok {
		return false
	}
	return t.ID == 0 || e.ID == t.ID
}
