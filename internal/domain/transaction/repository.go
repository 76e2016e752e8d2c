package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows admin listings. Zero values mean "any".
type Filter struct {
	UserID *uuid.UUID
	Status Status
	From   *time.Time
	To     *time.Time
	Skip   int
	Take   int
}

// Repository defines transaction persistence operations
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByTxRef(ctx context.Context, txRef string) (*Transaction, error)

	// AttachLedger links the ledger that posted the transaction's money movement.
	AttachLedger(ctx context.Context, id, ledgerID uuid.UUID) error

	// Settle writes the terminal state of a transaction. It only applies to rows that are
	// still PENDING and reports ErrInvalidTransition otherwise.
	Settle(ctx context.Context, txn *Transaction) error

	// RecordProviderReference stores the provider's acknowledgement on a PENDING row so a
	// delivered purchase can be settled as SUCCESS even if the settle step never ran.
	RecordProviderReference(ctx context.Context, id uuid.UUID, reference string) error

	// ListStalePending returns up to limit PENDING rows of a channel created before the
	// cutoff, oldest first.
	ListStalePending(ctx context.Context, channel Channel, before time.Time, limit int) ([]*Transaction, error)
	List(ctx context.Context, filter Filter) ([]*Transaction, int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing transaction, by ID or reference.
type ErrTransactionNotFound struct {
	ID    uuid.UUID
	TxRef string
}

func (e ErrTransactionNotFound) Error() string {
	if e.TxRef != "" {
		return "transaction not found: " + e.TxRef
	}
	return "transaction not found: " + e.ID.String()
}

// Is matches any ErrTransactionNotFound when the target has no identifiers.
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil && t.TxRef == "" {
		return true
	}
	return e == t
}

// ErrDuplicateTxRef indicates the unique reference is already taken.
type ErrDuplicateTxRef struct {
	TxRef string
}

func (e ErrDuplicateTxRef) Error() string {
	return "duplicate transaction reference: " + e.TxRef
}

// Is matches any ErrDuplicateTxRef when the target has no reference.
func (e ErrDuplicateTxRef) Is(target error) bool {
	t, ok := target.(ErrDuplicateTxRef)
	if !ok {
		return false
	}
	return t.TxRef == "" || t.TxRef == e.TxRef
}
