package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists ledgers and entries. There are deliberately no update or
// delete operations.
type Repository interface {
	OpenLedger(ctx context.Context, ledger *Ledger) error
	RecordEntry(ctx context.Context, entry *Entry) error
	GetLedger(ctx context.Context, id uuid.UUID) (*Ledger, error)
	ListEntriesByLedger(ctx context.Context, ledgerID uuid.UUID) ([]*Entry, error)

	// FlowTotals sums entry amounts per truncated time bucket and direction for the
	// given wallets. unit is a date_trunc field; from/to are optional bounds.
	FlowTotals(ctx context.Context, walletIDs []uuid.UUID, unit string, from, to *time.Time) ([]FlowTotal, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrLedgerNotFound indicates a missing ledger
type ErrLedgerNotFound struct {
	LedgerID uuid.UUID
}

func (e ErrLedgerNotFound) Error() string {
	return "ledger not found: " + e.LedgerID.String()
}

// Is implements the errors.Is interface for ErrLedgerNotFound
func (e ErrLedgerNotFound) Is(target error) bool {
	t, ok := target.(ErrLedgerNotFound)
	if !ok {
		return false
	}
	return t.LedgerID == uuid.Nil || e.LedgerID == t.LedgerID
}
