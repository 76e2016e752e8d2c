package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemActor is recorded as the creator of ledgers the platform opens on its own behalf.
const SystemActor = "SYSTEM"

// EntryType carries the direction of an entry; amounts are always positive.
type EntryType string

const (
	Credit EntryType = "CREDIT"
	Debit  EntryType = "DEBIT"
)

var (
	ErrNonPositiveAmount = errors.New("entry amount must be positive")
	ErrUnknownEntryType  = errors.New("entry type must be CREDIT or DEBIT")
)

// Ledger narrates one business event; every entry of that event points at it.
type Ledger struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Entry is one directional amount posted against one wallet. Entries are append-only.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	WalletID  uuid.UUID       `json:"wallet_id"`
	LedgerID  uuid.UUID       `json:"ledger_id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      EntryType       `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewLedger opens a ledger. An empty createdBy is recorded as SystemActor.
func NewLedger(description, createdBy string) *Ledger {
	if createdBy == "" {
		createdBy = SystemActor
	}
	return &Ledger{
		ID:          uuid.New(),
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
}

// NewEntry validates and builds an entry for the given ledger.
func NewEntry(ledgerID, walletID uuid.UUID, amount decimal.Decimal, entryType EntryType) (*Entry, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if entryType != Credit && entryType != Debit {
		return nil, ErrUnknownEntryType
	}
	return &Entry{
		ID:        uuid.New(),
		WalletID:  walletID,
		LedgerID:  ledgerID,
		Amount:    amount,
		Type:      entryType,
		CreatedAt: time.Now(),
	}, nil
}

// Signed returns the entry's effect on its wallet balance.
func (e *Entry) Signed() decimal.Decimal {
	if e.Type == Debit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Opposite flips the direction of an entry type.
func (t EntryType) Opposite() EntryType {
	if t == Credit {
		return Debit
	}
	return Credit
}

// FlowTotal is one (bucket, direction) aggregate used by inflow/outflow reporting.
type FlowTotal struct {
	Bucket time.Time
	Type   EntryType
	Total  decimal.Decimal
}
