package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines wallet persistence operations. Balance mutations must be
// paired with a ledger entry by the caller within the same transaction.
type Repository interface {
	Create(ctx context.Context, wallet *Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	GetByName(ctx context.Context, name string) (*Wallet, error)

	// LockByUserID and LockByName acquire a row lock held until the enclosing
	// transaction ends.
	LockByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	LockByName(ctx context.Context, name string) (*Wallet, error)

	// Credit and Debit return the balance after the change. Debit refuses to take a
	// user wallet below zero and reports ErrInsufficientFunds.
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)

	// UpsertPlatform creates the wallet if its name is free and never touches an existing row.
	UpsertPlatform(ctx context.Context, wallet *Wallet) (created bool, err error)
	CountPlatform(ctx context.Context) (int, error)
	SumUserBalances(ctx context.Context) (decimal.Decimal, error)
	WithTx(tx pgx.Tx) Repository
}

var ErrInvalidAmount = errors.New("wallet amount must be positive")

// ErrWalletNotFound indicates a missing wallet, looked up by ID, owner or name.
type ErrWalletNotFound struct {
	WalletID uuid.UUID
	UserID   uuid.UUID
	Name     string
}

func (e ErrWalletNotFound) Error() string {
	switch {
	case e.Name != "":
		return "wallet not found: " + e.Name
	case e.UserID != uuid.Nil:
		return "wallet not found for user: " + e.UserID.String()
	default:
		return "wallet not found: " + e.WalletID.String()
	}
}

// Is matches any ErrWalletNotFound when the target carries no identifiers.
func (e ErrWalletNotFound) Is(target error) bool {
	t, ok := target.(ErrWalletNotFound)
	if !ok {
		return false
	}
	if t.WalletID == uuid.Nil && t.UserID == uuid.Nil && t.Name == "" {
		return true
	}
	return e == t
}

// ErrInsufficientFunds is returned when a debit would take a user wallet below zero.
type ErrInsufficientFunds struct {
	WalletID uuid.UUID
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, required %s", e.Balance.StringFixed(2), e.Required.StringFixed(2))
}

// Is matches any ErrInsufficientFunds when the target has no wallet ID.
func (e ErrInsufficientFunds) Is(target error) bool {
	t, ok := target.(ErrInsufficientFunds)
	if !ok {
		return false
	}
	return t.WalletID == uuid.Nil || t.WalletID == e.WalletID
}
