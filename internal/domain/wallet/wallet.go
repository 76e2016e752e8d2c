package wallet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Platform wallet names. These are the counterparties of every user-facing posting.
const (
	LiabilityWallet = "PLATFORM_LIABILITY_WALLET"
	RevenueWallet   = "PLATFORM_REVENUE_WALLET"
	ProfitWallet    = "PLATFORM_PROFIT_WALLET"
)

// PlatformNames lists the platform wallets in lock order.
var PlatformNames = []string{LiabilityWallet, RevenueWallet, ProfitWallet}

// platformNamespace seeds the name-based IDs of platform wallets.
var platformNamespace = uuid.MustParse("6f1c3c2e-8a51-4f8e-9a0e-2f6b9b3d7c41")

// Wallet is a named balance holder. UserID is nil for platform wallets.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewUserWallet returns the zero-balance wallet provisioned alongside a user.
func NewUserWallet(userID uuid.UUID) *Wallet {
	now := time.Now()
	owner := userID
	return &Wallet{
		ID:        uuid.New(),
		Name:      UserWalletName(userID),
		UserID:    &owner,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewPlatformWallet returns an unowned wallet with its deterministic ID.
func NewPlatformWallet(name string) *Wallet {
	now := time.Now()
	return &Wallet{
		ID:        PlatformID(name),
		Name:      name,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PlatformID derives the fixed identifier of a platform wallet from its name, so every
// instance that provisions it agrees on the row it is talking about.
func PlatformID(name string) uuid.UUID {
	return uuid.NewSHA1(platformNamespace, []byte(name))
}

// UserWalletName is the unique name given to a user's wallet.
func UserWalletName(userID uuid.UUID) string {
	return fmt.Sprintf("USER_WALLET_%s", userID)
}

// IsPlatform reports whether the wallet belongs to the platform rather than a user.
func (w *Wallet) IsPlatform() bool {
	return w.UserID == nil
}

// CanDebit reports whether a debit of amount would keep the wallet within its floor.
// Platform wallets have no floor.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.IsPlatform() || w.Balance.GreaterThanOrEqual(amount)
}
