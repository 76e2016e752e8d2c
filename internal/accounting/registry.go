package accounting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vtu-wallet-ledger/internal/domain/wallet"
)

// PlatformWallets are the counterparties of a posting, locked for the current transaction.
type PlatformWallets struct {
	Liability *wallet.Wallet
	Revenue   *wallet.Wallet
	Profit    *wallet.Wallet
}

// PlatformRegistry provisions the platform wallets. It holds no wallet state of its own;
// postings re-read the wallets under lock through ResolvePlatform.
type PlatformRegistry struct {
	wallets wallet.Repository
	logger  *slog.Logger
}

func NewPlatformRegistry(logger *slog.Logger, wallets wallet.Repository) *PlatformRegistry {
	return &PlatformRegistry{
		wallets: wallets,
		logger:  logger,
	}
}

// Initialize ensures every platform wallet exists. Existing rows, and their balances, are
// left untouched, so it is safe to call from every instance on every start.
func (r *PlatformRegistry) Initialize(ctx context.Context) error {
	for _, name := range wallet.PlatformNames {
		created, err := r.wallets.UpsertPlatform(ctx, wallet.NewPlatformWallet(name))
		if err != nil {
			return fmt.Errorf("failed to initialize platform wallet %s: %w", name, err)
		}
		if created {
			r.logger.Info("Created platform wallet", "name", name, "id", wallet.PlatformID(name).String())
		}
	}

	count, err := r.wallets.CountPlatform(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify platform wallets: %w", err)
	}
	if count != len(wallet.PlatformNames) {
		return fmt.Errorf("expected %d platform wallets, found %d", len(wallet.PlatformNames), count)
	}

	r.logger.Info("Platform wallets ready", "count", count)
	return nil
}

// ResolvePlatform locks the platform wallets in liability, revenue, profit order using
// repo, which must be bound to the caller's transaction. A missing wallet is reported as
// wallet.ErrWalletNotFound.
func ResolvePlatform(ctx context.Context, repo wallet.Repository) (*PlatformWallets, error) {
	locked := make([]*wallet.Wallet, 0, len(wallet.PlatformNames))
	for _, name := range wallet.PlatformNames {
		w, err := repo.LockByName(ctx, name)
		if err != nil {
			return nil, err
		}
		locked = append(locked, w)
	}

	return &PlatformWallets{
		Liability: locked[0],
		Revenue:   locked[1],
		Profit:    locked[2],
	}, nil
}
