package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vtu-wallet-ledger/internal/domain/user"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	db      persistence.TxExecutor
	users   user.Repository
	wallets wallet.Repository
	logger  *slog.Logger
}

func NewUserService(logger *slog.Logger, db persistence.TxExecutor, users user.Repository, wallets wallet.Repository) UserService {
	return &UserServiceImpl{
		db:      db,
		users:   users,
		wallets: wallets,
		logger:  logger,
	}
}

// CreateUser validates the input and writes the user and its wallet in one transaction.
func (s *UserServiceImpl) CreateUser(ctx context.Context, fullName, email string, role user.Role) (*user.User, *wallet.Wallet, error) {
	u, err := user.NewUser(fullName, email, role)
	if err != nil {
		return nil, nil, err
	}
	w := wallet.NewUserWallet(u.ID)

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.users.WithTx(tx).Create(ctx, u); err != nil {
			return err
		}
		return s.wallets.WithTx(tx).Create(ctx, w)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User created", "user_id", u.ID.String(), "wallet_id", w.ID.String(), "role", string(u.Role))
	return u, w, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, id)
}
