package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vtu-wallet-ledger/internal/domain/user"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(logger *slog.Logger, db *persistence.PostgresDB) user.Repository {
	return &UserRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *UserRepository) WithTx(tx pgx.Tx) user.Repository {
	return &UserRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, full_name, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query, u.ID, u.FullName, u.Email, string(u.Role), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if persistence.IsUniqueViolation(err, "users_email_key") {
			return user.ErrDuplicateEmail{Email: u.Email}
		}
		r.logger.Error("Failed to create user", "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `
		SELECT id, full_name, email, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u user.User
	err := r.querier.QueryRow(ctx, query, id).Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{UserID: id}
		}
		r.logger.Error("Failed to get user", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
