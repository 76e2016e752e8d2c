package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Role decides which price a user pays.
type Role string

const (
	RoleUser     Role = "user"
	RoleReseller Role = "reseller"
	RoleAdmin    Role = "admin"
)

var (
	ErrEmptyName    = errors.New("full name cannot be empty")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidRole  = errors.New("role must be user, reseller or admin")
)

type User struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser validates the input and returns a user ready to be persisted.
func NewUser(fullName, email string, role Role) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrEmptyName
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, ErrInvalidEmail
	}
	if role == "" {
		role = RoleUser
	}
	if role != RoleUser && role != RoleReseller && role != RoleAdmin {
		return nil, ErrInvalidRole
	}

	now := time.Now()
	return &User{
		ID:        uuid.New(),
		FullName:  fullName,
		Email:     strings.ToLower(addr.Address),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsReseller reports whether the user buys at reseller prices.
func (u *User) IsReseller() bool {
	return u.Role == RoleReseller
}

// Repository defines user persistence operations
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrUserNotFound indicates a missing user
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e ErrUserNotFound) Error() string {
	return "user not found: " + e.UserID.String()
}

// Is implements the errors.Is interface for ErrUserNotFound
func (e ErrUserNotFound) Is(target error) bool {
	t, ok := target.(ErrUserNotFound)
	if !ok {
		return false
	}
	return t.UserID == uuid.Nil || e.UserID == t.UserID
}

// ErrDuplicateEmail indicates email uniqueness violation
type ErrDuplicateEmail struct {
	Email string
}

func (e ErrDuplicateEmail) Error() string {
	return "user with email already exists: " + e.Email
}
