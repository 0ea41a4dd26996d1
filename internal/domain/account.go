package domain

import (
	"context"
	"time"
)

// Role is the single authorization attribute of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account represents a registered user of the application.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Avatar       *string // URL; nil when no avatar could be resolved
	Role         Role
	Confirmed    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionUser returns the cacheable projection of the account.
func (a *Account) SessionUser() *SessionUser {
	return &SessionUser{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Avatar:   a.Avatar,
		Role:     a.Role,
	}
}

// AccountRepository defines persistence operations for accounts.
// Lookups return ErrNotFound when no row matches. Create returns
// ErrDuplicateUsername or ErrDuplicateEmail on a uniqueness violation.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	MarkConfirmed(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateAvatar(ctx context.Context, id int64, avatar string) error
}
