package domain

import (
	"context"
	"time"
)

// SessionUser is the non-authoritative projection of an account kept in the
// session cache and attached to authenticated requests.
type SessionUser struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Avatar   *string `json:"avatar"`
	Role     Role    `json:"role"`
}

// SessionCache stores SessionUser entries keyed by username.
// Get returns ErrCacheMiss when no live entry exists.
type SessionCache interface {
	Get(ctx context.Context, username string) (*SessionUser, error)
	Put(ctx context.Context, username string, user *SessionUser, ttl time.Duration) error
}

// Mailer delivers account emails carrying a signed action token.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, username, token string) error
	SendPasswordReset(ctx context.Context, to, username, token string) error
}
