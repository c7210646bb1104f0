package auth

import (
	"context"
	"time"
)

// Store bundles the persistence surfaces the auth subsystem needs.
type Store interface {
	Users() UserStore
	RefreshTokens() RefreshTokenStore
}

// UserStore owns user rows exclusively.
type UserStore interface {
	// Create inserts a new user; ErrDuplicateEmail on an email collision.
	Create(ctx context.Context, u *User) error
	// Find returns the user by id; ErrUserNotFound when absent.
	Find(ctx context.Context, id string) (*User, error)
	// FindByEmail returns the user by normalized email; ErrUserNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Update writes only the supplied fields and touches updated_at.
	// ErrUserNotFound, ErrDuplicateEmail and ErrNoUpdateFields apply.
	Update(ctx context.Context, id string, params UpdateUserParams) (*User, error)
	// Delete removes the user and, through the schema's cascade, every
	// refresh token the user owns. Returns false when the id is absent.
	Delete(ctx context.Context, id string) (bool, error)
}

// RefreshTokenStore owns the refresh-token ledger exclusively.
type RefreshTokenStore interface {
	// Insert records a token with its absolute expiry; ErrDuplicateToken on
	// a token-string collision. Returns the record id.
	Insert(ctx context.Context, token, userID string, expiresAt time.Time) (string, error)
	// IsValid reports whether a record with this exact token string exists
	// and its expiry is strictly in the future.
	IsValid(ctx context.Context, token string) (bool, error)
	// Remove deletes the record if present. Idempotent: removing an absent
	// token returns 0, not an error.
	Remove(ctx context.Context, token string) (int64, error)
	// Rotate retires old and records next in one atomic step. When old is
	// absent or expired the rotation fails with ErrInvalidRefreshToken, so
	// of two concurrent callers presenting the same token at most one wins.
	Rotate(ctx context.Context, old, next, userID string, expiresAt time.Time) error
}
