package auth

import (
	"strings"
	"time"
)

// User is an account record. The password hash stays inside the store and
// service layers; View strips it before anything reaches a caller.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         *string
	Bio          *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserView is the caller-facing projection of a User.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View returns the projection of u that is safe to serialize.
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// RefreshToken ties an opaque bearer string to a user and an absolute expiry.
// A record is valid iff it exists and ExpiresAt is strictly in the future.
type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair carries freshly minted credentials. It is never persisted as a
// unit: the access token is stateless, only the refresh token hits the ledger.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UpdateUserParams lists optional profile fields; nil means "leave unchanged".
type UpdateUserParams struct {
	Email *string
	Name  *string
	Bio   *string
}

// Empty reports whether no field was supplied.
func (p UpdateUserParams) Empty() bool {
	return p.Email == nil && p.Name == nil && p.Bio == nil
}

// Apply merges the supplied fields into u, leaving absent ones untouched.
func (p UpdateUserParams) Apply(u *User) {
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.Name != nil {
		u.Name = p.Name
	}
	if p.Bio != nil {
		u.Bio = p.Bio
	}
}

// NormalizeEmail lower-cases and trims an address so uniqueness checks are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
