package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Service orchestrates register, login, refresh and logout over the stores
// and the token issuer. It holds no storage of its own; all state lives in
// the Store, so independent requests never share in-process mutable state.
type Service struct {
	store  Store
	issuer *Issuer
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service around a store and a token issuer.
func NewService(store Store, issuer *Issuer, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is the success payload of Register and Login. User never carries
// the password hash.
type Session struct {
	User   UserView  `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// Register creates an account and opens a session for it.
func (s *Service) Register(ctx context.Context, email, password string, name, bio *string) (*Session, error) {
	email = NormalizeEmail(email)
	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Bio:          bio,
	}
	// The unique constraint still backs the pre-check: two concurrent
	// registrations of one email race, and the loser maps to the same error.
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}

	tokens, err := s.mint(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u.View(), Tokens: tokens}, nil
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.Users().FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.mint(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u.View(), Tokens: tokens}, nil
}

// Refresh exchanges a live refresh token for a new pair. Two independent
// gates must both pass: the ledger record must exist unexpired, and the
// signature must verify against the refresh key. The old token is retired in
// the same atomic step that records the new one, so a token refreshes at
// most once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ok, err := s.store.RefreshTokens().IsValid(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidRefreshToken
	}
	userID, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	access, err := s.issuer.IssueAccessToken(userID)
	if err != nil {
		return nil, err
	}
	next, err := s.issuer.IssueRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.issuer.RefreshTTL())
	if err := s.store.RefreshTokens().Rotate(ctx, refreshToken, next, userID, expiresAt); err != nil {
		// A concurrent refresh spent the token first; the caller must
		// re-authenticate.
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// Logout retires a refresh token. It succeeds whether or not the token was
// present, and an empty token is a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	_, err := s.store.RefreshTokens().Remove(ctx, refreshToken)
	return err
}

// Authenticate verifies an access token and returns the bearer's user id.
// Stateless: no ledger lookup.
func (s *Service) Authenticate(token string) (string, error) {
	return s.issuer.VerifyAccessToken(token)
}

// Profile returns the caller's account view.
func (s *Service) Profile(ctx context.Context, userID string) (*UserView, error) {
	u, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := u.View()
	return &view, nil
}

// UpdateProfile writes the supplied fields only.
func (s *Service) UpdateProfile(ctx context.Context, userID string, params UpdateUserParams) (*UserView, error) {
	if params.Empty() {
		return nil, ErrNoUpdateFields
	}
	u, err := s.store.Users().Update(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	view := u.View()
	return &view, nil
}

// DeleteAccount removes the user and, by cascade, every refresh token the
// user owns: any outstanding session dies with the account.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	ok, err := s.store.Users().Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) mint(ctx context.Context, userID string) (TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.issuer.IssueRefreshToken(userID)
	if err != nil {
		return TokenPair{}, err
	}
	expiresAt := s.now().Add(s.issuer.RefreshTTL())
	if _, err := s.store.RefreshTokens().Insert(ctx, refresh, userID, expiresAt); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
