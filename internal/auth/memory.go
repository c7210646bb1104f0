package auth

import (
	"context"
	"sync"
	"time"

	"accountd.org/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store used by tests and the smoke tooling.
// A single mutex serializes every operation, which makes Rotate atomic by
// construction.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]*User         // by id
	byEmail map[string]string        // normalized email -> id
	tokens  map[string]*RefreshToken // by token string

	// Now is the clock consulted for expiry checks; tests may replace it.
	Now func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]*RefreshToken),
		Now:     time.Now,
	}
}

func (s *MemoryStore) Users() UserStore                 { return s }
func (s *MemoryStore) RefreshTokens() RefreshTokenStore { return s }

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = NormalizeEmail(u.Email)
	if _, exists := s.byEmail[u.Email]; exists {
		return ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := s.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, params UpdateUserParams) (*User, error) {
	if params.Empty() {
		return nil, ErrNoUpdateFields
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if params.Email != nil {
		email := NormalizeEmail(*params.Email)
		if otherID, exists := s.byEmail[email]; exists && otherID != id {
			return nil, ErrDuplicateEmail
		}
		delete(s.byEmail, u.Email)
		s.byEmail[email] = id
	}
	params.Apply(u)
	u.UpdatedAt = s.Now().UTC()
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false, nil
	}
	delete(s.byEmail, u.Email)
	delete(s.users, id)
	// Cascade: drop every token the user owns.
	for token, rec := range s.tokens {
		if rec.UserID == id {
			delete(s.tokens, token)
		}
	}
	return true, nil
}

func (s *MemoryStore) Insert(_ context.Context, token, userID string, expiresAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(token, userID, expiresAt)
}

func (s *MemoryStore) insertLocked(token, userID string, expiresAt time.Time) (string, error) {
	if _, exists := s.tokens[token]; exists {
		return "", ErrDuplicateToken
	}
	rec := &RefreshToken{
		ID:        ids.New(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.Now().UTC(),
	}
	s.tokens[token] = rec
	return rec.ID, nil
}

func (s *MemoryStore) IsValid(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok {
		return false, nil
	}
	return rec.ExpiresAt.After(s.Now()), nil
}

func (s *MemoryStore) Remove(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return 0, nil
	}
	delete(s.tokens, token)
	return 1, nil
}

func (s *MemoryStore) Rotate(_ context.Context, old, next, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[old]
	if !ok || !rec.ExpiresAt.After(s.Now()) {
		return ErrInvalidRefreshToken
	}
	delete(s.tokens, old)
	_, err := s.insertLocked(next, userID, expiresAt)
	return err
}

// ExpireToken backdates a stored token's expiry. Test helper.
func (s *MemoryStore) ExpireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.tokens[token]; ok {
		rec.ExpiresAt = s.Now().Add(-time.Minute)
	}
}

// TokenCount reports the number of ledger records for a user. Test helper.
func (s *MemoryStore) TokenCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.tokens {
		if rec.UserID == userID {
			n++
		}
	}
	return n
}
