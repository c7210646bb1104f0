package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	issuer := newTestIssuer(t)
	return NewService(store, issuer), store
}

func strptr(s string) *string { return &s }

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "x@y.com", "Passw0rd", strptr("Xi"), strptr("hi"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.User.Email != "x@y.com" {
		t.Fatalf("unexpected email: %s", session.User.Email)
	}
	if session.User.Name == nil || *session.User.Name != "Xi" {
		t.Fatalf("unexpected name: %v", session.User.Name)
	}
	if session.Tokens.AccessToken == "" || session.Tokens.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}

	login, err := svc.Login(ctx, "x@y.com", "Passw0rd")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != session.User.ID {
		t.Fatalf("login returned a different user: %s vs %s", login.User.ID, session.User.ID)
	}
}

func TestLoginUniformFailure(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "x@y.com", "Passw0rd", nil, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Wrong password and unknown account must be indistinguishable.
	if _, err := svc.Login(ctx, "x@y.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@y.com", "Passw0rd"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "x@y.com", "Passw0rd", nil, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "X@Y.COM", "Other123", nil, nil); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "x@y.com", "Passw0rd", nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	tokenA := session.Tokens.RefreshToken

	pair, err := svc.Refresh(ctx, tokenA)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.RefreshToken == tokenA {
		t.Fatal("refresh did not rotate the token")
	}

	// One-time use: the spent token is dead.
	if _, err := svc.Refresh(ctx, tokenA); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for spent token, got %v", err)
	}
	// The replacement still works.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh with rotated token: %v", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshRejectsSignedTokenMissingFromLedger(t *testing.T) {
	svc, _ := newTestService(t)
	issuer := newTestIssuer(t)

	// Correctly signed, never stored: the ledger gate must reject it.
	token, err := issuer.IssueRefreshToken("ghost-user")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshRejectsExpiredLedgerEntry(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "x@y.com", "Passw0rd", nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Signature still verifies; only the stored expiry is in the past.
	store.ExpireToken(session.Tokens.RefreshToken)
	if _, err := svc.Refresh(ctx, session.Tokens.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "x@y.com", "Passw0rd", nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	token := session.Tokens.RefreshToken

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Fatalf("empty Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after logout, got %v", err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "x@y.com", "Passw0rd", nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Second session for the same user.
	login, err := svc.Login(ctx, "x@y.com", "Passw0rd")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if store.TokenCount(session.User.ID) != 2 {
		t.Fatalf("expected 2 ledger records, got %d", store.TokenCount(session.User.ID))
	}

	if err := svc.DeleteAccount(ctx, session.User.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if store.TokenCount(session.User.ID) != 0 {
		t.Fatalf("expected cascade to clear the ledger, got %d records", store.TokenCount(session.User.ID))
	}
	for _, token := range []string{session.Tokens.RefreshToken, login.Tokens.RefreshToken} {
		if _, err := svc.Refresh(ctx, token); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Fatalf("expected ErrInvalidRefreshToken after account deletion, got %v", err)
		}
	}
	if _, err := svc.Profile(ctx, session.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.DeleteAccount(ctx, session.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on double delete, got %v", err)
	}
}

func TestUpdateProfileMergesSuppliedFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "x@y.com", "Passw0rd", strptr("Xi"), nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	view, err := svc.UpdateProfile(ctx, session.User.ID, UpdateUserParams{Bio: strptr("hello")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if view.Email != "x@y.com" {
		t.Fatalf("email changed unexpectedly: %s", view.Email)
	}
	if view.Name == nil || *view.Name != "Xi" {
		t.Fatalf("name changed unexpectedly: %v", view.Name)
	}
	if view.Bio == nil || *view.Bio != "hello" {
		t.Fatalf("bio not updated: %v", view.Bio)
	}

	if _, err := svc.UpdateProfile(ctx, session.User.ID, UpdateUserParams{}); !errors.Is(err, ErrNoUpdateFields) {
		t.Fatalf("expected ErrNoUpdateFields, got %v", err)
	}
}

func TestUpdateProfileEmailCollision(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@y.com", "Passw0rd", nil, nil); err != nil {
		t.Fatalf("Register a: %v", err)
	}
	b, err := svc.Register(ctx, "b@y.com", "Passw0rd", nil, nil)
	if err != nil {
		t.Fatalf("Register b: %v", err)
	}

	if _, err := svc.UpdateProfile(ctx, b.User.ID, UpdateUserParams{Email: strptr("a@y.com")}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	// Re-submitting the own address is not a collision.
	if _, err := svc.UpdateProfile(ctx, b.User.ID, UpdateUserParams{Email: strptr("B@y.com")}); err != nil {
		t.Fatalf("own email resubmission failed: %v", err)
	}
}

func TestSessionPayloadOmitsPasswordHash(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "x@y.com", "Passw0rd", strptr("Xi"), strptr("hi"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	stored, err := store.Find(ctx, session.User.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	if strings.Contains(string(payload), stored.PasswordHash) {
		t.Fatal("session payload leaks the password hash")
	}
	if strings.Contains(string(payload), "password") {
		t.Fatalf("session payload mentions a password field: %s", payload)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := UserIDFromContext(ctx); ok {
		t.Fatal("unexpected user id in empty context")
	}
	ctx = ContextWithUserID(ctx, "user-7")
	id, ok := UserIDFromContext(ctx)
	if !ok || id != "user-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
	if out := ContextWithUserID(context.Background(), "  "); out != context.Background() {
		t.Fatal("blank user id should not be stored")
	}
}
