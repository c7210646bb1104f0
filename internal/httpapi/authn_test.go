package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"accountd.org/internal/auth"
)

func TestProtectedRouteRequiresToken(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rec := doJSON(t, h, http.MethodGet, "/v1/user/profile", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if errorCode(t, rec) != "TOKEN_MISSING" {
		t.Fatalf("unexpected code: %s", rec.Body.String())
	}

	// Malformed scheme counts as missing.
	req := httptest.NewRequest(http.MethodGet, "/v1/user/profile", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", rr.Code)
	}
}

func TestProtectedRouteRejectsInvalidToken(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rec := doJSON(t, h, http.MethodGet, "/v1/user/profile", "", "not-a-jwt")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if errorCode(t, rec) != "TOKEN_INVALID" {
		t.Fatalf("unexpected code: %s", rec.Body.String())
	}

	// Signed with the wrong key.
	other, err := auth.NewIssuer("other-access", "other-refresh")
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, err := other.IssueAccessToken("user-1")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/user/profile", "", token)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "TOKEN_INVALID" {
		t.Fatalf("foreign key token: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRouteReportsExpiry(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	// Same secrets as the API, minted an hour in the past so the 15 minute
	// access window is already over.
	stale, err := auth.NewIssuer("access-secret", "refresh-secret",
		auth.WithIssuerClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, err := stale.IssueAccessToken("user-1")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/v1/user/profile", "", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	if errorCode(t, rec) != "TOKEN_EXPIRED" {
		t.Fatalf("unexpected code: %s", rec.Body.String())
	}
}

func TestRefreshTokenRejectedAsAccessToken(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register",
		`{"email":"x@y.com","password":"Passw0rd!"}`, "")
	_, refresh := sessionTokens(t, rec)

	// The refresh token is a well-formed JWT for the same user, but it is
	// signed with the refresh key and must not open protected routes.
	rec = doJSON(t, h, http.MethodGet, "/v1/user/profile", "", refresh)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "TOKEN_INVALID" {
		t.Fatalf("refresh-as-access: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	for _, path := range []string{"/healthz", "/v1/info", "/v1/auth/login"} {
		if requiresAuth(path) {
			t.Fatalf("%s should be public", path)
		}
	}
	for _, path := range []string{"/v1/user/profile", "/v1/user/account"} {
		if !requiresAuth(path) {
			t.Fatalf("%s should be protected", path)
		}
	}
}
