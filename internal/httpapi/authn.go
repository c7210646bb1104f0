package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"accountd.org/internal/auth"
)

// protectedPrefixes lists the route space that requires a bearer token.
// Everything else on the mux is public.
var protectedPrefixes = []string{"/v1/user/"}

func requiresAuth(path string) bool {
	for _, p := range protectedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// withAuth validates the Authorization header on protected routes and puts
// the authenticated user id into the request context. Access tokens are
// checked statelessly: signature and expiry only, no ledger lookup.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requiresAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractBearerToken(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, codeTokenMissing, "access token required")
			return
		}
		userID, err := a.svc.Authenticate(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				writeError(w, r, http.StatusUnauthorized, codeTokenExpired, "access token expired")
				return
			}
			writeError(w, r, http.StatusForbidden, codeTokenInvalid, "access token invalid")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithUserID(r.Context(), userID)))
	})
}

func extractBearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
