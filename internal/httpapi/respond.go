package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"accountd.org/internal/audit"
)

// Stable machine-readable failure codes exposed to clients.
const (
	codeEmailExists         = "EMAIL_EXISTS"
	codeInvalidCredentials  = "INVALID_CREDENTIALS"
	codeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	codeUserNotFound        = "USER_NOT_FOUND"
	codeNoUpdateFields      = "NO_UPDATE_FIELDS"
	codeTokenMissing        = "TOKEN_MISSING"
	codeTokenExpired        = "TOKEN_EXPIRED"
	codeTokenInvalid        = "TOKEN_INVALID"
	codeValidation          = "VALIDATION_ERROR"
	codeRateLimited         = "RATE_LIMIT_EXCEEDED"
	codeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	codeRouteNotFound       = "ROUTE_NOT_FOUND"
	codeBadRequest          = "BAD_REQUEST"
	codeInternal            = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	body := map[string]any{
		"error": msg,
		"code":  code,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, status, body)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}

// decodeJSON parses the request body strictly: unknown fields and trailing
// content are rejected so client typos fail loudly.
func decodeJSON(r *http.Request, v any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("unexpected trailing content in body")
	}
	return nil
}
