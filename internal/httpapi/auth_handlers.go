package httpapi

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"accountd.org/internal/audit"
	"accountd.org/internal/auth"
	"accountd.org/internal/obs"
)

const minPasswordLength = 8

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if !validEmail(req.Email) {
		writeError(w, r, http.StatusBadRequest, codeValidation, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, r, http.StatusBadRequest, codeValidation, "password must be at least 8 characters")
		return
	}

	session, err := a.svc.Register(r.Context(), req.Email, req.Password, req.Name, req.Bio)
	if err != nil {
		obs.ObserveAuth("register", false)
		if errors.Is(err, auth.ErrDuplicateEmail) {
			writeError(w, r, http.StatusBadRequest, codeEmailExists, "email already registered")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "registration failed")
		return
	}
	obs.ObserveAuth("register", true)
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": session.User.ID,
		"email":   session.User.Email,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "account created",
		"user":    session.User,
		"tokens":  session.Tokens,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, codeValidation, "email and password are required")
		return
	}

	session, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.ObserveAuth("login", false)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// Unknown account and wrong password share this answer.
			writeError(w, r, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "login failed")
		return
	}
	obs.ObserveAuth("login", true)
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": session.User.ID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"user":    session.User,
		"tokens":  session.Tokens,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, codeValidation, "refresh_token is required")
		return
	}

	pair, err := a.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		obs.ObserveAuth("refresh", false)
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			writeError(w, r, http.StatusUnauthorized, codeInvalidRefreshToken, "refresh token is invalid or expired")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "refresh failed")
		return
	}
	obs.ObserveAuth("refresh", true)
	_ = audit.LogEvent(r.Context(), "auth.refresh", nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "token refreshed",
		"tokens":  pair,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	// A missing or malformed body still logs out; there is nothing to protect.
	_ = decodeJSON(r, &req)

	if err := a.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		obs.ObserveAuth("logout", false)
		writeError(w, r, http.StatusInternalServerError, codeInternal, "logout failed")
		return
	}
	obs.ObserveAuth("logout", true)
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged out",
	})
}
