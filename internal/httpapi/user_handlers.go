package httpapi

import (
	"errors"
	"net/http"

	"accountd.org/internal/audit"
	"accountd.org/internal/auth"
)

type updateProfileRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
	Bio   *string `json:"bio"`
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getProfile(w, r)
	case http.MethodPut:
		a.updateProfile(w, r)
	default:
		methodNotAllowed(w, r, "GET, PUT")
	}
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, codeTokenMissing, "access token required")
		return
	}
	view, err := a.svc.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// The token outlived the account.
			writeError(w, r, http.StatusNotFound, codeUserNotFound, "user not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "profile lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": view})
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, codeTokenMissing, "access token required")
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if req.Email != nil && !validEmail(auth.NormalizeEmail(*req.Email)) {
		writeError(w, r, http.StatusBadRequest, codeValidation, "a valid email is required")
		return
	}

	params := auth.UpdateUserParams{Email: req.Email, Name: req.Name, Bio: req.Bio}
	view, err := a.svc.UpdateProfile(r.Context(), userID, params)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoUpdateFields):
			writeError(w, r, http.StatusBadRequest, codeNoUpdateFields, "no fields to update")
		case errors.Is(err, auth.ErrDuplicateEmail):
			writeError(w, r, http.StatusBadRequest, codeEmailExists, "email already registered")
		case errors.Is(err, auth.ErrUserNotFound):
			writeError(w, r, http.StatusNotFound, codeUserNotFound, "user not found")
		default:
			writeError(w, r, http.StatusInternalServerError, codeInternal, "profile update failed")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "profile.update", nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "profile updated",
		"user":    view,
	})
}

func (a *API) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, codeTokenMissing, "access token required")
		return
	}

	if err := a.svc.DeleteAccount(r.Context(), userID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, r, http.StatusNotFound, codeUserNotFound, "user not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, codeInternal, "account deletion failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "account.delete", nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "account deleted",
	})
}
