package auth

import "errors"

var (
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("auth: email already registered")
	// ErrUserNotFound is returned when a user id or email matches no row.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrInvalidCredentials deliberately merges "no such user" and "wrong
	// password" so login responses do not leak which emails exist.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	// ErrInvalidRefreshToken merges "not in ledger", "expired in ledger" and
	// "bad signature": a refresh failure always demands re-authentication.
	ErrInvalidRefreshToken = errors.New("auth: invalid or expired refresh token")
	// ErrTokenExpired means the signature checked out but the token is past
	// its expiry. Only access-token verification distinguishes this case.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid covers malformed tokens and signature mismatches.
	ErrTokenInvalid = errors.New("auth: invalid token")
	// ErrDuplicateToken is a ledger collision on the token string. Token
	// entropy makes this practically impossible, but it is still surfaced.
	ErrDuplicateToken = errors.New("auth: refresh token collision")
	// ErrNoUpdateFields is returned when a profile update supplies nothing.
	ErrNoUpdateFields = errors.New("auth: no fields to update")
)
