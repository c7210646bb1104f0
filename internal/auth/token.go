package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerName = "accountd"

const (
	// DefaultAccessTTL bounds the stateless window of an access token.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL matches the ledger expiry window.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims are the JWT claims carried by both token kinds. The subject holds
// the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer mints and verifies access and refresh tokens with two distinct HS256
// keys. An access token never verifies against the refresh key or vice versa,
// so a short-lived credential cannot be replayed as a long-lived one.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.refreshTTL = ttl
		}
	}
}

// WithIssuerClock overrides the time source (useful for tests).
func WithIssuerClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer constructs an Issuer. Both secrets are required and must differ.
func NewIssuer(accessSecret, refreshSecret string, opts ...IssuerOption) (*Issuer, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: both signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	i := &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccessToken signs a short-lived token for userID. Verification is
// stateless: signature plus expiry, no store lookup.
func (i *Issuer) IssueAccessToken(userID string) (string, error) {
	return i.sign(userID, i.accessSecret, i.accessTTL)
}

// IssueRefreshToken signs a longer-lived token for userID using the refresh
// key. The caller is responsible for recording it in the ledger.
func (i *Issuer) IssueRefreshToken(userID string) (string, error) {
	return i.sign(userID, i.refreshSecret, i.refreshTTL)
}

func (i *Issuer) sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("auth: userID is required")
	}
	now := i.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyAccessToken checks signature and expiry against the access key and
// returns the user id. Expiry is reported separately from other failures so
// callers can prompt a refresh.
func (i *Issuer) VerifyAccessToken(token string) (string, error) {
	userID, err := i.verify(token, i.accessSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	return userID, nil
}

// VerifyRefreshToken checks the signature against the refresh key. It does
// not consult the ledger; the ledger check is independent and both are
// required before trusting a refresh token.
func (i *Issuer) VerifyRefreshToken(token string) (string, error) {
	userID, err := i.verify(token, i.refreshSecret)
	if err != nil {
		return "", ErrTokenInvalid
	}
	return userID, nil
}

func (i *Issuer) verify(token string, secret []byte) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", jwt.ErrTokenMalformed
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer(issuerName))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrTokenInvalid
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return "", ErrTokenInvalid
	}
	return userID, nil
}
