// Package token issues and verifies the signed access/refresh token pair.
//
// Access and refresh tokens are signed with independent secrets so leaking
// one family's key never lets an attacker forge the other.
package token

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects which token family a value belongs to.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalid reports a bad signature, malformed payload, or a token of
	// the wrong kind.
	ErrInvalid = errors.New("token: invalid")
	// ErrExpired reports a structurally valid token past its expiry.
	ErrExpired = errors.New("token: expired")
)

// Claims carried by both token families. AccountID is the only claim of
// interest to callers; TokenKind pins the family even if both secrets were
// ever configured equal.
type Claims struct {
	AccountID string `json:"account_id"`
	TokenKind string `json:"kind"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens. The zero value is unusable; construct
// with New so the secret invariants hold.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// New builds an Issuer. Both secrets are mandatory and must differ; there is
// no fallback default in any environment.
func New(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if accessSecret == "" {
		return nil, fmt.Errorf("token: access secret is required")
	}
	if refreshSecret == "" {
		return nil, fmt.Errorf("token: refresh secret is required")
	}
	if subtle.ConstantTimeCompare([]byte(accessSecret), []byte(refreshSecret)) == 1 {
		return nil, fmt.Errorf("token: access and refresh secrets must differ")
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccess signs a short-lived access token for accountID.
func (i *Issuer) IssueAccess(accountID string) (string, error) {
	return i.issue(accountID, KindAccess, i.accessSecret, i.accessTTL)
}

// IssueRefresh signs a longer-lived refresh token for accountID. Each call
// yields a distinct token: the jti claim is a fresh UUID, so two tokens for
// the same account issued in the same second never collide in the store.
func (i *Issuer) IssueRefresh(accountID string) (string, error) {
	return i.issue(accountID, KindRefresh, i.refreshSecret, i.refreshTTL)
}

func (i *Issuer) issue(accountID string, kind Kind, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()
	claims := &Claims{
		AccountID: accountID,
		TokenKind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("token: sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature, expiry, and family, returning the account id.
// Failures are ErrExpired for lapsed tokens and ErrInvalid for everything
// else.
func (i *Issuer) Verify(tokenString string, kind Kind) (string, error) {
	secret := i.accessSecret
	if kind == KindRefresh {
		secret = i.refreshSecret
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalid
	}
	if claims.TokenKind != string(kind) || claims.AccountID == "" {
		return "", ErrInvalid
	}
	return claims.AccountID, nil
}
