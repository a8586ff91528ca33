// Package authn issues and verifies the bearer tokens the gateway uses
// to identify callers. The original gateway trusted an X-User-Name
// header straight from the caller; this rebuild instead issues signed
// JWTs carrying the username claim, so a downstream client or test
// harness can't simply set an arbitrary header to impersonate a user.
package authn

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingToken is returned when a request has no bearer token at
// all.
var ErrMissingToken = errors.New("authn: missing bearer token")

// ErrInvalidToken is returned for a token that fails signature
// verification or has expired.
var ErrInvalidToken = errors.New("authn: invalid or expired token")

type claims struct {
	UserName string `json:"user_name"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies bearer tokens with a single HMAC key.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
}

// NewIssuer builds an Issuer. A zero ttl defaults to 24 hours, matching
// a single library session.
func NewIssuer(signingKey string, ttl time.Duration) *Issuer {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{signingKey: []byte(signingKey), ttl: ttl}
}

// IssueToken mints a signed token for userName.
func (i *Issuer) IssueToken(userName string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("authn: sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a signed token string and returns the username
// it carries.
func (i *Issuer) VerifyToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.UserName == "" {
		return "", ErrInvalidToken
	}
	return c.UserName, nil
}

// FromRequest extracts the bearer token from an Authorization header
// and verifies it, returning the authenticated username.
func (i *Issuer) FromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissingToken
	}
	return i.VerifyToken(parts[1])
}
