package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueCredential is returned by ParseClaims for credentials that are not
// JWTs. Such credentials are valid; the client just can't inspect them.
var ErrOpaqueCredential = errors.New("credential is not a JWT")

// Claims is what the client can learn from a credential without verifying it.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero when the token carries no exp
}

// Expired reports whether the credential carried an expiry before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseClaims reads a JWT credential's registered claims without checking
// its signature. The server remains the authority on validity; this only
// lets the client prompt for a new login before a request is rejected.
func ParseClaims(credential string) (Claims, error) {
	if credential == "" {
		return Claims{}, ErrOpaqueCredential
	}

	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(credential, &rc); err != nil {
		return Claims{}, ErrOpaqueCredential
	}

	claims := Claims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, nil
}

// Claims parses the held credential.
func (s *Store) Claims() (Claims, error) {
	return ParseClaims(s.Credential())
}

// Expired reports whether the held credential is a JWT whose expiry has
// passed. Opaque credentials are never considered expired.
func (s *Store) Expired(now time.Time) bool {
	claims, err := s.Claims()
	if err != nil {
		return false
	}
	return claims.Expired(now)
}
