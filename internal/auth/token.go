// Package auth issues and verifies the signed identity tokens that carry a
// principal between requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/edupay/internal/domain"
)

// SystemAdminID is the id of the configuration-derived admin. It is never
// stored.
const SystemAdminID = "admin"

// ErrInvalidToken covers malformed, expired, and tampered tokens.
var ErrInvalidToken = errors.New("invalid token")

// ErrUnknownPrincipal means a valid token names a user that no longer exists
// (or no longer has the token's role). Such requests are anonymous.
var ErrUnknownPrincipal = errors.New("unknown principal")

// Principal is the authenticated identity behind a request.
type Principal struct {
	ID     string
	Name   string
	Email  string
	Role   domain.Role
	System bool // configuration-derived admin
}

// Claims is the JWT payload.
type Claims struct {
	Role   domain.Role `json:"role"`
	System bool        `json:"sys,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (t *TokenManager) TTL() time.Duration { return t.ttl }

// Issue signs a token for p.
func (t *TokenManager) Issue(p Principal) (string, error) {
	if p.ID == "" || !p.Role.Valid() {
		return "", fmt.Errorf("issue token: incomplete principal")
	}
	now := t.now()
	claims := Claims{
		Role:   p.Role,
		System: p.System,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks signature, issuer, and lifetime and returns the claimed
// principal (id, role, system flag only).
func (t *TokenManager) Verify(raw string) (Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return Principal{}, ErrInvalidToken
	}
	if claims.System && (claims.Subject != SystemAdminID || claims.Role != domain.RoleAdmin) {
		return Principal{}, ErrInvalidToken
	}
	return Principal{ID: claims.Subject, Role: claims.Role, System: claims.System}, nil
}
