// Package middleware provides the HTTP cross-cutting layer: bearer token
// authentication, role guards, per-client rate limiting, and request IDs.
package middleware

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"datashield/internal/domain"
)

// TokenSigner issues and verifies HS256 bearer tokens carrying the principal
// name as subject and the role as a custom claim.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner creates a signer. The secret must not be empty.
func NewTokenSigner(secret string, ttl time.Duration) (*TokenSigner, error) {
	if secret == "" {
		return nil, domain.ErrValidation("jwt secret must not be empty")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenSigner{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token for the principal.
func (s *TokenSigner) Issue(name, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  name,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a token, returning the principal it names.
func (s *TokenSigner) Verify(tokenString string) (domain.ContextPrincipal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return domain.ContextPrincipal{}, domain.ErrAccessDenied("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.ContextPrincipal{}, domain.ErrAccessDenied("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return domain.ContextPrincipal{}, domain.ErrAccessDenied("token has no subject")
	}
	role, _ := claims["role"].(string)

	return domain.ContextPrincipal{Name: sub, Role: role}, nil
}
