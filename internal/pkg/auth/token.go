package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/samirrijal/geoplane/internal/core/domain"
)

// TokenMaker issues and validates HS256-signed bearer tokens. Tokens are
// stateless and self-contained: there is no server-side session table and no
// revocation list, so a token stays valid until its expiry claim passes.
type TokenMaker struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenMaker creates a TokenMaker with the given signing secret and token
// lifetime.
func NewTokenMaker(secret string, ttl time.Duration) *TokenMaker {
	return &TokenMaker{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token carrying the username as subject plus issued-at and
// expiry claims.
func (m *TokenMaker) Issue(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies a token and returns its subject. Expired
// tokens fail with domain.ErrTokenExpired; anything else that does not verify
// (bad signature, wrong algorithm, garbage input, missing subject) fails with
// domain.ErrTokenInvalid. There is no expiry grace period.
func (m *TokenMaker) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", domain.ErrTokenInvalid
	}
	return claims.Subject, nil
}
