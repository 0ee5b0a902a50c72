package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expiry reads the exp claim of a JWT without verifying its signature.
// The engine is not the audience of the token; it only needs to know when
// to ask the backend for a fresh one.
func Expiry(tok string) (time.Time, error) {
	if strings.Count(tok, ".") != 2 {
		return time.Time{}, ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, errors.Join(ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired reports whether tok expires within leeway of now.
// Opaque tokens and JWTs without exp are never considered expired locally;
// the backend decides for them.
func IsExpired(tok string, now time.Time, leeway time.Duration) bool {
	exp, err := Expiry(tok)
	if err != nil {
		return false
	}
	return !now.Add(leeway).Before(exp)
}

// Sign issues an HS256 JWT for subject. It backs test fixtures and the
// in-memory backend; production tokens come from the auth service.
func Sign(subject string, expiresAt time.Time, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Subject verifies tok with secret and returns its sub claim.
func Subject(tok string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tok, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
