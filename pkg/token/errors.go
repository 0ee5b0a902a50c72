package token

import "errors"

var (
	ErrInvalidToken = errors.New("invalid token format")
	ErrNoExpiry     = errors.New("token has no expiry")
)
