package domain

import "errors"

// Domain errors. Adapters map these to wire-level status codes.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMalformedGeometry  = errors.New("malformed geometry")
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateUsername  = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
)
