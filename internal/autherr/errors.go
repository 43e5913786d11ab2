// Package autherr holds the failure categories surfaced by the
// authentication and credit core. Every category is a sentinel so callers
// can branch with errors.Is regardless of how much context was wrapped on.
package autherr

import "errors"

var (
	// ErrMissingCredential: neither a bearer token nor an API key was presented.
	ErrMissingCredential = errors.New("missing token or API key")

	// ErrInvalidCredential covers a bad username/password pair and an unknown
	// API key alike, so the response never tells which half was wrong.
	ErrInvalidCredential = errors.New("invalid credentials")

	ErrMalformedCredential = errors.New("invalid token")
	ErrExpiredCredential   = errors.New("token expired")
	ErrRevokedCredential   = errors.New("token revoked")

	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthenticated means a gated operation ran without a bound user.
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrInsufficientCredit = errors.New("user has no credits")

	ErrDuplicateIdentity = errors.New("user with this username already exists")

	ErrValidation = errors.New("validation error")

	ErrAPIKeyNotFound = errors.New("API key not found")
)
