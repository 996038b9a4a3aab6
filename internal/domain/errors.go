package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified blocks login until the address is confirmed.
	// Mapped to 403 with a machine-readable code so clients can offer a resend action.
	ErrEmailNotVerified = errors.New("email not verified")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrRateLimited      = errors.New("rate limited")
	// ErrInvalidToken covers malformed input, bad signature, wrong token type,
	// and issuer/audience mismatch. Callers treat all of these as "no valid token".
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
