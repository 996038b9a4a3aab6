package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical account record owned by the user store.
// The service never holds a live copy beyond the scope of one request.
type User struct {
	UserID            uuid.UUID
	Email             string
	PasswordHash      string
	DisplayName       string
	EmailVerified     bool
	VerificationToken *string
	TokenExpiresAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
