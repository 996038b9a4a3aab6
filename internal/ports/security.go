package ports

import (
	"time"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenType distinguishes the two credential roles. A token of one type must
// never be accepted where the other is required.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the verified payload of a signed credential.
type TokenClaims struct {
	UserID    uuid.UUID
	Email     string
	Type      TokenType
	SessionID uuid.UUID
	TokenID   uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair holds an access/refresh pair minted together. Both tokens share
// one session id and expire independently.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    uuid.UUID
}

type TokenService interface {
	SignAccessToken(userID uuid.UUID, email string, sessionID uuid.UUID) (string, error)
	SignRefreshToken(userID uuid.UUID, email string, sessionID uuid.UUID) (string, error)
	CreateTokenPair(userID uuid.UUID, email string) (TokenPair, error)
	VerifyAccessToken(raw string) (TokenClaims, error)
	VerifyRefreshToken(raw string) (TokenClaims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}
