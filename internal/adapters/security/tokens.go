package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lumioapp/auth-service/internal/domain"
	"github.com/lumioapp/auth-service/internal/ports"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenService signs and verifies HS256 access/refresh credentials with two
// independent symmetric secrets. Keys are held at adapter level so the
// application layer stays crypto-library agnostic.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	nowFn         func() time.Time
}

// TokenConfig carries the signing material and claim constants.
// RefreshSecret may be empty: it falls back to AccessSecret, which is an
// interoperability fallback, not a security boundary.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// NewTokenService builds a token service from configured secrets.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" {
		return nil, errors.New("access token secret is required")
	}
	refresh := cfg.RefreshSecret
	if refresh == "" {
		refresh = cfg.AccessSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(refresh),
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}, nil
}

type sessionClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *TokenService) SignAccessToken(userID uuid.UUID, email string, sessionID uuid.UUID) (string, error) {
	return s.sign(userID, email, sessionID, ports.TokenTypeAccess, s.accessTTL, s.accessSecret)
}

func (s *TokenService) SignRefreshToken(userID uuid.UUID, email string, sessionID uuid.UUID) (string, error) {
	return s.sign(userID, email, sessionID, ports.TokenTypeRefresh, s.refreshTTL, s.refreshSecret)
}

// CreateTokenPair mints an access/refresh pair bound to one fresh session id.
func (s *TokenService) CreateTokenPair(userID uuid.UUID, email string) (ports.TokenPair, error) {
	sessionID := uuid.New()
	access, err := s.SignAccessToken(userID, email, sessionID)
	if err != nil {
		return ports.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.SignRefreshToken(userID, email, sessionID)
	if err != nil {
		return ports.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return ports.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sessionID,
	}, nil
}

func (s *TokenService) VerifyAccessToken(raw string) (ports.TokenClaims, error) {
	return s.verify(raw, ports.TokenTypeAccess, s.accessSecret)
}

func (s *TokenService) VerifyRefreshToken(raw string) (ports.TokenClaims, error) {
	return s.verify(raw, ports.TokenTypeRefresh, s.refreshSecret)
}

// IsExpired reports whether the claims' expiry has passed.
func (s *TokenService) IsExpired(claims ports.TokenClaims) bool {
	return !claims.ExpiresAt.After(s.nowFn())
}

// ExpiringSoon reports whether the claims expire within buffer. A zero buffer
// defaults to five minutes.
func (s *TokenService) ExpiringSoon(claims ports.TokenClaims, buffer time.Duration) bool {
	if buffer <= 0 {
		buffer = 5 * time.Minute
	}
	return !claims.ExpiresAt.After(s.nowFn().Add(buffer))
}

func (s *TokenService) sign(userID uuid.UUID, email string, sessionID uuid.UUID, tokenType ports.TokenType, ttl time.Duration, secret []byte) (string, error) {
	now := s.nowFn()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		UserID:    userID.String(),
		Email:     email,
		TokenType: string(tokenType),
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(secret)
}

func (s *TokenService) verify(raw string, want ports.TokenType, secret []byte) (ports.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.nowFn),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return ports.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}
	if claims.TokenType != string(want) {
		return ports.TokenClaims{}, fmt.Errorf("%w: wrong token type", domain.ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ports.TokenClaims{}, fmt.Errorf("%w: parse user_id", domain.ErrInvalidToken)
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return ports.TokenClaims{}, fmt.Errorf("%w: parse session_id", domain.ErrInvalidToken)
	}
	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return ports.TokenClaims{}, fmt.Errorf("%w: parse jti", domain.ErrInvalidToken)
	}

	return ports.TokenClaims{
		UserID:    userID,
		Email:     claims.Email,
		Type:      want,
		SessionID: sessionID,
		TokenID:   tokenID,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
