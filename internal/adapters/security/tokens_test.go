package security

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumioapp/auth-service/internal/domain"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		Issuer:        "auth-service-test",
		Audience:      "lumio-app",
	})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	userID := uuid.New()
	sessionID := uuid.New()

	raw, err := svc.SignAccessToken(userID, "user@example.com", sessionID)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}

	claims, err := svc.VerifyAccessToken(raw)
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id mismatch: got %s want %s", claims.UserID, userID)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("email mismatch: got %q", claims.Email)
	}
	if claims.Type != "access" {
		t.Fatalf("type mismatch: got %q", claims.Type)
	}
	if claims.SessionID != sessionID {
		t.Fatalf("session id mismatch")
	}
	if claims.TokenID == uuid.Nil {
		t.Fatalf("expected non-nil jti")
	}
}

func TestTokenTypeMismatchFails(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	userID := uuid.New()
	sessionID := uuid.New()

	access, err := svc.SignAccessToken(userID, "user@example.com", sessionID)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	refresh, err := svc.SignRefreshToken(userID, "user@example.com", sessionID)
	if err != nil {
		t.Fatalf("sign refresh token: %v", err)
	}

	if _, err := svc.VerifyRefreshToken(access); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := svc.VerifyAccessToken(refresh); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	base := time.Now().UTC()
	svc.nowFn = func() time.Time { return base }

	raw, err := svc.SignAccessToken(uuid.New(), "user@example.com", uuid.New())
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	if _, err := svc.VerifyAccessToken(raw); err != nil {
		t.Fatalf("fresh token should verify: %v", err)
	}

	svc.nowFn = func() time.Time { return base.Add(16 * time.Minute) }
	if _, err := svc.VerifyAccessToken(raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestExpiringSoon(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	base := time.Now().UTC()
	svc.nowFn = func() time.Time { return base }

	raw, err := svc.SignAccessToken(uuid.New(), "user@example.com", uuid.New())
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	claims, err := svc.VerifyAccessToken(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if svc.IsExpired(claims) {
		t.Fatalf("fresh token reported expired")
	}
	if svc.ExpiringSoon(claims, 5*time.Minute) {
		t.Fatalf("15m token should not be expiring within 5m")
	}

	svc.nowFn = func() time.Time { return base.Add(11 * time.Minute) }
	if !svc.ExpiringSoon(claims, 5*time.Minute) {
		t.Fatalf("token with 4m left should be expiring soon")
	}
	if svc.IsExpired(claims) {
		t.Fatalf("token with 4m left is not expired")
	}

	svc.nowFn = func() time.Time { return base.Add(16 * time.Minute) }
	if !svc.IsExpired(claims) {
		t.Fatalf("token past exp should be expired")
	}
}

func TestCreateTokenPairSharesSession(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	userID := uuid.New()

	pair, err := svc.CreateTokenPair(userID, "user@example.com")
	if err != nil {
		t.Fatalf("create token pair: %v", err)
	}

	access, err := svc.VerifyAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	refresh, err := svc.VerifyRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}

	if access.SessionID != refresh.SessionID || access.SessionID != pair.SessionID {
		t.Fatalf("pair does not share one session id")
	}
	if access.TokenID == refresh.TokenID {
		t.Fatalf("pair tokens must carry distinct jti values")
	}
	if access.ExpiresAt.After(refresh.ExpiresAt) {
		t.Fatalf("refresh token should outlive access token")
	}
}

func TestRefreshSecretFallback(t *testing.T) {
	t.Parallel()

	svc, err := NewTokenService(TokenConfig{
		AccessSecret: "only-secret",
		Issuer:       "auth-service-test",
		Audience:     "lumio-app",
	})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	raw, err := svc.SignRefreshToken(uuid.New(), "user@example.com", uuid.New())
	if err != nil {
		t.Fatalf("sign refresh token: %v", err)
	}
	if _, err := svc.VerifyRefreshToken(raw); err != nil {
		t.Fatalf("refresh token should verify with fallback secret: %v", err)
	}
}

func TestIssuerAudienceMismatchFails(t *testing.T) {
	t.Parallel()

	signer := newTestTokenService(t)
	raw, err := signer.SignAccessToken(uuid.New(), "user@example.com", uuid.New())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other, err := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		Issuer:        "someone-else",
		Audience:      "lumio-app",
	})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	if _, err := other.VerifyAccessToken(raw); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected issuer mismatch failure, got %v", err)
	}
}

func TestTamperedTokenFails(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	raw, err := svc.SignAccessToken(uuid.New(), "user@example.com", uuid.New())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := raw[:len(raw)-2] + "xx"
	if _, err := svc.VerifyAccessToken(tampered); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
	if _, err := svc.VerifyAccessToken("not-a-jwt"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token error for garbage input, got %v", err)
	}
}
