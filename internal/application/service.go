package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumioapp/auth-service/internal/authlog"
	"github.com/lumioapp/auth-service/internal/domain"
	"github.com/lumioapp/auth-service/internal/ports"
	"github.com/lumioapp/auth-service/internal/sanitize"
)

// Config holds the application-level knobs.
type Config struct {
	VerificationTokenTTL time.Duration
	VerifyURLBase        string
}

// Service orchestrates the auth use-cases over injected collaborators.
// It is constructed once at startup and handed by reference to the HTTP layer.
type Service struct {
	cfg    Config
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenService
	mailer ports.EmailSender
	events *authlog.Recorder
	logger *slog.Logger
	nowFn  func() time.Time
}

type Dependencies struct {
	Config Config
	Users  ports.UserRepository
	Hasher ports.PasswordHasher
	Tokens ports.TokenService
	Mailer ports.EmailSender
	Events *authlog.Recorder
	Logger *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.VerificationTokenTTL <= 0 {
		cfg.VerificationTokenTTL = 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:    cfg,
		users:  deps.Users,
		hasher: deps.Hasher,
		tokens: deps.Tokens,
		mailer: deps.Mailer,
		events: deps.Events,
		logger: logger.With("module", "application", "layer", "service"),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Signup creates an unverified account and best-effort sends the verification
// email. A send failure is logged and surfaced via EmailSent, never rolled
// back into the account creation.
func (s *Service) Signup(ctx context.Context, req SignupRequest, meta RequestMeta) (SignupResponse, error) {
	start := s.nowFn()

	email, ok := sanitize.Email(req.Email)
	if !ok {
		s.record(authlog.EventSignupAttempt, meta, false, nil, req.Email, "invalid email", start)
		return SignupResponse{}, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		s.record(authlog.EventSignupAttempt, meta, false, nil, email, "weak password", start)
		return SignupResponse{}, err
	}
	displayName := sanitize.String(req.DisplayName, sanitize.Auth())

	s.record(authlog.EventSignupAttempt, meta, true, nil, email, "", start)

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return SignupResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	token, err := verificationToken()
	if err != nil {
		return SignupResponse{}, fmt.Errorf("generate verification token: %w", err)
	}
	tokenExpiry := now.Add(s.cfg.VerificationTokenTTL)

	user, err := s.users.Create(ctx, domain.User{
		Email:             email,
		PasswordHash:      passwordHash,
		DisplayName:       displayName,
		EmailVerified:     false,
		VerificationToken: &token,
		TokenExpiresAt:    &tokenExpiry,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return SignupResponse{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return SignupResponse{}, err
	}

	emailSent := s.sendVerificationEmail(ctx, user.Email, token)
	s.record(authlog.EventSignupSuccess, meta, true, &user.UserID, user.Email, "", start)

	return SignupResponse{
		User:             toUserView(user),
		EmailSent:        emailSent,
		PasswordStrength: domain.CheckStrength(req.Password),
	}, nil
}

// Login authenticates credentials and mints a token pair. Unknown email and
// wrong password produce the identical error so responses cannot be used for
// account enumeration.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (LoginResponse, error) {
	start := s.nowFn()

	email, ok := sanitize.Email(req.Email)
	if !ok || req.Password == "" {
		s.record(authlog.EventLoginFailure, meta, false, nil, req.Email, "malformed credentials", start)
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.record(authlog.EventLoginFailure, meta, false, nil, email, "user not found", start)
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.record(authlog.EventLoginFailure, meta, false, &user.UserID, email, "wrong password", start)
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		s.record(authlog.EventLoginFailure, meta, false, &user.UserID, email, "email not verified", start)
		return LoginResponse{}, domain.ErrEmailNotVerified
	}

	pair, err := s.tokens.CreateTokenPair(user.UserID, user.Email)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("create token pair: %w", err)
	}

	s.record(authlog.EventLoginSuccess, meta, true, &user.UserID, email, "", start)
	return LoginResponse{User: toUserView(user), Tokens: pair}, nil
}

// VerifyEmail consumes a verification token. Unknown tokens produce a generic
// invalid error so the response never reveals whether a token existed.
// Verifying an already-verified account succeeds idempotently.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string, meta RequestMeta) (UserView, error) {
	start := s.nowFn()

	token := sanitize.String(rawToken, sanitize.Auth())
	if token == "" {
		return UserView{}, fmt.Errorf("%w: missing verification token", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		s.record(authlog.EventInvalidToken, meta, false, nil, "", "unknown verification token", start)
		return UserView{}, fmt.Errorf("%w: invalid verification token", domain.ErrInvalidInput)
	}

	if user.EmailVerified {
		return toUserView(user), nil
	}
	if user.TokenExpiresAt != nil && user.TokenExpiresAt.Before(s.nowFn()) {
		s.record(authlog.EventTokenExpired, meta, false, &user.UserID, user.Email, "verification token expired", start)
		return UserView{}, fmt.Errorf("%w: verification link expired, request a new one", domain.ErrInvalidInput)
	}

	user.EmailVerified = true
	user.VerificationToken = nil
	user.TokenExpiresAt = nil
	user.UpdatedAt = s.nowFn()

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return UserView{}, fmt.Errorf("mark verified: %w", err)
	}

	s.record(authlog.EventEmailVerified, meta, true, &updated.UserID, updated.Email, "", start)
	s.sendWelcomeEmail(ctx, updated.Email, updated.DisplayName)
	return toUserView(updated), nil
}

// ResendVerification issues a fresh token for an unverified account. For an
// unknown address it reports success without acting, to stay non-enumerating.
func (s *Service) ResendVerification(ctx context.Context, rawEmail string, meta RequestMeta) error {
	email, ok := sanitize.Email(rawEmail)
	if !ok {
		return fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the address exists.
		return nil
	}
	if user.EmailVerified {
		return fmt.Errorf("%w: email already verified", domain.ErrInvalidInput)
	}

	token, err := verificationToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	expiry := s.nowFn().Add(s.cfg.VerificationTokenTTL)
	user.VerificationToken = &token
	user.TokenExpiresAt = &expiry
	user.UpdatedAt = s.nowFn()

	if _, err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	s.sendVerificationEmail(ctx, user.Email, token)
	s.record(authlog.EventSignupAttempt, meta, true, &user.UserID, user.Email, "", s.nowFn())
	return nil
}

// Me resolves verified access-token claims to the current user profile.
func (s *Service) Me(ctx context.Context, claims ports.TokenClaims) (UserView, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UserView{}, domain.ErrNotFound
		}
		return UserView{}, err
	}
	return toUserView(user), nil
}

// RefreshTokens exchanges a valid refresh token for a fresh pair. Issuance
// only; no server-side rotation state is kept.
func (s *Service) RefreshTokens(ctx context.Context, rawRefresh string, meta RequestMeta) (RefreshResponse, error) {
	start := s.nowFn()

	claims, err := s.tokens.VerifyRefreshToken(rawRefresh)
	if err != nil {
		event := authlog.EventInvalidToken
		if errors.Is(err, domain.ErrTokenExpired) {
			event = authlog.EventTokenExpired
		}
		s.record(event, meta, false, nil, "", "refresh rejected", start)
		return RefreshResponse{}, domain.ErrUnauthorized
	}

	// The user must still exist; a deleted account keeps its tokens until
	// expiry otherwise.
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return RefreshResponse{}, domain.ErrUnauthorized
	}

	pair, err := s.tokens.CreateTokenPair(user.UserID, user.Email)
	if err != nil {
		return RefreshResponse{}, fmt.Errorf("create token pair: %w", err)
	}

	s.record(authlog.EventTokenRefresh, meta, true, &user.UserID, user.Email, "", start)
	return RefreshResponse{Tokens: pair}, nil
}

// Logout records the event. Cookie clearing happens at the HTTP layer; with
// stateless tokens there is no server-side state to revoke, so a captured
// access token stays valid until its own expiry.
func (s *Service) Logout(ctx context.Context, claims *ports.TokenClaims, meta RequestMeta) {
	var userID *uuid.UUID
	var email string
	if claims != nil {
		userID = &claims.UserID
		email = claims.Email
	}
	s.record(authlog.EventLogout, meta, true, userID, email, "", s.nowFn())
}

// RecordTokenRejection feeds token-verification failures from the HTTP layer
// into alert derivation.
func (s *Service) RecordTokenRejection(meta RequestMeta, expired bool) {
	event := authlog.EventInvalidToken
	if expired {
		event = authlog.EventTokenExpired
	}
	s.record(event, meta, false, nil, "", "token rejected", s.nowFn())
}

func (s *Service) record(event authlog.Event, meta RequestMeta, success bool, userID *uuid.UUID, email, errMsg string, start time.Time) {
	if s.events == nil {
		return
	}
	s.events.Record(authlog.Entry{
		Event:     event,
		UserID:    userID,
		Email:     email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   success,
		Error:     errMsg,
		Duration:  s.nowFn().Sub(start),
	})
}

func (s *Service) sendVerificationEmail(ctx context.Context, to, token string) bool {
	if s.mailer == nil {
		return false
	}
	subject, html, text := verificationMessage(s.cfg.VerifyURLBase, token, s.cfg.VerificationTokenTTL)
	if err := s.mailer.Send(ctx, to, subject, html, text); err != nil {
		s.logger.Warn("verification email send failed",
			"operation", "send_verification_email",
			"outcome", "failure",
			"error", err.Error(),
		)
		return false
	}
	return true
}

func (s *Service) sendWelcomeEmail(ctx context.Context, to, displayName string) {
	if s.mailer == nil {
		return
	}
	subject, html, text := welcomeMessage(displayName)
	if err := s.mailer.Send(ctx, to, subject, html, text); err != nil {
		s.logger.Warn("welcome email send failed",
			"operation", "send_welcome_email",
			"outcome", "failure",
			"error", err.Error(),
		)
	}
}

// verificationToken returns a 64-hex-char random token from the CSPRNG.
func verificationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
