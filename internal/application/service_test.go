package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lumioapp/auth-service/internal/adapters/memory"
	"github.com/lumioapp/auth-service/internal/adapters/security"
	"github.com/lumioapp/auth-service/internal/authlog"
	"github.com/lumioapp/auth-service/internal/domain"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

type sentMail struct {
	To      string
	Subject string
	Text    string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, _, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Text: text})
	return nil
}

type fixture struct {
	service *Service
	users   *memory.UserRepository
	mailer  *recordingMailer
	events  *authlog.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		Issuer:        "auth-service-test",
		Audience:      "lumio-app",
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	users := memory.NewUserRepository()
	mailer := &recordingMailer{}
	events := authlog.NewRecorder(slog.Default())

	svc := NewService(Dependencies{
		Config: Config{
			VerificationTokenTTL: 24 * time.Hour,
			VerifyURLBase:        "https://app.example.com/auth/verify-email",
		},
		Users:  users,
		Hasher: security.NewBcryptHasher(4), // low cost keeps the suite fast
		Tokens: tokens,
		Mailer: mailer,
		Events: events,
	})

	return &fixture{service: svc, users: users, mailer: mailer, events: events}
}

const testMeta = "unit-test"

func meta() RequestMeta {
	return RequestMeta{IP: "127.0.0.1", UserAgent: testMeta}
}

func (f *fixture) signup(t *testing.T, email string) SignupResponse {
	t.Helper()
	res, err := f.service.Signup(context.Background(), SignupRequest{
		Email:       email,
		Password:    "Str0ng!Pass",
		DisplayName: "Test User",
	}, meta())
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	return res
}

func (f *fixture) verify(t *testing.T, email string) {
	t.Helper()
	user, err := f.users.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if user.VerificationToken == nil {
		t.Fatalf("user has no verification token")
	}
	if _, err := f.service.VerifyEmail(context.Background(), *user.VerificationToken, meta()); err != nil {
		t.Fatalf("verify email: %v", err)
	}
}

func TestSignupCreatesUnverifiedUserAndSendsEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.signup(t, "a@b.com")

	if res.User.Email != "a@b.com" {
		t.Fatalf("email = %q", res.User.Email)
	}
	if res.User.EmailVerified {
		t.Fatalf("new account must start unverified")
	}
	if !res.EmailSent {
		t.Fatalf("verification email should have been sent")
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].To != "a@b.com" {
		t.Fatalf("unexpected outbound mail: %#v", f.mailer.sent)
	}

	stored, err := f.users.GetByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.VerificationToken == nil || stored.TokenExpiresAt == nil {
		t.Fatalf("verification token fields must be set")
	}
	if stored.PasswordHash == "Str0ng!Pass" {
		t.Fatalf("password stored unhashed")
	}
}

func TestSignupNormalizesEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.signup(t, "  MIXED@Example.COM ")
	if res.User.Email != "mixed@example.com" {
		t.Fatalf("email not normalized: %q", res.User.Email)
	}
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signup(t, "a@b.com")

	_, err := f.service.Signup(context.Background(), SignupRequest{
		Email:    "a@b.com",
		Password: "Str0ng!Pass",
	}, meta())
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSignupMailFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mailer.fail = true

	res, err := f.service.Signup(context.Background(), SignupRequest{
		Email:    "a@b.com",
		Password: "Str0ng!Pass",
	}, meta())
	if err != nil {
		t.Fatalf("signup should survive a mail failure: %v", err)
	}
	if res.EmailSent {
		t.Fatalf("EmailSent should report the failure")
	}
	if _, err := f.users.GetByEmail(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("account must still exist: %v", err)
	}
}

func TestLoginEnumerationResistance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signup(t, "a@b.com")
	f.verify(t, "a@b.com")

	_, unknownErr := f.service.Login(context.Background(), LoginRequest{
		Email: "ghost@b.com", Password: "Str0ng!Pass",
	}, meta())
	_, wrongPassErr := f.service.Login(context.Background(), LoginRequest{
		Email: "a@b.com", Password: "Wrong!Pass1",
	}, meta())

	if !errors.Is(unknownErr, domain.ErrInvalidCredentials) || !errors.Is(wrongPassErr, domain.ErrInvalidCredentials) {
		t.Fatalf("both failures must map to invalid credentials: %v / %v", unknownErr, wrongPassErr)
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Fatalf("error strings must be identical: %q vs %q", unknownErr.Error(), wrongPassErr.Error())
	}
}

func TestLoginBlockedUntilVerified(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signup(t, "a@b.com")

	_, err := f.service.Login(context.Background(), LoginRequest{
		Email: "a@b.com", Password: "Str0ng!Pass",
	}, meta())
	if !errors.Is(err, domain.ErrEmailNotVerified) {
		t.Fatalf("unverified login must be blocked, got %v", err)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signup(t, "a@b.com")
	f.verify(t, "a@b.com")

	res, err := f.service.Login(context.Background(), LoginRequest{
		Email: "a@b.com", Password: "Str0ng!Pass",
	}, meta())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens")
	}

	claims, err := f.service.tokens.VerifyAccessToken(res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if claims.UserID != res.User.ID || claims.Email != "a@b.com" {
		t.Fatalf("claims mismatch: %#v", claims)
	}

	me, err := f.service.Me(context.Background(), claims)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != res.User.ID {
		t.Fatalf("me returned wrong user")
	}
}

func TestVerifyEmailLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signup(t, "a@b.com")
	ctx := context.Background()

	user, _ := f.users.GetByEmail(ctx, "a@b.com")
	token := *user.VerificationToken

	view, err := f.service.VerifyEmail(ctx, token, meta())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !view.EmailVerified {
		t.Fatalf("user should be verified")
	}

	stored, _ := f.users.GetByEmail(ctx, "a@b.com")
	if stored.VerificationToken != nil || stored.TokenExpiresAt != nil {
		t.Fatalf("token fields must be cleared after verification")
	}

	// Unknown token gets a generic invalid-input error.
	if _, err := f.service.VerifyEmail(ctx, "deadbeef", meta()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown token: %v", err)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signup(t, "a@b.com")
	ctx := context.Background()

	user, _ := f.users.GetByEmail(ctx, "a@b.com")
	expired := time.Now().UTC().Add(-time.Hour)
	user.TokenExpiresAt = &expired
	if _, err := f.users.Update(ctx, user); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := f.service.VerifyEmail(ctx, *user.VerificationToken, meta())
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expired token should be invalid input, got %v", err)
	}

	stored, _ := f.users.GetByEmail(ctx, "a@b.com")
	if stored.EmailVerified {
		t.Fatalf("expired token must not verify the account")
	}
}

func TestResendVerificationNonEnumerating(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signup(t, "a@b.com")
	ctx := context.Background()

	// Unknown address succeeds silently.
	if err := f.service.ResendVerification(ctx, "ghost@b.com", meta()); err != nil {
		t.Fatalf("unknown address must not error: %v", err)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("no mail should go to unknown addresses")
	}

	before, _ := f.users.GetByEmail(ctx, "a@b.com")
	if err := f.service.ResendVerification(ctx, "a@b.com", meta()); err != nil {
		t.Fatalf("resend: %v", err)
	}
	after, _ := f.users.GetByEmail(ctx, "a@b.com")
	if *before.VerificationToken == *after.VerificationToken {
		t.Fatalf("resend must rotate the verification token")
	}
	if len(f.mailer.sent) != 2 {
		t.Fatalf("expected a second verification email")
	}

	// Already verified is a client error.
	f.verify(t, "a@b.com")
	if err := f.service.ResendVerification(ctx, "a@b.com", meta()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("already-verified resend: %v", err)
	}
}

func TestRefreshTokens(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signup(t, "a@b.com")
	f.verify(t, "a@b.com")
	ctx := context.Background()

	login, err := f.service.Login(ctx, LoginRequest{Email: "a@b.com", Password: "Str0ng!Pass"}, meta())
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	res, err := f.service.RefreshTokens(ctx, login.Tokens.RefreshToken, meta())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("expected a fresh pair")
	}

	// An access token must not work as a refresh token.
	if _, err := f.service.RefreshTokens(ctx, login.Tokens.AccessToken, meta()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("access-as-refresh should be unauthorized, got %v", err)
	}
}

func TestFailedLoginsRaiseBruteForceAlert(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signup(t, "a@b.com")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = f.service.Login(ctx, LoginRequest{Email: "a@b.com", Password: "Wrong!Pass1"}, meta())
	}

	var sawHigh bool
	for _, a := range f.events.RecentAlerts(0) {
		if a.Type == "potential_brute_force" && a.Level == authlog.AlertHigh {
			sawHigh = true
		}
	}
	if !sawHigh {
		t.Fatalf("expected high brute-force alert after 5 failures")
	}
}
