package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/lumioapp/auth-service/internal/adapters/cache"
	httpadapter "github.com/lumioapp/auth-service/internal/adapters/http"
	mailadapter "github.com/lumioapp/auth-service/internal/adapters/mail"
	"github.com/lumioapp/auth-service/internal/adapters/memory"
	"github.com/lumioapp/auth-service/internal/adapters/postgres"
	"github.com/lumioapp/auth-service/internal/adapters/security"
	"github.com/lumioapp/auth-service/internal/application"
	"github.com/lumioapp/auth-service/internal/authlog"
	"github.com/lumioapp/auth-service/internal/ports"
	"github.com/lumioapp/auth-service/internal/ratelimit"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	mailWorker *mailadapter.QueuedMailer
	events     *authlog.Recorder
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping authentication service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"environment", cfg.Environment,
	)

	cleanup := make([]func(), 0, 4)
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	var users ports.UserRepository
	var ready func() error
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := pool.DB()
		if err != nil {
			return nil, fmt.Errorf("gorm sql db: %w", err)
		}
		cleanup = append(cleanup, func() { _ = sqlDB.Close() })

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			closeAll()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		users = postgres.NewUserRepository(pool)
		ready = func() error { return postgres.Ping(context.Background(), pool) }
	} else {
		logger.Warn("no database configured, using in-memory user store")
		users = memory.NewUserRepository()
	}

	// Rate-limit counters live in Redis when available so the ceiling holds
	// across replicas; otherwise each instance counts locally.
	var counters ports.CounterStore = ratelimit.NewMemoryStore()
	var mailer ports.EmailSender = mailadapter.NopMailer{}
	var mailWorker *mailadapter.QueuedMailer
	if cfg.SMTPHost != "" {
		mailer = mailadapter.NewSMTPMailer(mailadapter.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			FromAddress: cfg.SMTPFromAddress,
		})
	} else {
		logger.Warn("no SMTP host configured, outbound email disabled")
	}
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		cleanup = append(cleanup, func() { _ = redisClient.Close() })
		counters = ratelimit.NewRedisStore(redisClient)
		if cfg.SMTPHost != "" {
			mailWorker = mailadapter.NewQueuedMailer(mailer, redisClient, cfg.MailQueueSize)
			mailer = mailWorker
		}
	}

	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		Issuer:        cfg.TokenIssuer,
		Audience:      cfg.TokenAudience,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	events := authlog.NewRecorder(logger)
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			VerificationTokenTTL: cfg.VerificationTokenTTL,
			VerifyURLBase:        cfg.VerifyURLBase,
		},
		Users:  users,
		Hasher: security.NewBcryptHasher(cfg.BcryptCost),
		Tokens: tokens,
		Mailer: mailer,
		Events: events,
		Logger: logger,
	})

	handler := httpadapter.NewHandler(httpadapter.HandlerDependencies{
		Config: httpadapter.Config{
			Production: cfg.Production(),
			CORS: httpadapter.CORSPolicy{
				AllowedOrigins:   cfg.CORSAllowedOrigins,
				AllowCredentials: true,
				MaxAge:           10 * time.Minute,
			},
			Policies: ratelimit.Policies{
				Login:         ratelimit.Policy{Scope: "auth", MaxRequests: cfg.LoginRateLimit, Window: cfg.LoginRateWindow},
				Signup:        ratelimit.Policy{Scope: "signup", MaxRequests: cfg.SignupRateLimit, Window: cfg.SignupRateWindow},
				API:           ratelimit.Policy{Scope: "api", MaxRequests: cfg.APIRateLimit, Window: cfg.APIRateWindow},
				PasswordReset: ratelimit.DefaultPolicies().PasswordReset,
			},
		},
		Service: svc,
		Tokens:  tokens,
		Limiter: ratelimit.NewLimiter(counters),
		Events:  events,
		Ready:   ready,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		mailWorker: mailWorker,
		events:     events,
		cleanupFn:  func(context.Context) { closeAll() },
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc health server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()

	// In-memory history is lost on exit; flush a last summary for operators.
	stats := r.events.Statistics(24 * time.Hour)
	r.logger.Info("auth activity at shutdown",
		"total_events", stats.TotalEvents,
		"successful_logins", stats.SuccessfulLogins,
		"failed_logins", stats.FailedLogins,
		"signups", stats.Signups,
		"unique_ips", stats.UniqueIPs,
		"alerts", stats.Alerts,
	)

	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker drains the outbound mail queue until interrupted. It only makes
// sense when both Redis and SMTP are configured.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r.mailWorker == nil {
		return fmt.Errorf("mail worker requires REDIS_URL and SMTP_HOST")
	}

	r.logger.Info("mail queue worker started")
	r.mailWorker.StartWorker(ctx)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
