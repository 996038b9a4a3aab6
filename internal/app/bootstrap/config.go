package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the authentication service.
// It merges file defaults and environment overrides to support both local and
// deployed runs.
type Config struct {
	ServiceID   string
	Environment string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	AccessSecret  string
	RefreshSecret string
	TokenIssuer   string
	TokenAudience string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	BcryptCost int

	VerificationTokenTTL time.Duration
	VerifyURLBase        string

	LoginRateLimit   int
	LoginRateWindow  time.Duration
	SignupRateLimit  int
	SignupRateWindow time.Duration
	APIRateLimit     int
	APIRateWindow    time.Duration

	CORSAllowedOrigins []string

	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromAddress string
	MailQueueSize   int64
}

// Production reports whether the service runs in production hardening mode
// (secure cookies, HSTS, mandatory secrets).
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		Environment string `yaml:"environment"`
		HTTPPort    int    `yaml:"http_port"`
		GRPCPort    int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Tokens struct {
		Issuer   string `yaml:"issuer"`
		Audience string `yaml:"audience"`
	} `yaml:"tokens"`
	Verification struct {
		URLBase string `yaml:"url_base"`
	} `yaml:"verification"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	SMTP struct {
		Host        string `yaml:"host"`
		Port        string `yaml:"port"`
		FromAddress string `yaml:"from_address"`
	} `yaml:"smtp"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific
// overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:            "auth-service",
		Environment:          "development",
		HTTPPort:             8080,
		GRPCPort:             9090,
		MaxDBConns:           20,
		TokenIssuer:          "auth-service",
		TokenAudience:        "lumio-app",
		AccessTTL:            15 * time.Minute,
		RefreshTTL:           7 * 24 * time.Hour,
		BcryptCost:           12,
		VerificationTokenTTL: 24 * time.Hour,
		VerifyURLBase:        "http://localhost:8080/auth/verify-email",
		LoginRateLimit:       5,
		LoginRateWindow:      15 * time.Minute,
		SignupRateLimit:      3,
		SignupRateWindow:     60 * time.Minute,
		APIRateLimit:         100,
		APIRateWindow:        15 * time.Minute,
		CORSAllowedOrigins:   []string{"http://localhost:3000"},
		SMTPPort:             "587",
		MailQueueSize:        1000,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.Environment != "" {
			cfg.Environment = f.Service.Environment
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Tokens.Issuer != "" {
			cfg.TokenIssuer = f.Tokens.Issuer
		}
		if f.Tokens.Audience != "" {
			cfg.TokenAudience = f.Tokens.Audience
		}
		if f.Verification.URLBase != "" {
			cfg.VerifyURLBase = f.Verification.URLBase
		}
		if len(f.CORS.AllowedOrigins) > 0 {
			cfg.CORSAllowedOrigins = f.CORS.AllowedOrigins
		}
		if f.SMTP.Host != "" {
			cfg.SMTPHost = f.SMTP.Host
		}
		if f.SMTP.Port != "" {
			cfg.SMTPPort = f.SMTP.Port
		}
		if f.SMTP.FromAddress != "" {
			cfg.SMTPFromAddress = f.SMTP.FromAddress
		}
	}

	cfg.Environment = envOrDefault("APP_ENV", cfg.Environment)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.AccessSecret = envOrDefault("JWT_ACCESS_SECRET", cfg.AccessSecret)
	cfg.RefreshSecret = envOrDefault("JWT_REFRESH_SECRET", cfg.RefreshSecret)
	cfg.TokenIssuer = envOrDefault("JWT_ISSUER", cfg.TokenIssuer)
	cfg.TokenAudience = envOrDefault("JWT_AUDIENCE", cfg.TokenAudience)
	cfg.VerifyURLBase = envOrDefault("VERIFY_URL_BASE", cfg.VerifyURLBase)
	cfg.CORSAllowedOrigins = envCSV("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.SMTPHost = envOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envOrDefault("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envOrDefault("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPFromAddress = envOrDefault("SMTP_FROM_ADDRESS", cfg.SMTPFromAddress)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.MailQueueSize = int64(envInt("MAIL_QUEUE_SIZE", int(cfg.MailQueueSize)))

	cfg.AccessTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_MINUTES", int(cfg.AccessTTL.Minutes()))) * time.Minute
	cfg.RefreshTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", int(cfg.RefreshTTL.Hours()/24))) * 24 * time.Hour
	cfg.VerificationTokenTTL = time.Duration(envInt("VERIFICATION_TOKEN_TTL_HOURS", int(cfg.VerificationTokenTTL.Hours()))) * time.Hour

	cfg.LoginRateLimit = envInt("LOGIN_RATE_LIMIT", cfg.LoginRateLimit)
	cfg.LoginRateWindow = time.Duration(envInt("LOGIN_RATE_WINDOW_MINUTES", int(cfg.LoginRateWindow.Minutes()))) * time.Minute
	cfg.SignupRateLimit = envInt("SIGNUP_RATE_LIMIT", cfg.SignupRateLimit)
	cfg.SignupRateWindow = time.Duration(envInt("SIGNUP_RATE_WINDOW_MINUTES", int(cfg.SignupRateWindow.Minutes()))) * time.Minute
	cfg.APIRateLimit = envInt("API_RATE_LIMIT", cfg.APIRateLimit)
	cfg.APIRateWindow = time.Duration(envInt("API_RATE_WINDOW_MINUTES", int(cfg.APIRateWindow.Minutes()))) * time.Minute

	if cfg.AccessSecret == "" {
		if cfg.Production() {
			return Config{}, fmt.Errorf("missing JWT_ACCESS_SECRET")
		}
		// Dev-only fallback so a bare checkout boots without setup.
		cfg.AccessSecret = "dev-insecure-access-secret"
	}
	if cfg.Production() && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
