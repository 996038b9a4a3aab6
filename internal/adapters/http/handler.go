package http

import (
	"net/http"

	"github.com/lumioapp/auth-service/internal/application"
	"github.com/lumioapp/auth-service/internal/authlog"
	"github.com/lumioapp/auth-service/internal/ports"
	"github.com/lumioapp/auth-service/internal/ratelimit"
)

// Config holds the transport-level settings for the HTTP adapter.
type Config struct {
	Production bool
	CORS       CORSPolicy
	Policies   ratelimit.Policies
}

// Handler owns the HTTP surface of the authentication service. All route
// handlers are methods on it; collaborators are injected once at startup.
type Handler struct {
	cfg     Config
	service *application.Service
	tokens  ports.TokenService
	limiter *ratelimit.Limiter
	events  *authlog.Recorder
	ready   func() error
}

type HandlerDependencies struct {
	Config  Config
	Service *application.Service
	Tokens  ports.TokenService
	Limiter *ratelimit.Limiter
	Events  *authlog.Recorder

	// Ready reports whether downstream dependencies are reachable. Nil means
	// always ready.
	Ready func() error
}

func NewHandler(deps HandlerDependencies) *Handler {
	cfg := deps.Config
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"}
	}
	if cfg.Policies == (ratelimit.Policies{}) {
		cfg.Policies = ratelimit.DefaultPolicies()
	}
	return &Handler{
		cfg:     cfg,
		service: deps.Service,
		tokens:  deps.Tokens,
		limiter: deps.Limiter,
		events:  deps.Events,
		ready:   deps.Ready,
	}
}
