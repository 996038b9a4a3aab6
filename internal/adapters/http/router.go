package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router assembles the full middleware chain and route table. Order matters:
// request id and recovery wrap everything, security headers and CORS run
// before rate limiting so rejected requests still carry them.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	r.Use(h.securityHeadersMiddleware)
	r.Use(h.corsMiddleware)

	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyz)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimitMiddleware(h.cfg.Policies.Signup))
			r.Post("/signup", h.handleSignup)
			// POST to verify-email resends the link by address.
			r.Post("/verify-email", h.handleResendVerification)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.rateLimitMiddleware(h.cfg.Policies.Login))
			r.Post("/login", h.handleLogin)
			r.Post("/refresh", h.handleRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.rateLimitMiddleware(h.cfg.Policies.API))
			r.Get("/verify-email", h.handleVerifyEmail)
			r.Post("/logout", h.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware)
				r.Get("/me", h.handleMe)
				r.Get("/security/stats", h.handleSecurityStats)
			})
		})
	})

	return r
}
