package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumioapp/auth-service/internal/application"
	"github.com/lumioapp/auth-service/internal/authlog"
	"github.com/lumioapp/auth-service/internal/domain"
	"github.com/lumioapp/auth-service/internal/ports"
	"github.com/lumioapp/auth-service/internal/ratelimit"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyClaims    ctxKey = "auth_claims"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpLogger().ErrorContext(r.Context(), "panic recovered",
					"operation", "http_panic_recovery",
					"outcome", "failure",
					"request_id", requestIDFromContext(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(payload []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(payload)
	r.bytes += n
	return n, err
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		statusCode := recorder.statusCode
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		outcome := "success"
		if statusCode >= 400 {
			outcome = "failure"
		}

		fields := []any{
			"operation", "http_request",
			"outcome", outcome,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", statusCode,
			"bytes", recorder.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestIDFromContext(r.Context()),
		}
		switch {
		case statusCode >= 500:
			httpLogger().ErrorContext(r.Context(), "http request completed", fields...)
		case statusCode >= 400:
			httpLogger().WarnContext(r.Context(), "http request completed", fields...)
		default:
			httpLogger().InfoContext(r.Context(), "http request completed", fields...)
		}
	})
}

// securityHeadersMiddleware decorates every response before the handler runs
// so short-circuiting stages downstream still emit the full header set.
func (h *Handler) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")
		hdr.Set("X-Frame-Options", "DENY")
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		hdr.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		hdr.Set("X-XSS-Protection", "1; mode=block")
		hdr.Set("Cross-Origin-Opener-Policy", "same-origin")
		hdr.Set("Cross-Origin-Resource-Policy", "same-origin")
		if h.cfg.Production {
			hdr.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// CORSPolicy is the static cross-origin configuration.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

func (p CORSPolicy) originAllowed(origin string) bool {
	for _, allowed := range p.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// corsMiddleware applies response headers for allowed origins and
// short-circuits OPTIONS preflight requests with 204.
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	policy := h.cfg.CORS
	methods := strings.Join(policy.AllowedMethods, ", ")
	headers := strings.Join(policy.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(int(policy.MaxAge.Seconds()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && policy.originAllowed(origin) {
			hdr := w.Header()
			hdr.Set("Access-Control-Allow-Origin", origin)
			hdr.Add("Vary", "Origin")
			if policy.AllowCredentials {
				hdr.Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method == http.MethodOptions {
				hdr.Set("Access-Control-Allow-Methods", methods)
				hdr.Set("Access-Control-Allow-Headers", headers)
				hdr.Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		} else if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware enforces one policy per route group. Limiting runs
// before any parsing or crypto so abusive traffic is rejected cheaply, and
// X-RateLimit headers are attached to accepted responses too.
func (h *Handler) rateLimitMiddleware(policy ratelimit.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := clientIP(r)
			res, err := h.limiter.Check(r.Context(), policy, clientKey)
			if err != nil {
				// A broken counter store must not take auth down with it.
				httpLogger().ErrorContext(r.Context(), "rate limit check failed",
					"operation", "rate_limit",
					"outcome", "failure",
					"scope", policy.Scope,
					"error", err.Error(),
				)
				next.ServeHTTP(w, r)
				return
			}

			hdr := w.Header()
			hdr.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			hdr.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			hdr.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				hdr.Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				h.events.Record(authlog.Entry{
					Event:     authlog.EventRateLimitExceeded,
					IP:        clientKey,
					UserAgent: r.UserAgent(),
					Metadata:  map[string]any{"scope": policy.Scope},
				})
				status, code, msg := mapDomainError(domain.ErrRateLimited)
				writeError(w, status, code, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authMiddleware verifies the access token (Authorization header first, then
// cookie) and stores the claims in the request context. Any verification
// failure collapses to a single 401 so callers cannot distinguish malformed,
// forged, wrong-type, and expired tokens.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access, _ := tokensFromRequest(r)
		if access == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
			return
		}

		claims, err := h.tokens.VerifyAccessToken(access)
		if err != nil {
			h.service.RecordTokenRejection(requestMeta(r), errors.Is(err, domain.ErrTokenExpired))
			logOperationFailure(r.Context(), "verify_access_token", http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token", err)
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return s
	}
	return ""
}

func claimsFromContext(ctx context.Context) (ports.TokenClaims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(ports.TokenClaims)
	return claims, ok
}

func requestMeta(r *http.Request) application.RequestMeta {
	return application.RequestMeta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"
	case errors.Is(err, domain.ErrEmailNotVerified):
		return http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Please verify your email address before logging in"
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, try again later"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logOperationFailure(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg)
}
