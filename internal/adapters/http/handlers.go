package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lumioapp/auth-service/internal/application"
	"github.com/lumioapp/auth-service/internal/ports"
)

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req application.SignupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	var fieldErrors []string
	if req.Email == "" {
		fieldErrors = append(fieldErrors, "email is required")
	}
	if req.Password == "" {
		fieldErrors = append(fieldErrors, "password is required")
	}
	if len(fieldErrors) > 0 {
		writeFieldErrors(w, "VALIDATION_ERROR", "missing required fields", fieldErrors)
		return
	}

	resp, err := h.service.Signup(r.Context(), req, requestMeta(r))
	if err != nil {
		writeMappedError(r.Context(), w, "signup", err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"message":          "Account created. Check your email for a verification link.",
		"user":             resp.User,
		"emailSent":        resp.EmailSent,
		"passwordStrength": resp.PasswordStrength,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.service.Login(r.Context(), req, requestMeta(r))
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}

	h.setAuthCookies(w, resp.Tokens)
	writeSuccess(w, http.StatusOK, map[string]any{
		"user":         resp.User,
		"accessToken":  resp.Tokens.AccessToken,
		"refreshToken": resp.Tokens.RefreshToken,
		"sessionId":    resp.Tokens.SessionID,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Logout is best effort: a missing or invalid token still clears cookies.
	var claims *ports.TokenClaims
	if access, _ := tokensFromRequest(r); access != "" {
		if c, err := h.tokens.VerifyAccessToken(access); err == nil {
			claims = &c
		}
	}
	h.service.Logout(r.Context(), claims, requestMeta(r))

	h.clearAuthCookies(w)
	writeMessage(w, http.StatusOK, "Logged out")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_, refresh := tokensFromRequest(r)
	if refresh == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(w, r, &body); err != nil || body.RefreshToken == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token")
			return
		}
		refresh = body.RefreshToken
	}

	resp, err := h.service.RefreshTokens(r.Context(), refresh, requestMeta(r))
	if err != nil {
		h.clearAuthCookies(w)
		writeMappedError(r.Context(), w, "refresh_tokens", err)
		return
	}

	h.setAuthCookies(w, resp.Tokens)
	writeSuccess(w, http.StatusOK, map[string]any{
		"accessToken":  resp.Tokens.AccessToken,
		"refreshToken": resp.Tokens.RefreshToken,
		"sessionId":    resp.Tokens.SessionID,
	})
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	user, err := h.service.VerifyEmail(r.Context(), token, requestMeta(r))
	if err != nil {
		writeMappedError(r.Context(), w, "verify_email", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "Email verified. You can now log in.",
		"user":    user,
	})
}

func (h *Handler) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.service.ResendVerification(r.Context(), body.Email, requestMeta(r)); err != nil {
		writeMappedError(r.Context(), w, "resend_verification", err)
		return
	}

	writeMessage(w, http.StatusOK, "If that address has an unverified account, a new link is on its way.")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
		return
	}

	user, err := h.service.Me(r.Context(), claims)
	if err != nil {
		writeMappedError(r.Context(), w, "me", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) handleSecurityStats(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"stats":  h.events.Statistics(24 * time.Hour),
		"alerts": h.events.RecentAlerts(20),
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok", "service": serviceName})
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", fmt.Sprintf("dependency unavailable: %v", err))
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"status": "ready"})
}
