package http

import (
	"net/http"
	"strings"

	"github.com/lumioapp/auth-service/internal/ports"
)

const (
	accessCookieName  = "access-token"
	refreshCookieName = "refresh-token"

	// Older clients still read the combined cookie; it mirrors the access
	// token and is cleared on logout like the others.
	legacyCookieName = "auth-token"
)

func (h *Handler) setAuthCookies(w http.ResponseWriter, pair ports.TokenPair) {
	accessAge := int(h.tokens.AccessTTL().Seconds())
	http.SetCookie(w, h.authCookie(accessCookieName, pair.AccessToken, accessAge))
	http.SetCookie(w, h.authCookie(refreshCookieName, pair.RefreshToken, int(h.tokens.RefreshTTL().Seconds())))
	http.SetCookie(w, h.authCookie(legacyCookieName, pair.AccessToken, accessAge))
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName, legacyCookieName} {
		cookie := h.authCookie(name, "", 0)
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (h *Handler) authCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.Production,
		SameSite: http.SameSiteLaxMode,
	}
}

// tokensFromRequest extracts the access and refresh credentials. The
// Authorization header wins over cookies for the access token.
func tokensFromRequest(r *http.Request) (access, refresh string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
			access = strings.TrimSpace(rest)
		}
	}
	if access == "" {
		if c, err := r.Cookie(accessCookieName); err == nil {
			access = c.Value
		}
	}
	if access == "" {
		if c, err := r.Cookie(legacyCookieName); err == nil {
			access = c.Value
		}
	}
	if c, err := r.Cookie(refreshCookieName); err == nil {
		refresh = c.Value
	}
	return access, refresh
}
