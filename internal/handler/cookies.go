package handler

import (
	"net/http"
	"time"

	"videotube/internal/middleware"
)

const refreshTokenCookie = "refreshToken"

// CookieConfig controls the session cookies. SameSite=None is only valid on
// Secure cookies, so insecure deployments fall back to Lax.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieConfig) sameSite() http.SameSite {
	if c.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (c CookieConfig) cookie(name string, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	}
}

func (c CookieConfig) setSession(w http.ResponseWriter, accessToken string, refreshToken string) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, accessToken, c.AccessTTL))
	http.SetCookie(w, c.cookie(refreshTokenCookie, refreshToken, c.RefreshTTL))
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		cookie := c.cookie(name, "", 0)
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}
