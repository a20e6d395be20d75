package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/config"
)

const (
	// RefreshCookieName holds the refresh token on the client.
	RefreshCookieName = "refreshToken"
	// RefreshCookiePath scopes the cookie to the refresh endpoint.
	RefreshCookiePath = "/api/auth/refresh"
)

// CookieConfig controls how the refresh cookie is written.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// NewCookieConfig derives cookie settings from the environment: strict and
// secure in production, lax over plain HTTP elsewhere.
func NewCookieConfig(cfg config.Config) CookieConfig {
	if cfg.IsProduction() {
		return CookieConfig{Secure: true, SameSite: http.SameSiteStrictMode, MaxAge: cfg.RefreshTokenTTL}
	}
	return CookieConfig{Secure: false, SameSite: http.SameSiteLaxMode, MaxAge: cfg.RefreshTokenTTL}
}

func (cc CookieConfig) setRefresh(c *gin.Context, token string) {
	c.SetSameSite(cc.SameSite)
	c.SetCookie(RefreshCookieName, token, int(cc.MaxAge.Seconds()), RefreshCookiePath, "", cc.Secure, true)
}

func (cc CookieConfig) clearRefresh(c *gin.Context) {
	c.SetSameSite(cc.SameSite)
	c.SetCookie(RefreshCookieName, "", -1, RefreshCookiePath, "", cc.Secure, true)
}
