package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/response"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
)

const publicKeyCacheControl = "public, max-age=86400, must-revalidate"

// WellKnownHandler publishes the access token verification key.
type WellKnownHandler struct {
	Keys *jwt.KeyStore
}

// NewWellKnownHandler creates the handler.
func NewWellKnownHandler(keys *jwt.KeyStore) *WellKnownHandler {
	return &WellKnownHandler{Keys: keys}
}

// PublicKey serves the PEM encoded public key.
func (h *WellKnownHandler) PublicKey(c *gin.Context) {
	c.Header("Cache-Control", publicKeyCacheControl)
	c.Data(http.StatusOK, "application/x-pem-file", h.Keys.PublicKeyPEM())
}

// JWKS serves the same key as a JSON Web Key Set.
func (h *WellKnownHandler) JWKS(c *gin.Context) {
	c.Header("Cache-Control", publicKeyCacheControl)
	c.JSON(http.StatusOK, h.Keys.JWKS())
}

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports whether the dependencies answer.
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates the handler with named checks.
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health runs every check and responds 503 when any fails.
func (h *HealthHandler) Health(c *gin.Context) {
	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			_ = c.Error(err)
			results[name] = "down"
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.Envelope{
			Success: false,
			Data:    results,
			Message: "Service unavailable",
			Status:  http.StatusServiceUnavailable,
		})
		return
	}
	response.OK(c, http.StatusOK, results)
}
