package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/application"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/config"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/handler"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/middleware"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/response"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/metrics"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Sessions  *handler.SessionHandler
	Risks     *handler.RiskHandler
	WellKnown *handler.WellKnownHandler
	Health    *handler.HealthHandler
}

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	h Handlers,
	verifier *application.Verifier,
	authMiddleware *middleware.Auth,
	rateLimiter *middleware.RateLimiter,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*gin.Engine, error) {
	r := gin.New()
	// Client IPs feed risk scoring and rate limiting, so forwarding headers
	// are only honoured from configured proxies. Nil trusts none.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics(m))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.Preflight(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.GET("/healthz", h.Health.Health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.GET("/.well-known/publicKey", h.WellKnown.PublicKey)
	r.GET("/.well-known/jwks.json", h.WellKnown.JWKS)

	api := r.Group("/api", middleware.Application(verifier), middleware.ApplicationCORS())
	{
		// Older SDKs fetch the key under the API prefix.
		api.GET("/.well-known/publicKey", h.WellKnown.PublicKey)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		sessions := api.Group("/sessions", authMiddleware.ValidateJWT)
		{
			sessions.POST("", h.Sessions.Create)
			sessions.GET("", h.Sessions.List)
		}

		risks := api.Group("/risks", authMiddleware.ValidateJWT)
		{
			risks.POST("", h.Risks.Create)
			risks.GET("", h.Risks.List)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.Fail(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r, nil
}
