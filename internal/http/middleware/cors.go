package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/config"
)

// Preflight answers CORS preflight requests. Browsers do not send the API key
// on preflight, so the origin is echoed here and enforced per application on
// the actual request by ApplicationCORS.
func Preflight(cfg config.Config) gin.HandlerFunc {
	joinedMethods := strings.Join(cfg.CORSAllowedMethods, ", ")
	joinedHeaders := strings.Join(cfg.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Set("Vary", "Origin")
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Methods", joinedMethods)
		header.Set("Access-Control-Allow-Headers", joinedHeaders)
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Set("Access-Control-Max-Age", "600")
		c.AbortWithStatus(http.StatusNoContent)
	}
}

// ApplicationCORS applies CORS headers for origins the calling application
// allows. It must run after Application.
func ApplicationCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		appCtx, ok := GetApplicationContext(c)
		if !ok || !appCtx.Application.AllowsOrigin(origin) {
			c.Next()
			return
		}

		// Cookies ride along, so the wildcard is never echoed literally.
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")
		c.Next()
	}
}
