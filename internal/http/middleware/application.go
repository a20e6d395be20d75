package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/application"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/response"
)

const (
	applicationContextKey = "applicationContext"
	// APIKeyHeader carries the application API key on every /api request.
	APIKeyHeader = "x-api-key"
)

// Application resolves the calling application from its API key.
func Application(verifier *application.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		appCtx, err := verifier.Verify(c.Request.Context(), c.GetHeader(APIKeyHeader))
		switch {
		case errors.Is(err, application.ErrMissingAPIKey):
			response.Abort(c, http.StatusUnauthorized, "Please provide an API key")
			return
		case errors.Is(err, application.ErrInvalidAPIKey):
			response.Abort(c, http.StatusUnauthorized, "The provided API key is not valid")
			return
		case err != nil:
			_ = c.Error(err)
			response.Abort(c, http.StatusInternalServerError, "Something went wrong")
			return
		}
		c.Set(applicationContextKey, appCtx)
		c.Next()
	}
}

// GetApplicationContext extracts the application context from gin.
func GetApplicationContext(c *gin.Context) (*application.Context, bool) {
	value, ok := c.Get(applicationContextKey)
	if !ok {
		return nil, false
	}
	appCtx, ok := value.(*application.Context)
	return appCtx, ok
}

// SetApplicationContext stores appCtx on the gin context.
func SetApplicationContext(c *gin.Context, appCtx *application.Context) {
	c.Set(applicationContextKey, appCtx)
}
