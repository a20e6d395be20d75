package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/response"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/service"
)

const principalKey = "principal"

// Auth validates the Authorization header and attaches the token payload.
type Auth struct {
	Tokens *service.TokenService
}

// NewAuth builds the bearer token middleware.
func NewAuth(tokens *service.TokenService) *Auth {
	return &Auth{Tokens: tokens}
}

// ValidateJWT ensures the request has a valid bearer token issued for the
// application identified by the API key.
func (m *Auth) ValidateJWT(c *gin.Context) {
	appCtx, ok := GetApplicationContext(c)
	if !ok {
		response.Abort(c, http.StatusUnauthorized, "Please provide an API key")
		return
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		response.Abort(c, http.StatusUnauthorized, "Authorization header is missing")
		return
	}
	token, ok := BearerToken(header)
	if !ok {
		response.Abort(c, http.StatusUnauthorized, "Token is missing from Authorization header")
		return
	}
	payload, err := m.Tokens.Verify(c.Request.Context(), token)
	if err != nil || payload.ApplicationID != appCtx.ID() {
		response.Abort(c, http.StatusUnauthorized, "Unauthorized or token is not valid for this application")
		return
	}
	c.Set(principalKey, payload)
	c.Next()
}

// GetPrincipal returns the verified access token payload.
func GetPrincipal(c *gin.Context) (*jwt.Payload, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	payload, ok := value.(*jwt.Payload)
	return payload, ok
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
