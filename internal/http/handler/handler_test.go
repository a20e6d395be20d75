package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/apperr"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/config"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestValidateDetails(t *testing.T) {
	score, msg := validateDetails(nil)
	require.Nil(t, score)
	require.Empty(t, msg)

	score, msg = validateDetails(domain.RiskDetails{"reason": "manual", "score": float64(55)})
	require.Empty(t, msg)
	require.NotNil(t, score)
	require.Equal(t, 55, *score)

	_, msg = validateDetails(domain.RiskDetails{"reason": 12.0})
	require.Equal(t, "details.reason must be a string", msg)

	for _, bad := range []any{float64(-1), float64(101), 12.5, "40", true} {
		_, msg = validateDetails(domain.RiskDetails{"score": bad})
		require.Equal(t, "details.score must be a whole number between 0 and 100", msg, "%v", bad)
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, zap.NewNop(), errors.New("pq: connection refused"))

	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, internalErrorMessage, env.Message)
	require.NotContains(t, w.Body.String(), "connection refused")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, zap.NewNop(), apperr.Conflict("already there"))
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "already there")
}

func TestObservedSignals(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.Header.Set("User-Agent", "agent/1.0")

	claimed := domain.SessionSignals{IPAddress: "10.0.0.1", UserAgent: "claimed"}

	got := observedSignals(c, claimed, false)
	require.Equal(t, "192.0.2.1", got.IPAddress)
	require.Equal(t, "agent/1.0", got.UserAgent)

	got = observedSignals(c, claimed, true)
	require.Equal(t, "10.0.0.1", got.IPAddress)
	require.Equal(t, "claimed", got.UserAgent)

	got = observedSignals(c, domain.SessionSignals{}, true)
	require.Equal(t, "192.0.2.1", got.IPAddress)
}

func TestCookieConfigFollowsEnvironment(t *testing.T) {
	prod := NewCookieConfig(config.Config{Environment: "production"})
	require.True(t, prod.Secure)
	require.Equal(t, http.SameSiteStrictMode, prod.SameSite)

	dev := NewCookieConfig(config.Config{Environment: "development"})
	require.False(t, dev.Secure)
	require.Equal(t, http.SameSiteLaxMode, dev.SameSite)
}

func TestHealthReportsFailingDependency(t *testing.T) {
	h := NewHealthHandler(map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	h.Health(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var env struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Message string            `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, "Service unavailable", env.Message)
	require.Equal(t, map[string]string{"postgres": "ok", "redis": "down"}, env.Data)
}

func TestBindCredentialsRejectsMalformedJSON(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	_, ok := bindCredentials(c)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Invalid request body")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	_, ok = bindCredentials(c)
	require.True(t, ok)
}
