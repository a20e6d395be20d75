package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/apperr"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/middleware"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/response"
)

const internalErrorMessage = "Something went wrong"

// respondError maps err onto the response envelope. Anything that is not an
// *apperr.Error is logged and reported as a bare 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	_ = c.Error(err)
	if appErr, ok := apperr.As(err); ok && appErr.Kind != apperr.KindInternal {
		response.Fail(c, appErr.Status(), appErr.Message)
		return
	}
	if logger == nil {
		logger = zap.L()
	}
	logger.Error("request failed",
		zap.String("request_id", middleware.RequestID(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	response.Fail(c, http.StatusInternalServerError, internalErrorMessage)
}

// observedSignals fills the network attributes the server can see itself.
// Values supplied by the client take precedence only when trustClient is set.
func observedSignals(c *gin.Context, signals domain.SessionSignals, trustClient bool) domain.SessionSignals {
	if !trustClient || strings.TrimSpace(signals.IPAddress) == "" {
		signals.IPAddress = c.ClientIP()
	}
	if !trustClient || strings.TrimSpace(signals.UserAgent) == "" {
		signals.UserAgent = c.Request.UserAgent()
	}
	return signals
}
