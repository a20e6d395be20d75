package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/middleware"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/response"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/service"
)

// SessionHandler serves /api/sessions.
type SessionHandler struct {
	Sessions *service.SessionService
	Logger   *zap.Logger
}

// NewSessionHandler creates the handler.
func NewSessionHandler(sessions *service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Logger: logger}
}

// Create scores the posted device signals and stores a session for the caller.
func (h *SessionHandler) Create(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized or token is not valid for this application")
		return
	}

	var signals domain.SessionSignals
	if err := c.ShouldBindJSON(&signals); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.Sessions.CreateSession(c.Request.Context(), principal, observedSignals(c, signals, true))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusCreated, res)
}

// List returns the caller's sessions, newest first.
func (h *SessionHandler) List(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized or token is not valid for this application")
		return
	}

	sessions, err := h.Sessions.ListSessions(c.Request.Context(), principal)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, sessions)
}
