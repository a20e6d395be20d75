package handler

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/middleware"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/response"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/service"
)

// Known keys of the open details object on reported risk events.
const (
	detailReason = "reason"
	detailScore  = "score"
)

// RiskHandler serves /api/risks.
type RiskHandler struct {
	Sessions *service.SessionService
	Logger   *zap.Logger
}

// NewRiskHandler creates the handler.
func NewRiskHandler(sessions *service.SessionService, logger *zap.Logger) *RiskHandler {
	return &RiskHandler{Sessions: sessions, Logger: logger}
}

type riskRequest struct {
	SessionID string             `json:"sessionId"`
	Type      string             `json:"type"`
	Severity  string             `json:"severity"`
	Details   domain.RiskDetails `json:"details"`
}

// Create appends a reported risk event to one of the caller's sessions.
func (h *RiskHandler) Create(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized or token is not valid for this application")
		return
	}

	var req riskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Missing required fields: sessionId, type, severity")
		return
	}

	score, message := validateDetails(req.Details)
	if message != "" {
		response.Fail(c, http.StatusBadRequest, message)
		return
	}

	ev, err := h.Sessions.ReportRisk(c.Request.Context(), principal, service.RiskReport{
		SessionID: strings.TrimSpace(req.SessionID),
		Type:      strings.TrimSpace(req.Type),
		Severity:  strings.ToLower(strings.TrimSpace(req.Severity)),
		Details:   req.Details,
		Score:     score,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusCreated, ev)
}

// List returns the events recorded against ?sessionId=.
func (h *RiskHandler) List(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized or token is not valid for this application")
		return
	}

	events, err := h.Sessions.ListRisks(c.Request.Context(), principal, strings.TrimSpace(c.Query("sessionId")))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, events)
}

// validateDetails checks the known keys and returns the reported score, if any.
func validateDetails(details domain.RiskDetails) (*int, string) {
	if raw, ok := details[detailReason]; ok {
		if _, isString := raw.(string); !isString {
			return nil, "details.reason must be a string"
		}
	}
	raw, ok := details[detailScore]
	if !ok {
		return nil, ""
	}
	value, isNumber := raw.(float64)
	if !isNumber || value != math.Trunc(value) || value < 0 || value > 100 {
		return nil, "details.score must be a whole number between 0 and 100"
	}
	score := int(value)
	return &score, ""
}
