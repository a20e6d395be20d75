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

// AuthHandler serves the session lifecycle endpoints under /api/auth.
type AuthHandler struct {
	Sessions *service.SessionService
	Cookies  CookieConfig
	Logger   *zap.Logger
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(sessions *service.SessionService, cookies CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Sessions: sessions, Cookies: cookies, Logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	domain.SessionSignals
}

type authResponse struct {
	AccessToken string                `json:"accessToken"`
	Message     string                `json:"message"`
	User        service.UserViewModel `json:"user"`
	Risk        service.RiskViewModel `json:"risk"`
}

type refreshResponse struct {
	AccessToken string                `json:"accessToken"`
	User        service.UserViewModel `json:"user"`
}

// bindCredentials tolerates an empty body so the service reports the missing
// fields with its own message.
func bindCredentials(c *gin.Context) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	return req, true
}

// Register creates the app user and opens the first session.
func (h *AuthHandler) Register(c *gin.Context) {
	appCtx, ok := middleware.GetApplicationContext(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Please provide an API key")
		return
	}
	req, ok := bindCredentials(c)
	if !ok {
		return
	}

	res, err := h.Sessions.Register(c.Request.Context(), appCtx, req.Email, req.Password, observedSignals(c, req.SessionSignals, false))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	h.Cookies.setRefresh(c, res.Tokens.RefreshToken)
	response.OK(c, http.StatusCreated, authResponse{
		AccessToken: res.Tokens.AccessToken,
		Message:     "Registered successfully",
		User:        service.UserViewModel{ID: res.User.ID, Email: res.User.Email},
		Risk:        res.Risk,
	})
}

// Login authenticates and opens a session unless the risk decision denies it.
func (h *AuthHandler) Login(c *gin.Context) {
	appCtx, ok := middleware.GetApplicationContext(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Please provide an API key")
		return
	}
	req, ok := bindCredentials(c)
	if !ok {
		return
	}

	res, err := h.Sessions.Login(c.Request.Context(), appCtx, req.Email, req.Password, observedSignals(c, req.SessionSignals, false))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	h.Cookies.setRefresh(c, res.Tokens.RefreshToken)
	response.OK(c, http.StatusOK, authResponse{
		AccessToken: res.Tokens.AccessToken,
		Message:     "Logged in successfully",
		User:        service.UserViewModel{ID: res.User.ID, Email: res.User.Email},
		Risk:        res.Risk,
	})
}

// Refresh rotates the refresh cookie. Every failure clears it.
func (h *AuthHandler) Refresh(c *gin.Context) {
	appCtx, ok := middleware.GetApplicationContext(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Please provide an API key")
		return
	}

	token, _ := c.Cookie(RefreshCookieName)
	res, err := h.Sessions.Refresh(c.Request.Context(), appCtx, token)
	if err != nil {
		h.Cookies.clearRefresh(c)
		respondError(c, h.Logger, err)
		return
	}

	h.Cookies.setRefresh(c, res.Tokens.RefreshToken)
	response.OK(c, http.StatusOK, refreshResponse{AccessToken: res.Tokens.AccessToken, User: res.User})
}

// Logout revokes what it can and always succeeds. Browsers only send the
// refresh cookie to the refresh path, so the token may also come in the body.
func (h *AuthHandler) Logout(c *gin.Context) {
	access, _ := middleware.BearerToken(c.GetHeader("Authorization"))
	refresh, _ := c.Cookie(RefreshCookieName)
	if refresh == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = c.ShouldBindJSON(&body)
		refresh = body.RefreshToken
	}

	h.Sessions.Logout(c.Request.Context(), access, refresh)
	h.Cookies.clearRefresh(c)
	response.OK(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}
