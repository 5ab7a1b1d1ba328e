package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/api/middleware"
	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/service"
	"github.com/limaJavier/smartclassroom/pkg/response"
)

type AuthHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewAuthHandler(users service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

type loginRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Type     domain.Role `json:"type"`
}

type loginResponse struct {
	SessionId string      `json:"sessionId"`
	LoginTime time.Time   `json:"loginTime"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

// Login POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	session, user, err := h.users.Login(c.Request.Context(), req.Username, req.Password, req.Type)
	if err != nil {
		if errors.Is(err, service.ErrUnknownUser) || errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid credentials, please try again")
			return
		}
		fail(c, h.logger, err)
		return
	}

	response.OK(c, loginResponse{
		SessionId: session.Id,
		LoginTime: session.LoginTime,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	})
}

// Logout POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), middleware.CurrentSessionId(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, nil)
}

// Me GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := mustGetUser(c)
	if !ok {
		return
	}
	response.OK(c, user)
}
