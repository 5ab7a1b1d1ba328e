package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/service"
	"github.com/limaJavier/smartclassroom/pkg/response"
)

type UserHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// ListUsers GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	users, err := h.users.List(c.Request.Context(), actor)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, users)
}

// CreateUser POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req service.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	user, err := h.users.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.Created(c, user)
}

// UpdateUser PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req service.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	user, err := h.users.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, user)
}

// DeleteUser DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, nil)
}
