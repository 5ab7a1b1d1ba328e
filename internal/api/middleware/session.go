package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/service"
	"github.com/limaJavier/smartclassroom/pkg/response"
)

const (
	SessionHeader = "X-Session-ID"

	userKey      = "user"
	sessionIdKey = "session_id"
)

// SessionAuth resolves the X-Session-ID header into the current user
func SessionAuth(users service.UserService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			response.Unauthorized(c, "missing session")
			c.Abort()
			return
		}

		_, user, err := users.Session(c.Request.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSessionExpired):
				response.Unauthorized(c, "session expired, please log in again")
			case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrUnknownUser):
				response.Unauthorized(c, "invalid session")
			default:
				logger.Error("cannot resolve session", zap.Error(err))
				response.InternalError(c)
			}
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Set(sessionIdKey, id)
		c.Next()
	}
}

// RequireRole rejects users that do not hold the role
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Unauthorized(c, "not authenticated")
			c.Abort()
			return
		}
		if !user.Can(role) {
			response.Forbidden(c, "permission denied")
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (domain.User, bool) {
	value, exists := c.Get(userKey)
	if !exists {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}

func CurrentSessionId(c *gin.Context) string {
	return c.GetString(sessionIdKey)
}
