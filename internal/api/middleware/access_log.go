package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog writes one entry per finished request. Server errors log at error, client errors at warn.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		if entry := logger.Check(accessLevel(c.Writer.Status()), "http request"); entry != nil {
			entry.Write(accessFields(c, time.Since(began))...)
		}
	}
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

func accessFields(c *gin.Context, took time.Duration) []zap.Field {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}

	fields := []zap.Field{
		zap.String("trace_id", TraceId(c)),
		zap.String("method", c.Request.Method),
		zap.String("route", route),
		zap.String("uri", c.Request.URL.RequestURI()),
		zap.Int("status", c.Writer.Status()),
		zap.Int("bytes", max(c.Writer.Size(), 0)),
		zap.Duration("took", took),
		zap.String("client", c.ClientIP()),
	}
	if user, ok := CurrentUser(c); ok {
		fields = append(fields, zap.String("user", user.Username))
	}
	if private := c.Errors.ByType(gin.ErrorTypePrivate); len(private) > 0 {
		fields = append(fields, zap.Strings("errors", private.Errors()))
	}
	return fields
}
