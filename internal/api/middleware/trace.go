package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceHeader carries the id that ties a response to its access log line
const TraceHeader = "X-Request-ID"

const (
	traceKey       = "trace_id"
	maxTraceLength = 64
)

// Trace tags every request with an id. A caller supplied id is kept when it is a short printable token.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceHeader)
		if !acceptableTraceId(id) {
			id = uuid.NewString()
		}
		c.Set(traceKey, id)
		c.Header(TraceHeader, id)
		c.Next()
	}
}

// TraceId returns the id assigned by Trace, or "" when Trace did not run
func TraceId(c *gin.Context) string {
	return c.GetString(traceKey)
}

func acceptableTraceId(id string) bool {
	if id == "" || len(id) > maxTraceLength {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool { return r <= ' ' || r > '~' })
}
