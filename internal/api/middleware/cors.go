package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{"Content-Type", SessionHeader, TraceHeader}
)

// originPolicy decides which Origin values may read API responses
type originPolicy struct {
	anyOrigin bool
	allowed   map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	policy := originPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			policy.anyOrigin = true
			continue
		}
		policy.allowed[strings.ToLower(origin)] = struct{}{}
	}
	return policy
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, "" when it is refused
func (policy originPolicy) allowOrigin(origin string) string {
	if policy.anyOrigin {
		return "*"
	}
	if _, ok := policy.allowed[strings.ToLower(origin)]; ok && origin != "" {
		return origin
	}
	return ""
}

// CORS lets the configured origins call the API from a browser; "*" allows any origin.
// OPTIONS requests are answered here and never reach the routes.
func CORS(origins []string) gin.HandlerFunc {
	policy := newOriginPolicy(origins)
	methods := strings.Join(corsMethods, ", ")
	headers := strings.Join(corsHeaders, ", ")

	return func(c *gin.Context) {
		header := c.Writer.Header()
		if !policy.anyOrigin {
			header.Add("Vary", "Origin")
		}
		if allowed := policy.allowOrigin(c.GetHeader("Origin")); allowed != "" {
			header.Set("Access-Control-Allow-Origin", allowed)
			header.Set("Access-Control-Expose-Headers", TraceHeader)
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		header.Set("Access-Control-Allow-Methods", methods)
		header.Set("Access-Control-Allow-Headers", headers)
		header.Set("Access-Control-Max-Age", "86400")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
