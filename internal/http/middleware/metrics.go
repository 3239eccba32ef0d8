package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docfill-backend/internal/observability"
)

const unmatchedRoute = "unmatched"

// infraRoutes are scraped or polled by infrastructure and stay out of the
// request series.
var infraRoutes = map[string]bool{
	"/metrics":     true,
	"/healthcheck": true,
	"/readyz":      true,
}

// Metrics records request counts and latency per route template, so every
// session shares one series such as /api/sessions/:id/next.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if infraRoutes[route] {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		if route == "" {
			route = unmatchedRoute
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
