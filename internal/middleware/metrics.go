package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedago-admin/internal/service"
	"github.com/noah-isme/pedago-admin/pkg/response"
)

// UnmatchedRoute labels requests that hit no registered route, keeping raw
// paths out of the label set.
const UnmatchedRoute = "unmatched"

// Metrics records every request against its route template. Error envelopes
// are also counted by application code, so refused wizard steps show up as
// WIZARD_STEP_INCOMPLETE or CONFLICT rather than a bare 4xx.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = UnmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		if code := response.ErrorCode(c); code != "" {
			metricsSvc.RecordHTTPError(route, code)
		}
	}
}
