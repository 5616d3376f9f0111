package middleware

import (
	"strconv"

	"plant-disease-api/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics counts requests per route template, so ids do not blow up the
// label cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
