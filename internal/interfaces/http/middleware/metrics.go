package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	prom "github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts, latency and in-flight requests.  The route
// template is used as the path label so ids never explode cardinality;
// unmatched routes are grouped under "unmatched".
func Metrics(m *prom.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		active := m.HTTPActiveRequests.WithLabelValues(path)
		active.Inc()
		start := time.Now()

		c.Next()

		active.Dec()
		prom.RecordHTTPRequest(m, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
