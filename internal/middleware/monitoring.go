package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"vaultmail/backend/internal/monitoring"
)

// 未匹配路由的 endpoint 标签，避免任意路径造成标签膨胀
const unmatchedEndpoint = "unmatched"

// HTTPMetrics HTTP 指标中间件
func HTTPMetrics(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = unmatchedEndpoint
		}
		metrics.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
