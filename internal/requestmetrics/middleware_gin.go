package requestmetrics

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var skippedRoutes = map[string]struct{}{
	"/metrics":              {},
	"/health":               {},
	"/api/metrics/requests": {},
}

// GinMiddleware records every routed request into the metrics document.
// A failed write is logged and never affects the response.
func GinMiddleware(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if s == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if _, skip := skippedRoutes[route]; skip {
			return
		}

		elapsed := float64(time.Since(start).Microseconds()) / 1000
		ctx := context.WithoutCancel(c.Request.Context())
		if err := s.RecordRequest(ctx, c.Request.Method, route, c.Writer.Status(), elapsed); err != nil {
			s.log.Warn("record request metrics", zap.String("route", route), zap.Error(err))
		}
	}
}
