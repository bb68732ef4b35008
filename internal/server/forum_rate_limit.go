package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentloop/internal/observability/logger"
	"go.uber.org/zap"
)

const headerUserID = "X-User-ID"

// ForumWriteRateLimit throttles forum mutations per caller. Limiter outages
// fail open so the forum stays writable without Redis.
func (s *Server) ForumWriteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.forumLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		subject := strings.TrimSpace(c.GetHeader(headerUserID))
		if subject == "" {
			subject = c.ClientIP()
		}

		result, err := s.forumLimiter.Allow(ctx, subject)
		if err != nil {
			logger.FromContext(ctx).Warn("forum write rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if result.Allowed {
			c.Next()
			return
		}

		endpoint := c.FullPath()
		logger.FromContext(ctx).Warn("forum write rate limit exceeded", zap.String("endpoint", endpoint))
		s.obsMetrics.RecordRateLimitDenied(ctx, endpoint)

		retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(max(retryAfter, 1)))
		AbortWithError(c, ErrRateLimited)
	}
}
