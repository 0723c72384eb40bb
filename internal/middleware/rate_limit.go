package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/slotbook/booking-engine/internal/utils"
)

// RateLimiter records a request and reports whether the caller is over budget
type RateLimiter interface {
	Check(ctx context.Context, scope, identifier string) error
}

// RateLimit throttles requests per client IP for the given scope.
// Limiter failures let the request through.
func RateLimit(limiter RateLimiter, scope string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := utils.GetRealIP(c)

		err := limiter.Check(c.Request.Context(), scope, ip)
		if err == nil {
			c.Next()
			return
		}

		var rlErr *models.RateLimitError
		if errors.As(err, &rlErr) {
			retryAfter := int(math.Ceil(rlErr.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.WithFields(logrus.Fields{
				"scope":       scope,
				"ip":          ip,
				"retry_after": retryAfter,
			}).Warn("Rate limit exceeded")

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": rlErr.Error(),
				"code":    "RATE_LIMITED",
			})
			return
		}

		logger.WithError(err).WithField("scope", scope).Warn("Rate limiter unavailable, allowing request")
		c.Next()
	}
}
