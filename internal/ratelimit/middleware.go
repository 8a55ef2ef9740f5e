package ratelimit

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
)

// IPRateLimitMiddleware creates middleware for IP-based rate limiting
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := rl.Allow("ip:" + c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retry := retryAfterSeconds(result)
			c.Header("Retry-After", retry)

			appErr := apperrors.NewRateLimitError(retry + "s")
			appErr.RequestID = c.GetString("request_id")
			apperrors.LogError(c, appErr)
			c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
				"error":       string(appErr.Category),
				"message":     appErr.Message(),
				"request_id":  appErr.RequestID,
				"retry_after": retry,
				"reset_at":    result.ResetAt.Unix(),
			})
			return
		}

		c.Next()
	}
}

// retryAfterSeconds rounds up so clients never retry too early
func retryAfterSeconds(r Result) string {
	secs := int(r.RetryAfter.Seconds())
	if float64(secs) < r.RetryAfter.Seconds() || secs == 0 {
		secs++
	}
	return strconv.Itoa(secs)
}
