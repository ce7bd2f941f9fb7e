package middleware

import (
	"fmt"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"pairchat/internal/infrastructure/metrics"
	"pairchat/internal/infrastructure/ratelimit"
	"pairchat/pkg/errors"
	"pairchat/pkg/logger"
)

// RateLimit throttles action per authenticated user, falling back to the
// client IP for anonymous routes.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if uid, ok := UserID(c); ok {
				key = strconv.FormatInt(uid, 10)
			}

			allowed, wait := limiter.Allow(key, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s blocked for %s (retry in %v)", action, key, wait)
				metrics.RateLimited.WithLabelValues(action).Inc()
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				return errors.TooManyRequests(fmt.Sprintf("Rate limit exceeded for %s", action))
			}
			return next(c)
		}
	}
}
