package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"PatternTrade/internal/service/ratelimit"
)

// RateLimit rejects requests from a client IP that exceed the token
// bucket, returning 429.
func RateLimit(capacity, refillPerSec float64) echo.MiddlewareFunc {
	limiter := ratelimit.New()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow(c.RealIP(), capacity, refillPerSec) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
