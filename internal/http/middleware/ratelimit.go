package middleware

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimit is a process-wide token bucket. rps <= 0 disables limiting.
func RateLimit(rps float64, burst int) fiber.Handler {
	if rps <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *fiber.Ctx) error {
		if !lim.Allow() {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}
