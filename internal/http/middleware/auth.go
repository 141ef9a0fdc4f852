package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docrepo/internal/auth"
	"docrepo/internal/model"
)

// CallerLocalKey is the fiber locals key the authenticated caller is stored under.
const CallerLocalKey = "caller"

// Auth resolves the bearer token into a model.Caller. Missing or invalid tokens end the
// request with 401 through the app's error handler.
func Auth(j *auth.JWTer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ah := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(ah, "Bearer ") {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		if !claims.Role.Valid() {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(CallerLocalKey, claims.Caller())
		return c.Next()
	}
}

// CallerFromCtx returns the caller stored by Auth.
func CallerFromCtx(c *fiber.Ctx) (model.Caller, bool) {
	caller, ok := c.Locals(CallerLocalKey).(model.Caller)
	return caller, ok
}
