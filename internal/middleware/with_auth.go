package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campusconnect/campus-api/internal/utils"
)

// RequireUser wraps a handler and rejects requests without an authenticated
// user. Used for routes mounted outside the JWT group, such as websocket
// upgrades that authenticate via query token.
func RequireUser(handler fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if AuthenticatedUser(c) == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		return handler(c)
	}
}

// AuthenticatedUser returns the user id bound to the request, or empty.
func AuthenticatedUser(c *fiber.Ctx) string {
	if value := c.Locals("user_id"); value != nil {
		if id, ok := value.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}
