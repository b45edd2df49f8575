package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
)

// RequireRoles must run after AttachJWTLocals.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[string]bool{}
	for _, r := range allowed {
		allowedSet[strings.ToLower(string(r))] = true
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if role == "" {
			return fiber.ErrUnauthorized
		}
		if !allowedSet[role] {
			return fiber.NewError(fiber.StatusForbidden, "forbidden: insufficient role")
		}
		return c.Next()
	}
}
