package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/utils"
)

// AttachJWTLocals copies uid and role from the validated token into
// c.Locals("userId") and c.Locals("role").
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return fiber.ErrUnauthorized
		}

		claims, ok := token.Claims.(*utils.Claims)
		if !ok {
			return fiber.ErrUnauthorized
		}

		uid := strings.TrimSpace(claims.UserID)
		if _, err := uuid.Parse(uid); err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals("userId", uid)
		c.Locals("role", strings.ToLower(strings.TrimSpace(claims.Role)))

		return c.Next()
	}
}
