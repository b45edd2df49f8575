package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/utils"
)

// TokenCookie holds the access token for browser sessions.
const TokenCookie = "jm_token"

// JWT validates the access token from the Authorization header, falling back
// to the session cookie, and stores the parsed *jwt.Token under "user".
func JWT(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(secret)},
		Claims:      &utils.Claims{},
		ContextKey:  "user",
		TokenLookup: "header:" + fiber.HeaderAuthorization + ",cookie:" + TokenCookie,
		AuthScheme:  "Bearer",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized",
			})
		},
	})
}
