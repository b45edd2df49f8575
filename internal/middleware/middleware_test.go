package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/utils"
)

const secret = "test-secret"

func newApp() *fiber.App {
	app := fiber.New()
	protected := app.Group("/", JWT(secret), AttachJWTLocals())
	protected.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("userId").(string) + "|" + c.Locals("role").(string))
	})
	protected.Get("/dev-only", RequireRoles(models.RoleDeveloper), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func token(t *testing.T, uid, role string) string {
	t.Helper()
	tok, err := utils.SignJWT(secret, uid, role, 5)
	require.NoError(t, err)
	return tok
}

func TestJWTFromHeader(t *testing.T) {
	uid := uuid.NewString()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, uid, "CLIENT"))

	resp, err := newApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, uid+"|client", string(body))
}

func TestJWTFromCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Cookie", TokenCookie+"="+token(t, uuid.NewString(), "developer"))

	resp, err := newApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTRejectsMissingAndForeignTokens(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	foreign, err := utils.SignJWT("other-secret", uuid.NewString(), "client", 5)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "not-a-uuid", "client"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRoles(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest("GET", "/dev-only", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, uuid.NewString(), "client"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/dev-only", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, uuid.NewString(), "Developer"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
