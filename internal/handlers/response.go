package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/projects"
)

func success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// respondError maps service errors to status codes. Unknown errors are logged
// and reported as 500 without leaking their text.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return fail(c, fiber.StatusNotFound, apperr.Message(err))
	case errors.Is(err, apperr.ErrForbidden):
		return fail(c, fiber.StatusForbidden, apperr.Message(err))
	case errors.Is(err, apperr.ErrUnauthorized):
		return fail(c, fiber.StatusUnauthorized, apperr.Message(err))
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrConflict):
		return fail(c, fiber.StatusBadRequest, apperr.Message(err))
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= fiber.StatusInternalServerError {
			capture(c, err)
		}
		return fail(c, fe.Code, fe.Message)
	}

	slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	capture(c, err)
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// ErrorHandler is the app-wide fiber.Config.ErrorHandler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return respondError(c, err)
}

func capture(c *fiber.Ctx, err error) {
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	v := c.Locals("userId")
	if v == nil {
		return uuid.Nil, apperr.Unauthorized("Unauthorized")
	}

	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		id, err := uuid.Parse(t)
		if err != nil {
			return uuid.Nil, apperr.Unauthorized("Unauthorized")
		}
		return id, nil
	default:
		return uuid.Nil, fmt.Errorf("invalid userId type: %T", v)
	}
}

func currentRole(c *fiber.Ctx) models.Role {
	role, _ := c.Locals("role").(string)
	return models.Role(role)
}

func currentActor(c *fiber.Ctx) (projects.Actor, error) {
	uid, err := getUserUUID(c)
	if err != nil {
		return projects.Actor{}, err
	}
	return projects.Actor{UserID: uid, Role: currentRole(c)}, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid " + name)
	}
	return id, nil
}

func invalidBody() error {
	return apperr.Validation("Invalid request body")
}
