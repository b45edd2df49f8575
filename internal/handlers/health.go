package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/db"
)

type HealthHandler struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := fiber.Map{"database": "up", "redis": "up"}
	code := fiber.StatusOK

	if err := db.Ping(h.DB); err != nil {
		status["database"] = "down"
		code = fiber.StatusServiceUnavailable
	}
	if err := h.RDB.Ping(c.UserContext()).Err(); err != nil {
		status["redis"] = "down"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"success": code == fiber.StatusOK,
		"data":    status,
	})
}
