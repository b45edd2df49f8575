package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/ratings"
)

type RatingHandler struct {
	Ratings *ratings.RatingService
}

func NewRatingHandler(rs *ratings.RatingService) *RatingHandler {
	return &RatingHandler{Ratings: rs}
}

func (h *RatingHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req ratings.RatingInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	r, err := h.Ratings.Create(c.UserContext(), uid, currentRole(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Rating created", r)
}

func (h *RatingHandler) ForDeveloper(c *fiber.Ctx) error {
	id, err := paramUUID(c, "developerId")
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.Ratings.ForDeveloper(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *RatingHandler) Average(c *fiber.Ctx) error {
	id, err := paramUUID(c, "developerId")
	if err != nil {
		return respondError(c, err)
	}
	avg, err := h.Ratings.AverageFor(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", avg)
}
