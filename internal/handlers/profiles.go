package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/profiles"
)

type DeveloperHandler struct {
	Developers *profiles.DeveloperService
}

func NewDeveloperHandler(ds *profiles.DeveloperService) *DeveloperHandler {
	return &DeveloperHandler{Developers: ds}
}

func (h *DeveloperHandler) ListAll(c *fiber.Ctx) error {
	list, err := h.Developers.ListAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *DeveloperHandler) ListWithStats(c *fiber.Ctx) error {
	list, err := h.Developers.ListWithStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *DeveloperHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	d, err := h.Developers.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", d)
}

func (h *DeveloperHandler) UpdateMine(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req profiles.DeveloperUpdate
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	d, err := h.Developers.UpdateMine(c.UserContext(), uid, req)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Profile updated", d)
}

type ClientHandler struct {
	Clients *profiles.ClientService
}

func NewClientHandler(cs *profiles.ClientService) *ClientHandler {
	return &ClientHandler{Clients: cs}
}

// List accepts optional industry and company query filters.
func (h *ClientHandler) List(c *fiber.Ctx) error {
	list, err := h.Clients.List(c.UserContext(), profiles.ClientFilter{
		Industry: c.Query("industry"),
		Company:  c.Query("company"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *ClientHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	cl, err := h.Clients.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", cl)
}

func (h *ClientHandler) UpdateMine(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req profiles.ClientUpdate
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	cl, err := h.Clients.UpdateMine(c.UserContext(), uid, req)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Profile updated", cl)
}
