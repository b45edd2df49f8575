package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/projects"
)

// path keywords that stand for the caller's own profile
const (
	myProjects          = "my-projects"
	myDeveloperProjects = "my-developer-projects"
)

type ProjectHandler struct {
	Projects *projects.ProjectService
}

func NewProjectHandler(ps *projects.ProjectService) *ProjectHandler {
	return &ProjectHandler{Projects: ps}
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req projects.ProjectInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	p, err := h.Projects.Create(c.UserContext(), actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Project created", p)
}

func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req projects.ProjectInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	p, err := h.Projects.Update(c.UserContext(), actor, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Project updated", p)
}

func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Projects.Delete(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Project deleted", fiber.Map{"id": id})
}

func (h *ProjectHandler) Complete(c *fiber.Ctx) error {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	p, err := h.Projects.Complete(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Project completed", p)
}

// SetStatusQuery handles PATCH /:id/status?status=.
func (h *ProjectHandler) SetStatusQuery(c *fiber.Ctx) error {
	return h.setStatus(c, c.Query("status"))
}

type statusReq struct {
	Status string `json:"status"`
}

// SetStatusBody handles PUT /:id/status with {"status": "..."}.
func (h *ProjectHandler) SetStatusBody(c *fiber.Ctx) error {
	var req statusReq
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}
	return h.setStatus(c, req.Status)
}

func (h *ProjectHandler) setStatus(c *fiber.Ctx, status string) error {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	p, err := h.Projects.SetStatus(c.UserContext(), actor, id, status)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Project status updated", p)
}

func (h *ProjectHandler) Claim(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	p, err := h.Projects.Claim(c.UserContext(), id, uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Project claimed successfully", p)
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	p, err := h.Projects.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", p)
}

func (h *ProjectHandler) List(c *fiber.Ctx) error {
	list, err := h.Projects.List(c.UserContext())
	return h.list(c, list, err)
}

func (h *ProjectHandler) ListPending(c *fiber.Ctx) error {
	list, err := h.Projects.ListByStatus(c.UserContext(), string(models.ProjectPending))
	return h.list(c, list, err)
}

func (h *ProjectHandler) ListByStatus(c *fiber.Ctx) error {
	list, err := h.Projects.ListByStatus(c.UserContext(), c.Params("status"))
	return h.list(c, list, err)
}

// ListByClient accepts a client profile id or "my-projects".
func (h *ProjectHandler) ListByClient(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var clientID uuid.UUID
	if c.Params("clientId") == myProjects {
		uid, err := getUserUUID(c)
		if err != nil {
			return respondError(c, err)
		}
		if clientID, err = h.Projects.ClientIDForUser(ctx, uid); err != nil {
			return respondError(c, err)
		}
	} else {
		var err error
		if clientID, err = paramUUID(c, "clientId"); err != nil {
			return respondError(c, err)
		}
	}
	list, err := h.Projects.ListByClient(ctx, clientID)
	return h.list(c, list, err)
}

// ListByDeveloper accepts a developer profile id, "my-projects" or
// "my-developer-projects".
func (h *ProjectHandler) ListByDeveloper(c *fiber.Ctx) error {
	switch c.Params("devId") {
	case myProjects, myDeveloperProjects:
		return h.ListMineAsDeveloper(c)
	}
	devID, err := paramUUID(c, "devId")
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.Projects.ListByDeveloper(c.UserContext(), devID)
	return h.list(c, list, err)
}

func (h *ProjectHandler) ListMineAsDeveloper(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.UserContext()
	devID, err := h.Projects.DeveloperIDForUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.Projects.ListByDeveloper(ctx, devID)
	return h.list(c, list, err)
}

func (h *ProjectHandler) list(c *fiber.Ctx, list []models.Project, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *ProjectHandler) actorAndID(c *fiber.Ctx) (projects.Actor, uuid.UUID, error) {
	actor, err := currentActor(c)
	if err != nil {
		return projects.Actor{}, uuid.Nil, err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return projects.Actor{}, uuid.Nil, err
	}
	return actor, id, nil
}
