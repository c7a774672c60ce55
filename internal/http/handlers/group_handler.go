package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "groupcart/internal/log"
	"groupcart/internal/repos"
	"groupcart/internal/services"
	"groupcart/internal/validate"
)

type GroupHandler struct {
	Groups *repos.GroupRepo
	Runs   *repos.RunRepo
}

// GET /api/groups
func (h *GroupHandler) List(c *fiber.Ctx) error {
	groups, err := h.Groups.ListForUser(currentUser(c).ID)
	if err != nil {
		return fail(c, "groups.list", err)
	}
	return c.JSON(groups)
}

// POST /api/groups
func (h *GroupHandler) Create(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, map[string]any{"body": "invalid json"})
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, map[string]any{"name": req.Name})
	}

	id := uuid.NewString()
	if err := h.Groups.Create(id, name); err != nil {
		return fail(c, "groups.create", err)
	}
	if err := h.Groups.AddMember(id, currentUser(c).ID); err != nil {
		return fail(c, "groups.create", err)
	}
	applog.Audit(c, "groups.create", map[string]any{"group_id": id, "name": name})

	g, err := h.Groups.ByID(id)
	if err != nil {
		return fail(c, "groups.create", err)
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

// POST /api/groups/:id/join
func (h *GroupHandler) Join(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	if _, err := h.Groups.ByID(id); err != nil {
		return fail(c, "groups.join", errNotFound(err))
	}
	if err := h.Groups.AddMember(id, currentUser(c).ID); err != nil {
		return fail(c, "groups.join", err)
	}
	applog.Audit(c, "groups.join", map[string]any{"group_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

// GET /api/groups/:id/runs
func (h *GroupHandler) ListRuns(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	member, err := h.Groups.IsMember(id, currentUser(c).ID)
	if err != nil {
		return fail(c, "groups.runs", err)
	}
	if !member {
		return fail(c, "groups.runs", services.ErrForbidden)
	}
	runs, err := h.Runs.ListForGroup(id)
	if err != nil {
		return fail(c, "groups.runs", err)
	}
	return c.JSON(runs)
}
