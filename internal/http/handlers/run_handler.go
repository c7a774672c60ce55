package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "groupcart/internal/log"
	"groupcart/internal/services"
	"groupcart/internal/validate"
)

type RunHandler struct {
	Runs *services.RunService
}

// POST /api/runs/create
func (h *RunHandler) Create(c *fiber.Ctx) error {
	var req struct {
		GroupID   string `json:"group_id"`
		StoreID   string `json:"store_id"`
		PlannedOn string `json:"planned_on"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, map[string]any{"body": "invalid json"})
	}
	groupID, ok := validate.ID(req.GroupID)
	if !ok {
		return badRequest(c, map[string]any{"group_id": req.GroupID})
	}
	storeID, ok := validate.ID(req.StoreID)
	if !ok {
		return badRequest(c, map[string]any{"store_id": req.StoreID})
	}
	var plannedOn *string
	if req.PlannedOn != "" {
		d, ok := validate.Date(req.PlannedOn)
		if !ok {
			return badRequest(c, map[string]any{"planned_on": req.PlannedOn})
		}
		plannedOn = &d
	}

	run, err := h.Runs.Create(groupID, storeID, currentUser(c).ID, plannedOn)
	if err != nil {
		return fail(c, "runs.create", err)
	}
	applog.Audit(c, "runs.create", map[string]any{"run_id": run.ID, "group_id": groupID, "store_id": storeID})
	return c.Status(fiber.StatusCreated).JSON(run)
}

// GET /api/runs/:id
func (h *RunHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	detail, err := h.Runs.Detail(id)
	if err != nil {
		return fail(c, "runs.detail", err)
	}
	return c.JSON(detail)
}

// runAction wraps the state-transition endpoints that share the same
// id-plus-caller shape.
func (h *RunHandler) runAction(c *fiber.Ctx, action string, fn func(runID, userID string) error) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	if err := fn(id, currentUser(c).ID); err != nil {
		return fail(c, action, err)
	}
	applog.Audit(c, action, map[string]any{"run_id": id})
	detail, err := h.Runs.Detail(id)
	if err != nil {
		return fail(c, action, err)
	}
	return c.JSON(detail)
}

// POST /api/runs/:id/ready
func (h *RunHandler) ToggleReady(c *fiber.Ctx) error {
	return h.runAction(c, "runs.ready", func(runID, userID string) error {
		_, err := h.Runs.ToggleReady(runID, userID)
		return err
	})
}

// POST /api/runs/:id/activate
func (h *RunHandler) Activate(c *fiber.Ctx) error {
	return h.runAction(c, "runs.activate", h.Runs.Activate)
}

// POST /api/runs/:id/force-confirm
func (h *RunHandler) ForceConfirm(c *fiber.Ctx) error {
	return h.runAction(c, "runs.force_confirm", h.Runs.ForceConfirm)
}

// POST /api/runs/:id/start-shopping
func (h *RunHandler) StartShopping(c *fiber.Ctx) error {
	return h.runAction(c, "runs.start_shopping", h.Runs.StartShopping)
}

// POST /api/runs/:id/finish-adjusting?force=bool
func (h *RunHandler) FinishAdjusting(c *fiber.Ctx) error {
	force := c.QueryBool("force")
	return h.runAction(c, "runs.finish_adjusting", func(runID, userID string) error {
		return h.Runs.FinishAdjusting(runID, userID, force)
	})
}

// POST /api/runs/:id/cancel
func (h *RunHandler) Cancel(c *fiber.Ctx) error {
	return h.runAction(c, "runs.cancel", h.Runs.Cancel)
}

// POST /api/runs/:id/helpers/:user_id
func (h *RunHandler) ToggleHelper(c *fiber.Ctx) error {
	targetID, ok := validate.ID(c.Params("user_id"))
	if !ok {
		return badRequest(c, map[string]any{"user_id": c.Params("user_id")})
	}
	return h.runAction(c, "runs.helper", func(runID, userID string) error {
		_, err := h.Runs.ToggleHelper(runID, userID, targetID)
		return err
	})
}

// POST /api/runs/:id/leadership/request
func (h *RunHandler) RequestLeadership(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, map[string]any{"body": "invalid json"})
	}
	targetID, ok := validate.ID(req.UserID)
	if !ok {
		return badRequest(c, map[string]any{"user_id": req.UserID})
	}
	return h.runAction(c, "runs.leadership.request", func(runID, userID string) error {
		return h.Runs.RequestLeadership(runID, userID, targetID)
	})
}

// POST /api/runs/:id/leadership/accept
func (h *RunHandler) AcceptLeadership(c *fiber.Ctx) error {
	return h.runAction(c, "runs.leadership.accept", h.Runs.AcceptLeadership)
}
