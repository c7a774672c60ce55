package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "groupcart/internal/log"
	"groupcart/internal/services"
	"groupcart/internal/validate"
)

type BidHandler struct {
	Bids *services.BidService
}

// POST /api/runs/:id/bids
func (h *BidHandler) Place(c *fiber.Ctx) error {
	runID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}

	var req struct {
		ProductID      string `json:"product_id"`
		Quantity       string `json:"quantity"`
		InterestedOnly bool   `json:"interested_only"`
		Comment        string `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, map[string]any{"body": "invalid json"})
	}
	productID, ok := validate.ID(req.ProductID)
	if !ok {
		return badRequest(c, map[string]any{"product_id": req.ProductID})
	}
	if req.Quantity == "" {
		req.Quantity = "0"
	}
	qty, ok := validate.Quantity(req.Quantity)
	if !ok {
		return badRequest(c, map[string]any{"quantity": req.Quantity})
	}
	if len(req.Comment) > 200 {
		return badRequest(c, map[string]any{"comment": "too long"})
	}

	bid, err := h.Bids.Place(runID, currentUser(c).ID, productID, qty, req.InterestedOnly, req.Comment)
	if err != nil {
		return fail(c, "bids.place", err)
	}
	applog.Info(c, "bids.place", map[string]any{"run_id": runID, "product_id": productID, "quantity": qty.String()})
	return c.JSON(bid)
}

// DELETE /api/runs/:id/bids/:product_id
func (h *BidHandler) Retract(c *fiber.Ctx) error {
	runID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	productID, ok := validate.ID(c.Params("product_id"))
	if !ok {
		return badRequest(c, map[string]any{"product_id": c.Params("product_id")})
	}

	if err := h.Bids.Retract(runID, currentUser(c).ID, productID); err != nil {
		return fail(c, "bids.retract", err)
	}
	applog.Info(c, "bids.retract", map[string]any{"run_id": runID, "product_id": productID})
	return c.JSON(fiber.Map{"ok": true})
}

// GET /api/runs/:id/bids
func (h *BidHandler) List(c *fiber.Ctx) error {
	runID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	bids, err := h.Bids.ListForUser(runID, currentUser(c).ID)
	if err != nil {
		return fail(c, "bids.list", err)
	}
	return c.JSON(bids)
}

// GET /api/runs/:id/available-products
func (h *BidHandler) AvailableProducts(c *fiber.Ctx) error {
	runID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	products, err := h.Bids.AvailableProducts(runID, currentUser(c).ID)
	if err != nil {
		return fail(c, "bids.available", err)
	}
	return c.JSON(products)
}
