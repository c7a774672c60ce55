package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	applog "groupcart/internal/log"
	"groupcart/internal/services"
	"groupcart/internal/validate"
)

type ShoppingHandler struct {
	Shopping *services.ShoppingService
}

func (h *ShoppingHandler) ids(c *fiber.Ctx) (runID, productID string, ok bool) {
	runID, ok = validate.ID(c.Params("id"))
	if !ok {
		return "", "", false
	}
	productID, ok = validate.ID(c.Params("product_id"))
	if !ok {
		return "", "", false
	}
	return runID, productID, true
}

// GET /api/runs/:id/shopping-list
func (h *ShoppingHandler) List(c *fiber.Ctx) error {
	runID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	items, err := h.Shopping.List(runID)
	if err != nil {
		return fail(c, "shopping.list", err)
	}
	return c.JSON(items)
}

// POST /api/runs/:id/shopping/:product_id/price
func (h *ShoppingHandler) AddPrice(c *fiber.Ctx) error {
	runID, productID, ok := h.ids(c)
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id"), "product_id": c.Params("product_id")})
	}

	var req struct {
		Price       string `json:"price"`
		Note        string `json:"note"`
		MinQuantity string `json:"min_quantity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, map[string]any{"body": "invalid json"})
	}
	price, ok := validate.Price(req.Price)
	if !ok {
		return badRequest(c, map[string]any{"price": req.Price})
	}
	minQty := decimal.Zero
	if req.MinQuantity != "" {
		minQty, ok = validate.Quantity(req.MinQuantity)
		if !ok {
			return badRequest(c, map[string]any{"min_quantity": req.MinQuantity})
		}
	}
	if len(req.Note) > 200 {
		return badRequest(c, map[string]any{"note": "too long"})
	}

	if err := h.Shopping.AddPrice(runID, currentUser(c).ID, productID, price, minQty, req.Note); err != nil {
		return fail(c, "shopping.price", err)
	}
	applog.Info(c, "shopping.price", map[string]any{"run_id": runID, "product_id": productID, "price": price.String()})
	return c.JSON(fiber.Map{"ok": true})
}

// purchaseBody parses a quantity/price body. A nil details map means
// the values are usable; otherwise the caller answers 400 with them.
func purchaseBody(c *fiber.Ctx) (qty, price decimal.Decimal, details map[string]any) {
	var req struct {
		Quantity string `json:"quantity"`
		Price    string `json:"price"`
	}
	if err := c.BodyParser(&req); err != nil {
		return decimal.Zero, decimal.Zero, map[string]any{"body": "invalid json"}
	}
	qty, ok := validate.Quantity(req.Quantity)
	if !ok || qty.IsZero() {
		return decimal.Zero, decimal.Zero, map[string]any{"quantity": req.Quantity}
	}
	price, ok = validate.Price(req.Price)
	if !ok {
		return decimal.Zero, decimal.Zero, map[string]any{"price": req.Price}
	}
	return qty, price, nil
}

// POST /api/runs/:id/shopping/:product_id/purchase
func (h *ShoppingHandler) MarkPurchased(c *fiber.Ctx) error {
	runID, productID, ok := h.ids(c)
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id"), "product_id": c.Params("product_id")})
	}
	qty, price, details := purchaseBody(c)
	if details != nil {
		return badRequest(c, details)
	}
	if err := h.Shopping.MarkPurchased(runID, currentUser(c).ID, productID, qty, price); err != nil {
		return fail(c, "shopping.purchase", err)
	}
	applog.Info(c, "shopping.purchase", map[string]any{"run_id": runID, "product_id": productID, "quantity": qty.String()})
	return c.JSON(fiber.Map{"ok": true})
}

// POST /api/runs/:id/shopping/:product_id/buy-more
func (h *ShoppingHandler) BuyMore(c *fiber.Ctx) error {
	runID, productID, ok := h.ids(c)
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id"), "product_id": c.Params("product_id")})
	}
	qty, price, details := purchaseBody(c)
	if details != nil {
		return badRequest(c, details)
	}
	if err := h.Shopping.BuyMore(runID, currentUser(c).ID, productID, qty, price); err != nil {
		return fail(c, "shopping.buy_more", err)
	}
	applog.Info(c, "shopping.buy_more", map[string]any{"run_id": runID, "product_id": productID, "quantity": qty.String()})
	return c.JSON(fiber.Map{"ok": true})
}
