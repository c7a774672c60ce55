package handlers

import (
	"github.com/gofiber/fiber/v2"

	"groupcart/internal/repos"
	"groupcart/internal/validate"
)

type StoreHandler struct {
	Stores   *repos.StoreRepo
	Products *repos.ProductRepo
}

// GET /api/stores
func (h *StoreHandler) List(c *fiber.Ctx) error {
	stores, err := h.Stores.List()
	if err != nil {
		return fail(c, "stores.list", err)
	}
	return c.JSON(stores)
}

// GET /api/stores/:id/products
func (h *StoreHandler) ListProducts(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	if _, err := h.Stores.ByID(id); err != nil {
		return fail(c, "stores.products", errNotFound(err))
	}
	products, err := h.Products.ListByStore(id)
	if err != nil {
		return fail(c, "stores.products", err)
	}
	return c.JSON(products)
}
