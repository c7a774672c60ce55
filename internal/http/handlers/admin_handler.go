package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "groupcart/internal/log"
	"groupcart/internal/repos"
	"groupcart/internal/validate"
)

type AdminHandler struct {
	Users    *repos.UserRepo
	Products *repos.ProductRepo
	Stores   *repos.StoreRepo
}

// listFilters pulls the shared admin query parameters.
func listFilters(c *fiber.Ctx) (search string, verified *bool, limit, offset int) {
	if s, ok := validate.Search(c.Query("search")); ok {
		search = s
	}
	switch strings.ToLower(c.Query("verified")) {
	case "true", "1":
		v := true
		verified = &v
	case "false", "0":
		v := false
		verified = &v
	}
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	return search, verified, limit, offset
}

// GET /admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	search, verified, limit, offset := listFilters(c)
	users, err := h.Users.ListAdmin(search, verified, limit, offset)
	if err != nil {
		return fail(c, "admin.users.list", err)
	}
	return c.JSON(users)
}

// GET /admin/products
func (h *AdminHandler) ListProducts(c *fiber.Ctx) error {
	search, verified, limit, offset := listFilters(c)
	products, err := h.Products.ListAdmin(search, verified, limit, offset)
	if err != nil {
		return fail(c, "admin.products.list", err)
	}
	return c.JSON(products)
}

// GET /admin/stores
func (h *AdminHandler) ListStores(c *fiber.Ctx) error {
	search, verified, limit, offset := listFilters(c)
	stores, err := h.Stores.ListAdmin(search, verified, limit, offset)
	if err != nil {
		return fail(c, "admin.stores.list", err)
	}
	return c.JSON(stores)
}

func (h *AdminHandler) toggleVerify(c *fiber.Ctx, resource string, toggle func(id string) (bool, error)) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	v, err := toggle(id)
	if err != nil {
		return fail(c, "admin."+resource+".verify", errNotFound(err))
	}
	applog.Audit(c, "admin."+resource+".verify", map[string]any{"id": id, "verified": v})
	return adminResult(c, "verify_toggled", map[string]any{"id": id, "verified": v}, 1)
}

// POST /admin/users/:id/verify
func (h *AdminHandler) VerifyUser(c *fiber.Ctx) error {
	return h.toggleVerify(c, "users", h.Users.ToggleVerified)
}

// POST /admin/products/:id/verify
func (h *AdminHandler) VerifyProduct(c *fiber.Ctx) error {
	return h.toggleVerify(c, "products", h.Products.ToggleVerified)
}

// POST /admin/stores/:id/verify
func (h *AdminHandler) VerifyStore(c *fiber.Ctx) error {
	return h.toggleVerify(c, "stores", h.Stores.ToggleVerified)
}

// PUT /admin/products/:id
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	var req struct {
		Name string `json:"name"`
		Unit string `json:"unit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, map[string]any{"body": "invalid json"})
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, map[string]any{"name": req.Name})
	}
	if req.Unit == "" {
		req.Unit = "piece"
	}

	n, err := h.Products.Update(id, name, req.Unit)
	if err != nil {
		return fail(c, "admin.products.update", err)
	}
	applog.Audit(c, "admin.products.update", map[string]any{"id": id, "name": name})
	return adminResult(c, "product_updated", map[string]any{"id": id}, n)
}

// POST /admin/products/:id/merge
func (h *AdminHandler) MergeProduct(c *fiber.Ctx) error {
	srcID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	var req struct {
		Into string `json:"into"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, map[string]any{"body": "invalid json"})
	}
	dstID, ok := validate.ID(req.Into)
	if !ok || dstID == srcID {
		return badRequest(c, map[string]any{"into": req.Into})
	}
	if _, err := h.Products.ByID(dstID); err != nil {
		return fail(c, "admin.products.merge", errNotFound(err))
	}

	n, err := h.Products.Merge(srcID, dstID)
	if err != nil {
		return fail(c, "admin.products.merge", err)
	}
	applog.Audit(c, "admin.products.merge", map[string]any{"from": srcID, "into": dstID})
	return adminResult(c, "product_merged", map[string]any{"from": srcID, "into": dstID}, n)
}

// DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	n, err := h.Users.DeleteUserCascade(id)
	if err != nil {
		return fail(c, "admin.users.delete", err)
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	return adminResult(c, "user_deleted", map[string]any{"id": id}, n)
}

// DELETE /admin/products/:id
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	n, err := h.Products.Delete(id)
	if err != nil {
		return fail(c, "admin.products.delete", err)
	}
	applog.Audit(c, "admin.products.delete", map[string]any{"id": id})
	return adminResult(c, "product_deleted", map[string]any{"id": id}, n)
}

// DELETE /admin/stores/:id
func (h *AdminHandler) DeleteStore(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, map[string]any{"id": c.Params("id")})
	}
	n, err := h.Stores.Delete(id)
	if err != nil {
		return fail(c, "admin.stores.delete", err)
	}
	applog.Audit(c, "admin.stores.delete", map[string]any{"id": id})
	return adminResult(c, "store_deleted", map[string]any{"id": id}, n)
}
